package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mvoronin/learnhub/internal/models"
)

type AnalyticsHandler struct {
	DB *gorm.DB
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Overview returns daily registration and order counts for the
// requested range, defaulting to the last 7 days.
func (h *AnalyticsHandler) Overview(c echo.Context) error {
	const layout = "2006-01-02"

	to := time.Now().UTC().Truncate(24 * time.Hour)
	if v := c.QueryParam("to"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -6)
	if v := c.QueryParam("from"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid 'from' date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if from.After(to) {
		return echo.NewHTTPError(http.StatusBadRequest, "'from' must not be after 'to'")
	}
	toExclusive := to.AddDate(0, 0, 1)

	registrations, err := h.countByDay(&models.User{}, from, toExclusive)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	orders, err := h.countByDay(&models.Order{}, from, toExclusive)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"from":          from.Format(layout),
		"to":            to.Format(layout),
		"registrations": registrations,
		"orders":        orders,
	})
}

func (h *AnalyticsHandler) countByDay(model any, from, toExclusive time.Time) ([]DayCount, error) {
	var counts []DayCount
	err := h.DB.Model(model).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, toExclusive).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
