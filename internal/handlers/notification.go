package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/mvoronin/learnhub/internal/middleware/auth"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/util"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var notifications []models.Notification
	err := h.DB.Where("user_id = ?", snap.ID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"notifications": notifications,
	})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}

	result := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, snap.ID).
		Update("read", true)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "notification marked as read",
	})
}
