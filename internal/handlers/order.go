package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/mvoronin/learnhub/internal/middleware/auth"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/mykafka"
	"github.com/mvoronin/learnhub/internal/util"

	"github.com/google/uuid"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Mailer   Mailer
}

const orderMailTemplate = "Hi {{.Name}},\r\n\r\nYour order #{{.OrderID}} for {{.Count}} course(s) is confirmed. Total: {{.Total}}.\r\n"

func (h *OrderHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var req struct {
		Items []struct {
			CourseID uint `json:"course_id"`
			Quantity uint `json:"quantity"`
		} `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "items required")
	}

	userID, err := uuid.Parse(snap.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	var total int64
	var items []models.OrderItem
	for _, it := range req.Items {
		if it.CourseID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "course_id required")
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}

		var course models.Course
		if err := h.DB.Where("id = ?", it.CourseID).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("course %d not found", it.CourseID))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "database error")
		}

		lineTotal := int64(qty) * course.Price
		items = append(items, models.OrderItem{
			CourseID:  course.ID,
			Quantity:  qty,
			UnitPrice: course.Price,
			LineTotal: lineTotal,
		})
		total += lineTotal
	}

	order := models.Order{
		UserID: userID,
		Status: models.OrderStatusNew,
		Total:  total,
		Items:  items,
	}
	if err := h.DB.Create(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	notification := models.Notification{
		UserID: userID,
		Title:  "Order confirmed",
		Body:   fmt.Sprintf("Your order #%d is confirmed. Total: %d.", order.ID, order.Total),
	}
	if err := h.DB.Create(&notification).Error; err != nil {
		c.Logger().Errorf("notification create error: %v", err)
	}

	h.publish(c, snap.ID, map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  snap.ID,
		"total":   order.Total,
	})

	// Order state is committed; a failed confirmation mail is a 500
	// without rollback.
	if h.Mailer != nil {
		err := h.Mailer.Send(snap.Email, "Order confirmed", orderMailTemplate, map[string]any{
			"Name":    snap.Name,
			"OrderID": order.ID,
			"Count":   len(order.Items),
			"Total":   order.Total,
		})
		if err != nil {
			c.Logger().Errorf("order mail error: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "could not send confirmation mail")
		}
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	err := h.DB.Preload("Items").
		Where("user_id = ?", snap.ID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

func (h *OrderHandler) GetAllOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	err := h.DB.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}
