package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mvoronin/learnhub/internal/cache"
	"github.com/mvoronin/learnhub/internal/es"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/mykafka"
	"github.com/mvoronin/learnhub/internal/util"
)

type CourseHandler struct {
	DB       *gorm.DB
	Cache    *cache.CourseCache
	ES       *elasticsearch.Client
	Producer *mykafka.Producer
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *CourseHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "course_events", fmt.Sprint(event["courseID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CourseHandler) index(c echo.Context, course *models.Course) {
	if err := es.IndexCourse(c.Request().Context(), h.ES, course); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *CourseHandler) GetCourse(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid course id")
	}

	ctx := c.Request().Context()
	if h.Cache != nil {
		if course, err := h.Cache.GetCourse(ctx, uint(id)); err == nil {
			return c.JSON(http.StatusOK, course)
		}
	}

	var course models.Course
	if err := h.DB.Where("id = ?", id).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "course not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	if h.Cache != nil {
		if err := h.Cache.PutCourse(ctx, &course); err != nil {
			c.Logger().Errorf("course cache write error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) GetCourses(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	ctx := c.Request().Context()
	if h.Cache != nil {
		if list, err := h.Cache.GetList(ctx, page, limit); err == nil {
			return c.JSON(http.StatusOK, listResponse(page, limit, offset, list.Total, list.Items))
		}
	}

	var total int64
	if err := h.DB.Model(&models.Course{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	var items []models.Course
	if err := h.DB.Model(&models.Course{}).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	if h.Cache != nil {
		if err := h.Cache.PutList(ctx, page, limit, &cache.CourseList{Total: total, Items: items}); err != nil {
			c.Logger().Errorf("course cache write error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, listResponse(page, limit, offset, total, items))
}

func listResponse(page, limit, offset int, total int64, items []models.Course) map[string]any {
	return map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	}
}

func (h *CourseHandler) CreateCourse(c echo.Context) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       int64  `json:"price"`
		Lessons     uint   `json:"lessons"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	course := models.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Lessons:     req.Lessons,
	}
	if err := h.DB.Create(&course).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	h.invalidate(c, course.ID)
	h.index(c, &course)
	h.publish(c, map[string]any{
		"type":     "course_created",
		"courseID": course.ID,
		"title":    course.Title,
	})

	return c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) PatchCourse(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid course id")
	}

	var course models.Course
	if err := h.DB.Where("id = ?", id).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "course not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Price       *int64  `json:"price"`
		Lessons     *uint   `json:"lessons"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
		}
		course.Price = *req.Price
	}
	if req.Lessons != nil {
		course.Lessons = *req.Lessons
	}

	if err := h.DB.Save(&course).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	h.invalidate(c, course.ID)
	h.index(c, &course)
	h.publish(c, map[string]any{
		"type":     "course_updated",
		"courseID": course.ID,
		"title":    course.Title,
	})

	return c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) DeleteCourse(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid course id")
	}

	result := h.DB.Where("id = ?", id).Delete(&models.Course{})
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "course not found")
	}

	h.invalidate(c, uint(id))
	if err := es.DeleteCourse(c.Request().Context(), h.ES, uint(id)); err != nil {
		c.Logger().Errorf("ES delete error: %v", err)
	}
	h.publish(c, map[string]any{
		"type":     "course_deleted",
		"courseID": uint(id),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "course deleted",
	})
}

func (h *CourseHandler) invalidate(c echo.Context, id uint) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(c.Request().Context(), id); err != nil {
		c.Logger().Errorf("course cache invalidate error: %v", err)
	}
}
