package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/mvoronin/learnhub/internal/middleware/auth"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/session"
	"github.com/mvoronin/learnhub/internal/tokens"
)

type UserHandler struct {
	DB       *gorm.DB
	Sessions *session.Store
	Issuer   *tokens.Issuer
}

func (h *UserHandler) Me(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    snap,
	})
}

// UpdateProfile changes name/email in the primary store and re-writes
// the session snapshot. The session copy is not authoritative, so
// every mutating profile operation has to refresh it.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" && req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	var user models.User
	if err := h.DB.Where("id = ?", snap.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}

	if err := h.DB.Save(&user).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return echo.NewHTTPError(http.StatusConflict, "email already in use")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	if err := h.Sessions.Put(c.Request().Context(), user.ID.String(), snapshotOf(&user), h.Issuer.RefreshTTL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not refresh session")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}
