package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mvoronin/learnhub/internal/hash"
	authmw "github.com/mvoronin/learnhub/internal/middleware/auth"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/mykafka"
	"github.com/mvoronin/learnhub/internal/session"
	"github.com/mvoronin/learnhub/internal/tokens"
)

type AuthHandler struct {
	DB           *gorm.DB
	Issuer       *tokens.Issuer
	Sessions     *session.Store
	Producer     *mykafka.Producer
	Mailer       Mailer
	CookieSecure bool
}

// Mailer matches internal/mail.Sender; declared here so handlers can
// be wired with a stub in tests.
type Mailer interface {
	Send(recipient, subject, tmpl string, data any) error
}

const welcomeMailTemplate = "Hi {{.Name}},\r\n\r\nYour LearnHub account is ready. Happy learning!\r\n"

func CreateCookie(name, value, path string, expTime time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func snapshotOf(user *models.User) session.Snapshot {
	return session.Snapshot{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}

func (h *AuthHandler) setAuthCookies(c echo.Context, pair *tokens.Pair) {
	c.SetCookie(CreateCookie("access_token", pair.AccessToken, "/", pair.AccessExp, h.CookieSecure))
	c.SetCookie(CreateCookie("refresh_token", pair.RefreshToken, "/", pair.RefreshExp, h.CookieSecure))
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	c.SetCookie(DeleteCookie("access_token", "/", h.CookieSecure))
	c.SetCookie(DeleteCookie("refresh_token", "/", h.CookieSecure))
}

func (h *AuthHandler) publish(c echo.Context, topic, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email, name and password are required")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	var existing models.User
	err = h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}

	notification := models.Notification{
		UserID: user.ID,
		Title:  "Welcome to LearnHub",
		Body:   fmt.Sprintf("Welcome, %s! Browse the catalog to start your first course.", user.Name),
	}
	if err := h.DB.Create(&notification).Error; err != nil {
		c.Logger().Errorf("notification create error: %v", err)
	}

	h.publish(c, "user_events", user.ID.String(), map[string]any{
		"type":   "user_registered",
		"userID": user.ID.String(),
		"email":  user.Email,
	})

	// The account is already created; a failed mail surfaces as a 500
	// but rolls nothing back.
	if h.Mailer != nil {
		if err := h.Mailer.Send(user.Email, "Welcome to LearnHub", welcomeMailTemplate, map[string]any{"Name": user.Name}); err != nil {
			c.Logger().Errorf("welcome mail error: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "could not send welcome mail")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	pair, err := h.Issuer.Mint(user.ID.String(), user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create tokens")
	}

	// Session lifetime always mirrors the refresh token lifetime.
	if err := h.Sessions.Put(c.Request().Context(), user.ID.String(), snapshotOf(&user), h.Issuer.RefreshTTL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create session")
	}

	h.setAuthCookies(c, pair)

	h.publish(c, "user_events", user.ID.String(), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID.String(),
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"refresh_token": pair.RefreshToken,
		"is_admin":      user.Role == "admin",
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	if err := h.Sessions.Delete(c.Request().Context(), snap.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete session")
	}

	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "logged out",
	})
}

// Refresh exchanges a valid refresh cookie for a new token pair and
// extends the session by the full refresh lifetime. The refresh token
// itself stays redeemable until it expires; revocation happens through
// the session entry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshCookie, err := c.Cookie("refresh_token")
	if err != nil || refreshCookie.Value == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refresh token")
	}

	claims, err := tokens.RefreshClaimsFromToken(refreshCookie.Value, h.Issuer.RefreshSecret)
	if err != nil || claims == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid refresh token")
	}

	// A structurally valid refresh token without a backing session
	// must not succeed.
	snap, err := h.Sessions.Get(c.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
		}
		c.Logger().Errorf("session lookup error: %v", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}

	pair, err := h.Issuer.Mint(snap.ID, snap.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create tokens")
	}

	if err := h.Sessions.Put(c.Request().Context(), snap.ID, *snap, h.Issuer.RefreshTTL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not extend session")
	}

	h.setAuthCookies(c, pair)

	// Only the refresh token travels in the body; the access token is
	// cookie-only.
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	snap := authmw.CurrentUser(c)
	if snap == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	if err := h.DB.Where("id = ?", snap.ID).Delete(&models.User{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database error")
	}
	if err := h.DB.Where("user_id = ?", snap.ID).Delete(&models.Notification{}).Error; err != nil {
		c.Logger().Errorf("notification cleanup error: %v", err)
	}

	if err := h.Sessions.Delete(c.Request().Context(), snap.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete session")
	}

	h.clearAuthCookies(c)

	h.publish(c, "user_events", snap.ID, map[string]any{
		"type":   "user_deleted",
		"userID": snap.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "account deleted",
	})
}
