package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoronin/learnhub/internal/hash"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/session"
	"github.com/mvoronin/learnhub/internal/tokens"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"email":    "test@example.com",
		"name":     "Test User",
		"password": "password",
	}
	rec, _, c := env.doJSONRequest(http.MethodPost, "/register", payload)

	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "test@example.com", resp.User.Email)
	assert.Equal(t, "user", resp.User.Role)
	assert.NotEmpty(t, resp.User.ID)

	// Welcome mail and notification row.
	assert.Equal(t, []string{"test@example.com"}, env.Mailer.Sent)
	var count int64
	env.DB.Model(&models.Notification{}).Where("user_id = ?", resp.User.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	// Duplicate email.
	_, _, cDup := env.doJSONRequest(http.MethodPost, "/register", payload)
	err := env.A.Register(cDup)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestRegister_MailFailureKeepsUser(t *testing.T) {
	env := newTestEnv(t)
	env.Mailer.Fail = true

	payload := map[string]string{
		"email":    "test@example.com",
		"name":     "Test User",
		"password": "password",
	}
	_, _, c := env.doJSONRequest(http.MethodPost, "/register", payload)

	err := env.A.Register(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusInternalServerError, he.Code)

	// The failed mail does not roll the account back.
	var count int64
	env.DB.Model(&models.User{}).Where("email = ?", "test@example.com").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	pwHash, _ := hash.HashPassword("password")
	user := models.User{
		Email:        "test@example.com",
		Name:         "Test User",
		PasswordHash: pwHash,
		Role:         "user",
	}
	require.NoError(t, env.DB.Create(&user).Error)

	rec, _, c := env.doJSONRequest(http.MethodPost, "/login", map[string]string{
		"email":    "test@example.com",
		"password": "password",
	})

	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["refresh_token"])
	assert.Equal(t, false, resp["is_admin"])
	// The access token travels only as a cookie.
	assert.NotContains(t, resp, "access_token")

	cookies := rec.Result().Cookies()
	names := map[string]*http.Cookie{}
	for _, ck := range cookies {
		names[ck.Name] = ck
	}
	require.Contains(t, names, "access_token")
	require.Contains(t, names, "refresh_token")
	assert.True(t, names["access_token"].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, names["access_token"].SameSite)

	// Session entry lands with the refresh lifetime.
	snap, err := env.Sessions.Get(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "user", snap.Role)
	ttl := env.Redis.TTL("session:" + user.ID.String())
	assert.InDelta(t, env.Issuer.RefreshTTL.Seconds(), ttl.Seconds(), 5)

	// Wrong password.
	_, _, cBad := env.doJSONRequest(http.MethodPost, "/login", map[string]string{
		"email":    "test@example.com",
		"password": "wrong",
	})
	err = env.A.Login(cBad)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLogOut(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "test@example.com", "user")

	rec, _, c := env.doJSONRequest(http.MethodPost, "/logout", nil)
	env.asUser(c, user)

	require.NoError(t, env.A.LogOut(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.Sessions.Get(context.Background(), user.ID.String())
	assert.ErrorIs(t, err, session.ErrNoSession)

	for _, ck := range rec.Result().Cookies() {
		assert.Equal(t, -1, ck.MaxAge, "cookie %s should be expired", ck.Name)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "test@example.com", "user")

	pair, err := env.Issuer.Mint(user.ID.String(), user.Role)
	require.NoError(t, err)

	rec, req, c := env.doJSONRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.RefreshToken})

	require.NoError(t, env.A.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["refresh_token"])
	assert.NotContains(t, resp, "access_token")

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = true
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])

	// New refresh token verifies and keeps the subject.
	claims, err := tokens.RefreshClaimsFromToken(resp["refresh_token"].(string), env.Issuer.RefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	// Session TTL is extended to the full refresh lifetime.
	ttl := env.Redis.TTL("session:" + user.ID.String())
	assert.InDelta(t, env.Issuer.RefreshTTL.Seconds(), ttl.Seconds(), 5)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "test@example.com", "user")

	expiredIssuer := *env.Issuer
	expiredIssuer.RefreshTTL = -time.Minute
	pair, err := expiredIssuer.Mint(user.ID.String(), user.Role)
	require.NoError(t, err)

	_, req, c := env.doJSONRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.RefreshToken})

	refreshErr := env.A.Refresh(c)
	he, ok := refreshErr.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRefresh_MissingCookie(t *testing.T) {
	env := newTestEnv(t)

	_, _, c := env.doJSONRequest(http.MethodPost, "/refresh", nil)
	err := env.A.Refresh(c)

	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRefresh_ValidTokenWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "test@example.com", "user")

	pair, err := env.Issuer.Mint(user.ID.String(), user.Role)
	require.NoError(t, err)

	// Force-logout between mint and redeem: a structurally valid
	// refresh token with no backing session must not succeed.
	require.NoError(t, env.Sessions.Delete(context.Background(), user.ID.String()))

	_, req, c := env.doJSONRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.RefreshToken})

	refreshErr := env.A.Refresh(c)
	he, ok := refreshErr.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "test@example.com", "user")

	rec, _, c := env.doJSONRequest(http.MethodDelete, "/me", nil)
	env.asUser(c, user)

	require.NoError(t, env.A.DeleteAccount(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	env.DB.Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	_, err := env.Sessions.Get(context.Background(), user.ID.String())
	assert.ErrorIs(t, err, session.ErrNoSession)
}
