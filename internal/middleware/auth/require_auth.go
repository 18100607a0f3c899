// Package auth carries the two request gates: authentication (verify
// the access cookie, load the live session) and role authorization.
package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mvoronin/learnhub/internal/logging"
	"github.com/mvoronin/learnhub/internal/session"
	"github.com/mvoronin/learnhub/internal/tokens"
)

const userContextKey = "user"

type Auth struct {
	JWTSecret []byte
	Sessions  *session.Store
}

func New(jwtSecret []byte, sessions *session.Store) *Auth {
	return &Auth{JWTSecret: jwtSecret, Sessions: sessions}
}

// RequireAuth authenticates the request from the access_token cookie.
// A token that verifies is only authoritative while its session entry
// exists; a deleted entry rejects the request even before the token
// expires. Store outages deny access.
func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie("access_token")
		if err != nil || accessCookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		// Malformed and expired tokens get the same answer so the
		// response does not reveal which check failed.
		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err != nil || claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		snap, err := m.Sessions.Get(c.Request().Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session not found")
			}
			logging.FromContext(c.Request().Context()).Error("session lookup failed", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "session not found")
		}

		c.Set(userContextKey, snap)
		return next(c)
	}
}

// CurrentUser returns the snapshot attached by RequireAuth, or nil on
// an unauthenticated request.
func CurrentUser(c echo.Context) *session.Snapshot {
	if v := c.Get(userContextKey); v != nil {
		if snap, ok := v.(*session.Snapshot); ok {
			return snap
		}
	}
	return nil
}
