package auth

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole allows only the listed roles past. It expects to run
// after RequireAuth; without a current user the role is empty and the
// allow-list check fails the same way.
func RequireRole(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := ""
			if snap := CurrentUser(c); snap != nil {
				role = snap.Role
			}
			if !slices.Contains(allowedRoles, role) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("Role '%s' is not allowed to access this resource", role))
			}
			return next(c)
		}
	}
}
