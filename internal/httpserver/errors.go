package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {"success":false,"message":...}.
// Internal errors keep their details on the server side.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	_ = c.JSON(code, echo.Map{
		"success": false,
		"message": message,
	})
}
