package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/mvoronin/learnhub/internal/handlers"
	authmw "github.com/mvoronin/learnhub/internal/middleware/auth"
)

type Deps struct {
	Auth                *authmw.Auth
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	CourseHandler       *handlers.CourseHandler
	SearchHandler       *handlers.SearchHandler
	OrderHandler        *handlers.OrderHandler
	NotificationHandler *handlers.NotificationHandler
	AnalyticsHandler    *handlers.AnalyticsHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/refresh", d.AuthHandler.Refresh)
	v1.GET("/search", d.SearchHandler.Search)

	courses := v1.Group("/courses")
	courses.GET("", d.CourseHandler.GetCourses)
	courses.GET("/:id", d.CourseHandler.GetCourse)

	// Everything below runs behind the authentication gate; admin
	// routes add the role gate on top.
	me := v1.Group("", d.Auth.RequireAuth)
	me.POST("/logout", d.AuthHandler.LogOut)
	me.GET("/me", d.UserHandler.Me)
	me.PATCH("/me", d.UserHandler.UpdateProfile)
	me.DELETE("/me", d.AuthHandler.DeleteAccount)
	me.POST("/orders", d.OrderHandler.CreateOrder)
	me.GET("/orders", d.OrderHandler.GetOrders)
	me.GET("/notifications", d.NotificationHandler.GetNotifications)
	me.PATCH("/notifications/:id/read", d.NotificationHandler.MarkRead)

	admin := v1.Group("/admin", d.Auth.RequireAuth, authmw.RequireRole("admin"))
	admin.POST("/courses", d.CourseHandler.CreateCourse)
	admin.PATCH("/courses/:id", d.CourseHandler.PatchCourse)
	admin.DELETE("/courses/:id", d.CourseHandler.DeleteCourse)
	admin.GET("/orders", d.OrderHandler.GetAllOrders)
	admin.GET("/analytics", d.AnalyticsHandler.Overview)
}
