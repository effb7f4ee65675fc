package handlers

import (
	"github.com/labstack/echo/v4"
)

// Routes registers the API on e. limit guards the unauthenticated
// endpoints; gate protects everything else under /api.
func (h *Handler) Routes(e *echo.Echo, limit, gate echo.MiddlewareFunc) {
	// Public
	e.GET("/api/login", h.Login, limit)
	e.POST("/api/register", h.Register, limit)

	// Protected – require a valid session token in the Authorization header
	api := e.Group("/api", gate)
	api.GET("/me", h.Me)
	api.GET("/tasks", h.Tasks)
	api.GET("/tasks/:id/image", h.TaskImage)
	api.POST("/tasks/:id/image", h.UploadTaskImage)
}
