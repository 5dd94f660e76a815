package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, mw *Middleware) {
	api := app.Group("/api/v1")

	api.Post("/register", h.Register)
	api.Post("/login", h.Login)
	api.Post("/refresh", mw.RequireCSRF(), h.Refresh)
	api.Post("/logout", mw.RequireCSRF(), h.Logout)

	api.Get("/me", mw.RequireAuth(), h.Me)
}
