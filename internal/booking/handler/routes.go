package handler

import (
	"github.com/gofiber/fiber/v2"

	authhandler "github.com/AldJayR/DormFinder/internal/auth/handler"
)

func RegisterRoutes(app *fiber.App, h *BookingHandler, mw *authhandler.Middleware) {
	api := app.Group("/api/v1")

	api.Post("/bookings", mw.RequireAuth(), h.Create)
	api.Patch("/bookings/:id/status", mw.RequireAuth(), h.UpdateStatus)

	api.Get("/dorms/:id/availability", h.Availability)
}
