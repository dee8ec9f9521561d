package handler

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, limiter fiber.Handler) {
	auth := app.Group("/auth")
	if limiter != nil {
		auth.Use(limiter)
	}
	auth.Post("/login", h.Login)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/reset-password/:token", h.ResetPassword)

	lecturer := app.Group("/lecturer")
	lecturer.Get("/me", h.RequireAuth, h.Me)
}
