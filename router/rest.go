package router

import (
	"chat-service/controller"
	"chat-service/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func Rest(app *fiber.App) {
	app.Use(logger.New())

	app.Get("/health", controller.Health)

	// Auth
	auth := app.Group("/auth")
	auth.Post("/register", controller.AuthRegister)
	auth.Post("/login", controller.AuthLogin)
	auth.Post("/refresh", controller.AuthTokenRefresh)
	auth.Get("/me", middleware.JWT(), controller.UserProfile)
	auth.Put("/profile", middleware.JWT(), middleware.OTP(), controller.UserProfileUpdate)
	auth.Post("/2fa/secret", middleware.JWT(), middleware.OTP(), controller.AuthOtpSecret)
	auth.Post("/2fa/verify", middleware.JWT(), middleware.OTP(), controller.AuthOtpVerify)
	auth.Post("/2fa/validate", middleware.JWT(), controller.AuthOtpValidate)
	auth.Post("/2fa/disable", middleware.JWT(), middleware.OTP(), controller.AuthOtpDisable)

	// Messenger fallback paths for clients without a realtime connection
	app.Get("/conversations", middleware.JWT(), middleware.OTP(), controller.ConversationList)
	app.Post("/conv/ensure", middleware.JWT(), middleware.OTP(), controller.ConversationEnsure)
	app.Get("/messages/:convId", middleware.JWT(), middleware.OTP(), controller.ConversationMessages)
	app.Get("/presence/:userId", middleware.JWT(), controller.PresenceStatus)

	// Upload
	app.Post("/upload", middleware.JWT(), middleware.OTP(), controller.Upload)
	app.Post("/upload/avatar", middleware.JWT(), middleware.OTP(), controller.UploadAvatar)
	app.Static("/uploads", "./uploads")

	// Admin
	admin := app.Group("/v1/admin", middleware.JWT(), middleware.OTP(), middleware.RBAC())
	admin.Get("/users", controller.AdminUsers)
}
