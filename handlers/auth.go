package handlers

import (
	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService, authCfg middleware.AuthConfig) {
	auth := app.Group("/api/auth")
	auth.Post("/register", authService.Register)
	auth.Post("/login", authService.Login)
	auth.Post("/logout", authService.Logout)
	auth.Post("/reset/request", authService.RequestReset)
	auth.Post("/reset/confirm", authService.ConfirmReset)
	auth.Post("/verify/confirm", authService.ConfirmVerify)

	secured := auth.Group("/", middleware.SessionMiddleware(authCfg))
	secured.Post("/verify/request", authService.RequestVerify)

	users := app.Group("/api/users", middleware.SessionMiddleware(authCfg))
	users.Get("/me", authService.Me)
	users.Patch("/me", authService.UpdateProfile)
	users.Post("/me/profile-image", authService.UploadProfileImage)
}
