package handlers

import (
	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUploadRoutes(app *fiber.App, uploadService *services.UploadService, authCfg middleware.AuthConfig) {
	secured := app.Group("/api/uploads", middleware.SessionMiddleware(authCfg))
	secured.Post("/presign", uploadService.Presign)
	secured.Post("/complete", uploadService.Complete)
}
