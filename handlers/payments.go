package handlers

import (
	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, paymentService *services.PaymentService, authCfg middleware.AuthConfig) {
	// Webhook is authenticated by its HMAC signature, not by a session.
	app.Post("/api/webhooks/cashfree", paymentService.HandleWebhook)

	secured := app.Group("/api/payments", middleware.SessionMiddleware(authCfg))
	secured.Post("/create-order", paymentService.CreateOrder)
	secured.Get("/orders/:order_id", paymentService.GetOrderStatus)

	admin := secured.Group("/", middleware.RequireRole(models.RoleAdmin))
	admin.Post("/sync", paymentService.AdminSync)
}
