package handlers

import (
	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCommunityRoutes(app *fiber.App, hostService *services.HostService,
	requestService *services.MatchRequestService, authCfg middleware.AuthConfig) {

	secured := app.Group("/api", middleware.SessionMiddleware(authCfg))

	// Host applications
	secured.Post("/host-applications", hostService.Apply)
	admin := secured.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/host-applications", hostService.ListApplications)
	admin.Post("/host-applications/:app_id/review", hostService.Review)

	// Community match requests, advisory only
	secured.Post("/match-requests", requestService.CreateRequest)
	secured.Get("/match-requests", requestService.ListRequests)
	secured.Post("/match-requests/:req_id/vote", requestService.Vote)
}
