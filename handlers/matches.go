package handlers

import (
	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService,
	registrationService *services.RegistrationService, resultService *services.ResultService,
	authCfg middleware.AuthConfig) {

	// Public catalog
	app.Get("/api/matches", matchService.ListMatches)
	app.Get("/api/matches/by-slug/:slug", matchService.GetMatchBySlug)

	secured := app.Group("/api/matches", middleware.SessionMiddleware(authCfg))

	// Creation and lifecycle (host/admin; per-match authority is checked
	// inside the service via the capability function)
	secured.Post("/", matchService.CreateMatch)
	secured.Post("/:id/start", matchService.StartMatch)
	secured.Post("/:id/open-results", matchService.OpenResults)
	secured.Post("/:id/close", matchService.CloseMatch)

	// Registration
	secured.Post("/:id/register", registrationService.RegisterForMatch)
	secured.Get("/:id/registrations", registrationService.ListMatchRegistrations)
	secured.Patch("/registrations/:reg_id/game-ids", registrationService.UpdateGameIDs)
	secured.Post("/registrations/:reg_id/lock", registrationService.LockGameIDs)

	// Results
	secured.Post("/:id/submit-result", resultService.SubmitResult)
	secured.Get("/:id/submissions", resultService.ListMatchSubmissions)
	secured.Patch("/submissions/:sub_id/host-approve", resultService.HostReview)
	secured.Get("/submissions/:sub_id/screenshot", resultService.ScreenshotURL)

	// Admin-only match operations
	admin := secured.Group("/", middleware.RequireRole(models.RoleAdmin))
	admin.Post("/:id/manual-entry", registrationService.AdminManualEntry)
	admin.Post("/registrations/:reg_id/cancel", registrationService.AdminCancel)
	admin.Patch("/submissions/:sub_id", resultService.AdminEdit)
	admin.Patch("/submissions/:sub_id/review", resultService.AdminReview)
}
