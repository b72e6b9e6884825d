// handlers/race_routes.go
package handlers

import (
	"event-quest-system/middleware"
	"event-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRaceRoutes(app *fiber.App, raceService *services.RaceService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Post("/races/:id/entries", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		var req struct {
			EvidenceURL string `json:"evidence_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		sub, err := raceService.SubmitEntry(participantID, c.Params("id"), req.EvidenceURL)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	securedGroup.Get("/races/:id/standings", func(c *fiber.Ctx) error {
		standings, err := raceService.Standings(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(standings)
	})

	// Admin lifecycle and review
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/races/:id/start", func(c *fiber.Ctx) error {
		if err := raceService.Start(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "race started"})
	})

	adminGroup.Post("/races/:id/stop", func(c *fiber.Ctx) error {
		if err := raceService.Stop(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "race stopped"})
	})

	adminGroup.Post("/race-entries/:id/approve", func(c *fiber.Ctx) error {
		reviewerID := middleware.ParticipantID(c)
		sub, err := raceService.ApproveEntry(reviewerID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(sub)
	})

	adminGroup.Post("/race-entries/:id/reject", func(c *fiber.Ctx) error {
		reviewerID := middleware.ParticipantID(c)
		if err := raceService.RejectEntry(reviewerID, c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "entry rejected"})
	})
}
