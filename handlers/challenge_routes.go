// handlers/challenge_routes.go
package handlers

import (
	"event-quest-system/middleware"
	"event-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService, adminService *services.AdminService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/challenges", adminService.ListChallenges)

	securedGroup.Get("/challenges/:id/results", func(c *fiber.Ctx) error {
		results, err := challengeService.Results(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(results)
	})

	// Admin scoring flow
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/challenges", adminService.CreateChallenge)
	adminGroup.Patch("/challenges/:id/status", adminService.UpdateChallengeStatus)

	adminGroup.Post("/challenges/:id/results", func(c *fiber.Ctx) error {
		var entry services.ResultEntry
		if err := c.BodyParser(&entry); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		result, err := challengeService.AddResult(c.Params("id"), entry)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	adminGroup.Post("/challenges/:id/compute", func(c *fiber.Ctx) error {
		results, err := challengeService.ComputePlacements(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(results)
	})

	adminGroup.Post("/challenges/:id/award", func(c *fiber.Ctx) error {
		credited, err := challengeService.AwardPoints(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "points awarded",
			"credited": credited,
		})
	})
}
