// handlers/leaderboard_routes.go
package handlers

import (
	"strconv"

	"event-quest-system/middleware"
	"event-quest-system/models"
	"event-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService, progressionService *services.ProgressionService, feedService *services.FeedService, adminService *services.AdminService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/leaderboard/:scope", func(c *fiber.Ctx) error {
		scope := models.LeaderboardScope(c.Params("scope"))
		if scope != models.LeaderboardScopeParticipant && scope != models.LeaderboardScopeTeam {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scope must be participant or team"})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		board, err := leaderboardService.Board(scope, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(board)
	})

	securedGroup.Get("/leaderboard/:scope/around/:entity_id", func(c *fiber.Ctx) error {
		scope := models.LeaderboardScope(c.Params("scope"))
		board, err := leaderboardService.BoardAround(scope, c.Params("entity_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(board)
	})

	securedGroup.Get("/me", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		p, err := progressionService.GetParticipant(participantID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	securedGroup.Post("/me/register", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		var req struct {
			DisplayName string  `json:"display_name"`
			TeamID      *string `json:"team_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		p, err := progressionService.EnsureParticipant(participantID, req.DisplayName, req.TeamID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	securedGroup.Get("/events/recent", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		events, err := feedService.RecentEvents(limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(events)
	})

	// SSE stream authenticates via query token, EventSource cannot set headers
	app.Get("/events/stream", middleware.SSEAuthMiddleware(), feedService.StreamEventsSSE)

	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/teams", adminService.CreateTeam)

	adminGroup.Post("/leaderboard/rebuild", func(c *fiber.Ctx) error {
		if err := leaderboardService.RebuildSnapshots(); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "snapshots rebuilt"})
	})
}
