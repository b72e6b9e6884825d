// handlers/auction_routes.go
package handlers

import (
	"event-quest-system/middleware"
	"event-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuctionRoutes(app *fiber.App, auctionService *services.AuctionService, adminService *services.AdminService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/auctions", adminService.ListAuctions)
	securedGroup.Get("/auctions/:id", adminService.GetAuction)

	securedGroup.Post("/auctions/:id/bids", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		teamID := middleware.TeamID(c)
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		bid, err := auctionService.PlaceBid(c.Params("id"), teamID, participantID, req.Amount)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(bid)
	})

	// Admin lifecycle
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/auctions", adminService.CreateAuction)

	adminGroup.Post("/auctions/:id/activate", func(c *fiber.Ctx) error {
		if err := auctionService.Activate(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "auction activated"})
	})

	adminGroup.Post("/auctions/:id/close", func(c *fiber.Ctx) error {
		winner, err := auctionService.Close(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(winner)
	})

	adminGroup.Post("/auctions/:id/cancel", func(c *fiber.Ctx) error {
		if err := auctionService.Cancel(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "auction cancelled"})
	})
}
