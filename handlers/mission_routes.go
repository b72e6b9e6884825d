// handlers/mission_routes.go
package handlers

import (
	"log"
	"path/filepath"

	"event-quest-system/middleware"
	"event-quest-system/services"
	"event-quest-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupMissionRoutes(app *fiber.App, missionService *services.MissionService, adminService *services.AdminService) {
	// 🔐 Secured routes — require user context (userID, roles)
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Participant-facing
	securedGroup.Get("/missions", adminService.ListMissions)
	securedGroup.Get("/missions/:id", adminService.GetMission)

	securedGroup.Post("/missions/:id/submit", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		var req struct {
			Code      string  `json:"code"`
			Lat       float64 `json:"lat"`
			Lng       float64 `json:"lng"`
			Answers   []int   `json:"answers"`
			ElapsedMs int64   `json:"elapsed_ms"`
			PhotoURL  string  `json:"photo_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		sub, err := missionService.Submit(participantID, c.Params("id"), services.MissionEvidence{
			Code:      req.Code,
			Lat:       req.Lat,
			Lng:       req.Lng,
			Answers:   req.Answers,
			ElapsedMs: req.ElapsedMs,
			PhotoURL:  req.PhotoURL,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	// Evidence upload for photo missions and race finish shots. Goes to R2
	// when configured, local disk otherwise. The returned URL is what the
	// client sends back as photo_url / evidence_url.
	securedGroup.Post("/evidence", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file field is required"})
		}

		key := utils.EvidenceKey(participantID, uuid.NewString()+filepath.Ext(fileHeader.Filename))
		var url string
		if utils.EvidenceStoreReady() {
			url, err = utils.UploadEvidence(fileHeader, key)
		} else {
			url, err = utils.SaveEvidenceLocally(fileHeader, key)
		}
		if err != nil {
			log.Printf("❌ [EVIDENCE] Upload failed for %s: %v", participantID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "evidence upload failed"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
	})

	securedGroup.Get("/missions/:id/submissions/mine", func(c *fiber.Ctx) error {
		participantID := middleware.ParticipantID(c)
		subs, err := missionService.ParticipantSubmissions(participantID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(subs)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/missions", adminService.CreateMission)
	adminGroup.Patch("/missions/:id/status", adminService.UpdateMissionStatus)

	adminGroup.Get("/missions/:id/submissions/pending", func(c *fiber.Ctx) error {
		subs, err := missionService.PendingSubmissions(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(subs)
	})

	adminGroup.Post("/submissions/:id/review", func(c *fiber.Ctx) error {
		reviewerID := middleware.ParticipantID(c)
		var req struct {
			Approve        bool   `json:"approve"`
			RewardOverride *int64 `json:"reward_override"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		sub, err := missionService.Review(reviewerID, c.Params("id"), req.Approve, req.RewardOverride)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(sub)
	})
}
