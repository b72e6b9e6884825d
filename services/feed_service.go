package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"event-quest-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// FeedService is the change-notification feed: one EngineEvent row per
// accepted state transition, written in the same transaction as the
// transition, plus an SSE stream for dashboards.
type FeedService struct {
	DB *gorm.DB
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{DB: db}
}

// Publish records a transition event on the caller's transaction so the
// event commits (or rolls back) together with the transition itself.
func (f *FeedService) Publish(tx *gorm.DB, entityType, entityID, action string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal feed payload: %w", err)
	}
	event := models.EngineEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Payload:    string(body),
	}
	return tx.Create(&event).Error
}

// RecentEvents returns the newest feed entries for poll-based consumers.
func (f *FeedService) RecentEvents(limit int) ([]models.EngineEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []models.EngineEvent
	err := f.DB.Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

// StreamEventsSSE streams engine events as they are committed, cursored on
// created_at. Same transport as the rest of the platform's dashboards.
func (f *FeedService) StreamEventsSSE(c *fiber.Ctx) error {
	entityType := c.Query("entity_type") // optional filter

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var cursor time.Time

		var latest models.EngineEvent
		if err := f.DB.Order("created_at DESC").First(&latest).Error; err == nil {
			cursor = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error: %v", err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				query := f.DB.Where("created_at > ?", cursor).Order("created_at ASC")
				if entityType != "" {
					query = query.Where("entity_type = ?", entityType)
				}

				var events []models.EngineEvent
				if err := query.Find(&events).Error; err != nil {
					log.Printf("SSE query error: %v", err)
					continue
				}
				if len(events) == 0 {
					continue
				}

				cursor = events[len(events)-1].CreatedAt

				for _, e := range events {
					payload, _ := json.Marshal(e)
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Action, payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
