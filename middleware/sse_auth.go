// middleware/sse_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates the `token` query param on streaming routes.
// EventSource cannot set headers, so the gateway token travels in the query
// string instead of the Authorization header.
//
// Usage:
//
//	app.Get("/events/stream", middleware.SSEAuthMiddleware(), feedService.StreamEventsSSE)
func SSEAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("QUEST_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ QUEST_SERVICE_TOKEN is not set — service cannot authenticate SSE clients")
	}

	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ Missing token query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}
		if accessToken != expectedToken {
			log.Printf("[SSEAuth] ❌ Invalid token for %s (prefix: %.10s...)", c.Path(), accessToken)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	}
}
