// handlers/respond.go
package handlers

import (
	"errors"
	"log"

	"event-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps resolver errors onto HTTP statuses. Idempotency guards
// and lost races map to 409 so clients know the entity moved under them;
// bad payloads map to 400; anything unrecognized is a 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidEvidence),
		errors.Is(err, services.ErrBidTooLow),
		errors.Is(err, services.ErrParticipantHasNoTeam),
		errors.Is(err, services.ErrParticipantCapExceeded):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrAlreadyPending),
		errors.Is(err, services.ErrCompletionLimitReached),
		errors.Is(err, services.ErrStalePrice),
		errors.Is(err, services.ErrAlreadyClosed),
		errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrChallengeAlreadyCompleted),
		errors.Is(err, services.ErrMissionInactive),
		errors.Is(err, services.ErrOutsideWindow),
		errors.Is(err, services.ErrAuctionNotActive),
		errors.Is(err, services.ErrNoLeaderBid),
		errors.Is(err, services.ErrRaceNotStarted),
		errors.Is(err, services.ErrNotARace),
		errors.Is(err, services.ErrChallengeNotOpen),
		errors.Is(err, services.ErrNoResultsToScore):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("❌ [HANDLER] Unexpected error on %s: %v", c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
