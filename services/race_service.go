package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"event-quest-system/models"

	"gorm.io/gorm"
)

// RaceService is the race resolver: explicit start/stop lifecycle, entry
// intake, and approval with atomic sequential placement assignment. Race
// rewards are team-scoped, unlike ordinary missions.
type RaceService struct {
	DB     *gorm.DB
	Ledger *LedgerStore
	Feed   *FeedService
}

func NewRaceService(db *gorm.DB, ledger *LedgerStore, feed *FeedService) *RaceService {
	return &RaceService{DB: db, Ledger: ledger, Feed: feed}
}

// Start flips an inactive race to active and records the start timestamp.
// Admin action only — the clock never starts a race by itself.
func (s *RaceService) Start(raceID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Mission{}).
			Where("id = ? AND is_race = ? AND race_active = ?", raceID, true, false).
			Updates(map[string]interface{}{
				"race_active":     true,
				"race_started_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.raceStateRejection(tx, raceID, false)
		}
		log.Printf("🏁 race %s started at %s", raceID, now.Format(time.RFC3339))
		return s.Feed.Publish(tx, "race", raceID, "started", map[string]interface{}{
			"race_id": raceID, "started_at": now,
		})
	})
}

// Stop flips an active race to inactive. The start timestamp is kept so
// late approvals still compute elapsed time against it.
func (s *RaceService) Stop(raceID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Mission{}).
			Where("id = ? AND is_race = ? AND race_active = ?", raceID, true, true).
			Update("race_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.raceStateRejection(tx, raceID, true)
		}
		return s.Feed.Publish(tx, "race", raceID, "stopped", map[string]string{"race_id": raceID})
	})
}

// SubmitEntry records a team's pending race entry. Entries are only
// accepted while the race is running.
func (s *RaceService) SubmitEntry(participantID, raceID string, evidenceURL string) (*models.Submission, error) {
	var out *models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		race, err := s.loadRace(tx, raceID)
		if err != nil {
			return err
		}
		if !race.RaceActive || race.RaceStartedAt == nil {
			return ErrRaceNotStarted
		}

		var pending int64
		if err := tx.Model(&models.Submission{}).
			Where("mission_id = ? AND participant_id = ? AND status = ?",
				raceID, participantID, models.SubmissionStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrAlreadyPending
		}

		var approved int64
		if err := tx.Model(&models.Submission{}).
			Where("mission_id = ? AND participant_id = ? AND status = ?",
				raceID, participantID, models.SubmissionStatusApproved).
			Count(&approved).Error; err != nil {
			return err
		}
		if approved > 0 {
			return ErrAlreadyCompleted
		}

		sub := &models.Submission{
			MissionID:     raceID,
			ParticipantID: participantID,
			Status:        models.SubmissionStatusPending,
			EvidenceURL:   evidenceURL,
		}
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveEntry resolves a pending race submission: allocates the next
// placement atomically, computes elapsed time from the race start, looks
// up the placement reward, and credits the participant's team exactly
// once. The pending→approved flip is conditional so a second reviewer on
// the same entry loses cleanly.
func (s *RaceService) ApproveEntry(reviewerID, submissionID string) (*models.Submission, error) {
	var out *models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
			}
			return err
		}

		race, err := s.loadRace(tx, sub.MissionID)
		if err != nil {
			return err
		}
		if race.RaceStartedAt == nil {
			return ErrRaceNotStarted
		}

		var participant models.Participant
		if err := tx.First(&participant, "id = ?", sub.ParticipantID).Error; err != nil {
			return err
		}
		if participant.TeamID == nil {
			return ErrParticipantHasNoTeam
		}

		// One placement per runner. A second pending entry from the same
		// participant must not earn a second placement and team credit.
		var approved int64
		if err := tx.Model(&models.Submission{}).
			Where("mission_id = ? AND participant_id = ? AND status = ? AND id <> ?",
				sub.MissionID, sub.ParticipantID, models.SubmissionStatusApproved, sub.ID).
			Count(&approved).Error; err != nil {
			return err
		}
		if approved > 0 {
			return ErrAlreadyCompleted
		}

		placement, err := s.Ledger.NextPlacement(tx, race.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		elapsedMs := now.Sub(*race.RaceStartedAt).Milliseconds()
		reward := placementReward(race.RacePoints, placement)

		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submissionID, models.SubmissionStatusPending).
			Updates(map[string]interface{}{
				"status":          models.SubmissionStatusApproved,
				"placement":       placement,
				"race_elapsed_ms": elapsedMs,
				"reward":          reward,
				"reviewer_id":     reviewerID,
				"reviewed_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Not pending anymore. Rolling back also returns the counter
			// increment, so no placement gap is left behind.
			return ErrAlreadyResolved
		}

		if err := s.Ledger.CreditTeam(tx, *participant.TeamID, reward, "race_"+race.Slug); err != nil {
			return err
		}

		sub.Status = models.SubmissionStatusApproved
		sub.Placement = &placement
		sub.RaceElapsedMs = &elapsedMs
		sub.Reward = reward
		sub.ReviewerID = &reviewerID
		sub.ReviewedAt = &now

		if err := s.Feed.Publish(tx, "submission", sub.ID, "race_placement_assigned", sub); err != nil {
			return err
		}

		out = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🏁 race entry %s approved: placement %d", submissionID, *out.Placement)
	return out, nil
}

// RejectEntry is terminal: no credit, no placement allocated.
func (s *RaceService) RejectEntry(reviewerID, submissionID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submissionID, models.SubmissionStatusPending).
			Updates(map[string]interface{}{
				"status":      models.SubmissionStatusRejected,
				"reviewer_id": reviewerID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}
		return s.Feed.Publish(tx, "submission", submissionID, "rejected",
			map[string]string{"submission_id": submissionID})
	})
}

// Standings lists a race's approved submissions in placement order.
func (s *RaceService) Standings(raceID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.DB.Where("mission_id = ? AND status = ?", raceID, models.SubmissionStatusApproved).
		Order("placement ASC").
		Find(&subs).Error
	return subs, err
}

// loadRace row-locks the race so concurrent entry submits and approvals
// for the same race serialize on it.
func (s *RaceService) loadRace(tx *gorm.DB, raceID string) (*models.Mission, error) {
	var m models.Mission
	if err := lockForUpdate(tx).First(&m, "id = ?", raceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: race %s", ErrNotFound, raceID)
		}
		return nil, err
	}
	if !m.IsRace {
		return nil, ErrNotARace
	}
	return &m, nil
}

func (s *RaceService) raceStateRejection(tx *gorm.DB, raceID string, wantActive bool) error {
	race, err := s.loadRace(tx, raceID)
	if err != nil {
		return err
	}
	if wantActive && !race.RaceActive {
		return ErrRaceNotStarted
	}
	return fmt.Errorf("%w: race already %s", ErrInvalidInput, map[bool]string{true: "active", false: "inactive"}[race.RaceActive])
}
