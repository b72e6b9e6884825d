package services

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"event-quest-system/models"

	"gorm.io/gorm"
)

// ChallengeService is the challenge scoring resolver: result intake,
// placement computation under the three points modes, and the one-time
// team point award.
type ChallengeService struct {
	DB     *gorm.DB
	Ledger *LedgerStore
	Feed   *FeedService
}

func NewChallengeService(db *gorm.DB, ledger *LedgerStore, feed *FeedService) *ChallengeService {
	return &ChallengeService{DB: db, Ledger: ledger, Feed: feed}
}

// ResultEntry is the intake payload for one team/participant result.
type ResultEntry struct {
	TeamID        string  `json:"team_id"`
	ParticipantID *string `json:"participant_id,omitempty"`
	ElapsedMs     *int64  `json:"elapsed_ms,omitempty"`
	RawScore      *int64  `json:"raw_score,omitempty"`
}

// AddResult records one entry while the challenge is active or scoring.
// Individual modes require a participant and honor the per-team cap.
func (s *ChallengeService) AddResult(challengeID string, entry ResultEntry) (*models.ChallengeResult, error) {
	if entry.TeamID == "" {
		return nil, fmt.Errorf("%w: team_id required", ErrInvalidInput)
	}

	var out *models.ChallengeResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		ch, err := s.loadChallenge(tx, challengeID)
		if err != nil {
			return err
		}
		if ch.Status != models.ChallengeStatusActive && ch.Status != models.ChallengeStatusScoring {
			if ch.Status == models.ChallengeStatusCompleted {
				return ErrChallengeAlreadyCompleted
			}
			return ErrChallengeNotOpen
		}

		if ch.Type.IsIndividual() {
			if entry.ParticipantID == nil {
				return fmt.Errorf("%w: participant_id required for individual challenges", ErrInvalidInput)
			}
			if ch.ParticipantCap > 0 {
				var teamEntries int64
				if err := tx.Model(&models.ChallengeResult{}).
					Where("challenge_id = ? AND team_id = ?", challengeID, entry.TeamID).
					Count(&teamEntries).Error; err != nil {
					return err
				}
				if int(teamEntries) >= ch.ParticipantCap {
					return ErrParticipantCapExceeded
				}
			}
		}

		result := &models.ChallengeResult{
			ChallengeID:   challengeID,
			TeamID:        entry.TeamID,
			ParticipantID: entry.ParticipantID,
			ElapsedMs:     entry.ElapsedMs,
			RawScore:      entry.RawScore,
		}
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ComputePlacements orders all results — elapsed time ascending for timed
// challenges, raw score descending for task challenges — assigns 1-based
// placements (ties broken by insertion order) and derives each result's
// points for the challenge's mode. Safe to re-run any number of times
// before points are awarded; forbidden after.
func (s *ChallengeService) ComputePlacements(challengeID string) ([]models.ChallengeResult, error) {
	var out []models.ChallengeResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		ch, err := s.loadChallenge(tx, challengeID)
		if err != nil {
			return err
		}
		if ch.Status == models.ChallengeStatusCompleted {
			return ErrChallengeAlreadyCompleted
		}
		results, err := s.computePlacementsTx(tx, ch)
		if err != nil {
			return err
		}
		out = results
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChallengeService) computePlacementsTx(tx *gorm.DB, ch *models.Challenge) ([]models.ChallengeResult, error) {
	var results []models.ChallengeResult
	if err := tx.Where("challenge_id = ?", ch.ID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResultsToScore
	}

	// Entries without a measurement sort last and never score.
	measure := func(r *models.ChallengeResult) (int64, bool) {
		if ch.Type.IsTimed() {
			if r.ElapsedMs == nil {
				return 0, false
			}
			return *r.ElapsedMs, true
		}
		if r.RawScore == nil {
			return 0, false
		}
		return *r.RawScore, true
	}

	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, oka := measure(&results[idx[a]])
		vb, okb := measure(&results[idx[b]])
		if oka != okb {
			return oka // measured entries first
		}
		if !oka {
			return false
		}
		if va == vb {
			return false // stable sort keeps insertion order on ties
		}
		if ch.Type.IsTimed() {
			return va < vb // fastest first
		}
		return va > vb // highest score first
	})

	for rankPos, i := range idx {
		r := &results[i]
		placement := rankPos + 1
		r.Placement = &placement
		r.Points = pointsFor(ch, r, placement)
		if err := tx.Model(&models.ChallengeResult{}).
			Where("id = ?", r.ID).
			Updates(map[string]interface{}{
				"placement": placement,
				"points":    r.Points,
			}).Error; err != nil {
			return nil, err
		}
	}

	sort.Slice(results, func(a, b int) bool { return *results[a].Placement < *results[b].Placement })
	return results, nil
}

// pointsFor resolves one result's points under the challenge's mode.
func pointsFor(ch *models.Challenge, r *models.ChallengeResult, placement int) int64 {
	switch ch.PointsMode {
	case models.PointsModeFixed:
		// Placement is cosmetic; every completed entry gets the flat amount.
		if r.Completed() {
			return ch.FixedAmount
		}
		return 0
	case models.PointsModeTopN:
		if !r.Completed() || ch.TopN <= 0 || placement > ch.TopN {
			return 0
		}
		return placementReward(ch.PointsTable, placement)
	default: // placement table
		if !r.Completed() {
			return 0
		}
		return placementReward(ch.PointsTable, placement)
	}
}

// AwardPoints sums each team's result points and credits every team
// exactly once, then advances the challenge to completed. The status flip
// is a conditional update and the sole guard against double-crediting:
// a re-invocation (or a concurrent award) finds the challenge already
// completed and is rejected without touching any total.
func (s *ChallengeService) AwardPoints(challengeID string) (map[string]int64, error) {
	totals := map[string]int64{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		ch, err := s.loadChallenge(tx, challengeID)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Challenge{}).
			Where("id = ? AND status <> ?", challengeID, models.ChallengeStatusCompleted).
			Update("status", models.ChallengeStatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrChallengeAlreadyCompleted
		}

		// Placements (and per-result points) are recomputed here so the
		// award always works off the final result set. Recomputation is
		// idempotent; this is its last legal run.
		results, err := s.computePlacementsTx(tx, ch)
		if err != nil {
			return err
		}

		for _, r := range results {
			totals[r.TeamID] += r.Points
		}

		for teamID, sum := range totals {
			if err := s.Ledger.CreditTeam(tx, teamID, sum, "challenge_"+ch.ID); err != nil {
				return err
			}
		}

		return s.Feed.Publish(tx, "challenge", challengeID, "points_awarded", totals)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🏆 challenge %s awarded to %d team(s)", challengeID, len(totals))
	return totals, nil
}

// Results returns the challenge's entries in placement order when
// computed, insertion order otherwise.
func (s *ChallengeService) Results(challengeID string) ([]models.ChallengeResult, error) {
	var results []models.ChallengeResult
	err := s.DB.Where("challenge_id = ?", challengeID).
		Order("placement ASC NULLS LAST, created_at ASC").
		Find(&results).Error
	return results, err
}

func (s *ChallengeService) loadChallenge(tx *gorm.DB, challengeID string) (*models.Challenge, error) {
	var ch models.Challenge
	if err := tx.First(&ch, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: challenge %s", ErrNotFound, challengeID)
		}
		return nil, err
	}
	return &ch, nil
}
