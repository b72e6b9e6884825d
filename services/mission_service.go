package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"event-quest-system/models"
	"event-quest-system/utils"

	"gorm.io/gorm"
)

// MissionEvidence carries the type-specific proof for one submission.
// Only the fields for the mission's type are consulted.
type MissionEvidence struct {
	Code      string  `json:"code,omitempty"`       // qr
	Lat       float64 `json:"lat,omitempty"`        // gps
	Lng       float64 `json:"lng,omitempty"`        // gps
	Answers   []int   `json:"answers,omitempty"`    // quiz: selected option index per question
	ElapsedMs int64   `json:"elapsed_ms,omitempty"` // quiz speedrun
	PhotoURL  string  `json:"photo_url,omitempty"`  // photo/manual: opaque object-store URL
}

// MissionService is the mission completion resolver: it validates a
// participant's attempt, decides auto-approval vs pending review, and
// issues the single aggregate credit on approval.
type MissionService struct {
	DB     *gorm.DB
	Ledger *LedgerStore
	Feed   *FeedService
}

func NewMissionService(db *gorm.DB, ledger *LedgerStore, feed *FeedService) *MissionService {
	return &MissionService{DB: db, Ledger: ledger, Feed: feed}
}

// Submit resolves one attempt at a mission. QR, GPS and quiz missions
// resolve immediately; photo and manual missions are created pending for a
// reviewer. All precondition failures happen before any write.
func (s *MissionService) Submit(participantID, missionID string, ev MissionEvidence) (*models.Submission, error) {
	var out *models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// The row lock serializes concurrent submits for the same mission,
		// keeping the attempt-count checks in checkPreconditions honest.
		var m models.Mission
		if err := lockForUpdate(tx).First(&m, "id = ?", missionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: mission %s", ErrNotFound, missionID)
			}
			return err
		}
		if m.IsRace {
			return fmt.Errorf("%w: race missions accept entries through the race resolver", ErrInvalidInput)
		}

		if err := s.checkPreconditions(tx, &m, participantID); err != nil {
			return err
		}

		sub := &models.Submission{
			MissionID:     m.ID,
			ParticipantID: participantID,
		}

		switch m.Type {
		case models.MissionTypeQR:
			if utils.NormalizeCode(ev.Code) != utils.NormalizeCode(m.QRValue) {
				return fmt.Errorf("%w: wrong code", ErrInvalidEvidence)
			}
			sub.Status = models.SubmissionStatusApproved
			sub.Reward = m.Reward

		case models.MissionTypeGPS:
			dist := utils.HaversineMeters(ev.Lat, ev.Lng, m.TargetLat, m.TargetLng)
			if dist > m.RadiusMeters {
				return fmt.Errorf("%w: %.0fm outside target radius", ErrInvalidEvidence, dist-m.RadiusMeters)
			}
			sub.Status = models.SubmissionStatusApproved
			sub.Reward = m.Reward

		case models.MissionTypeQuiz:
			score, perfect, err := scoreQuiz(&m, ev.Answers)
			if err != nil {
				return err
			}
			sub.QuizScore = &score
			if score >= m.PassingThreshold {
				sub.Status = models.SubmissionStatusApproved
				sub.Reward = m.Reward
				// Only a perfect speedrun enters time rankings.
				if m.QuizMode == models.QuizModeSpeedrun && perfect && ev.ElapsedMs > 0 {
					elapsed := ev.ElapsedMs
					sub.QuizElapsedMs = &elapsed
				}
			} else {
				// Terminal rejection still consumes the single lifetime attempt.
				sub.Status = models.SubmissionStatusRejected
			}

		case models.MissionTypePhoto, models.MissionTypeManual:
			sub.Status = models.SubmissionStatusPending
			sub.EvidenceURL = ev.PhotoURL

		default:
			return fmt.Errorf("%w: mission type %q", ErrInvalidInput, m.Type)
		}

		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		if sub.Status == models.SubmissionStatusApproved {
			if err := s.Ledger.CreditParticipant(tx, participantID, sub.Reward, "mission_"+m.Slug); err != nil {
				return err
			}
		}
		if sub.Status != models.SubmissionStatusPending {
			if err := s.Feed.Publish(tx, "submission", sub.ID, string(sub.Status), sub); err != nil {
				return err
			}
		}

		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkPreconditions runs every before-write rule from the mission
// contract. Order matters: status, window, one-lifetime-quiz, pending
// duplicate, completion cap.
func (s *MissionService) checkPreconditions(tx *gorm.DB, m *models.Mission, participantID string) error {
	if m.Status != models.MissionStatusActive {
		return ErrMissionInactive
	}
	now := time.Now()
	if m.StartsAt != nil && now.Before(*m.StartsAt) {
		return ErrOutsideWindow
	}
	if m.EndsAt != nil && now.After(*m.EndsAt) {
		return ErrOutsideWindow
	}

	if m.Type == models.MissionTypeQuiz {
		// One lifetime attempt, regardless of outcome.
		var any int64
		if err := tx.Model(&models.Submission{}).
			Where("mission_id = ? AND participant_id = ?", m.ID, participantID).
			Count(&any).Error; err != nil {
			return err
		}
		if any > 0 {
			return ErrAlreadyCompleted
		}
		return nil
	}

	var pending int64
	if err := tx.Model(&models.Submission{}).
		Where("mission_id = ? AND participant_id = ? AND status = ?",
			m.ID, participantID, models.SubmissionStatusPending).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending > 0 {
		return ErrAlreadyPending
	}

	var approved int64
	if err := tx.Model(&models.Submission{}).
		Where("mission_id = ? AND participant_id = ? AND status = ?",
			m.ID, participantID, models.SubmissionStatusApproved).
		Count(&approved).Error; err != nil {
		return err
	}
	max := m.EffectiveMaxCompletions()
	if int(approved) >= max {
		if max == 1 {
			return ErrAlreadyCompleted
		}
		return ErrCompletionLimitReached
	}
	return nil
}

// scoreQuiz grades the submitted answers against the question set.
// Missing or out-of-range answers count as wrong.
func scoreQuiz(m *models.Mission, answers []int) (score int, perfect bool, err error) {
	total := len(m.QuizQuestions)
	if total == 0 {
		return 0, false, fmt.Errorf("%w: quiz mission has no questions", ErrInvalidInput)
	}
	correct := 0
	for i, q := range m.QuizQuestions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			correct++
		}
	}
	score = int(math.Round(100 * float64(correct) / float64(total)))
	return score, correct == total, nil
}

// Review performs the terminal transition on a pending photo/manual
// submission. The status flip is a conditional update, so two reviewers
// racing on the same submission cannot both succeed and double-credit.
func (s *MissionService) Review(reviewerID, submissionID string, approve bool, rewardOverride *int64) (*models.Submission, error) {
	var out *models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.Preload("Mission").First(&sub, "id = ?", submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
			}
			return err
		}
		if sub.Mission.IsRace {
			return fmt.Errorf("%w: race submissions resolve through the race resolver", ErrInvalidInput)
		}

		status := models.SubmissionStatusRejected
		reward := int64(0)
		if approve {
			status = models.SubmissionStatusApproved
			reward = sub.Mission.Reward
			if rewardOverride != nil {
				if *rewardOverride < 0 {
					return fmt.Errorf("%w: negative reward override", ErrInvalidInput)
				}
				reward = *rewardOverride
			}
		}

		now := time.Now()
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submissionID, models.SubmissionStatusPending).
			Updates(map[string]interface{}{
				"status":      status,
				"reward":      reward,
				"reviewer_id": reviewerID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResolved
		}

		sub.Status = status
		sub.Reward = reward
		sub.ReviewerID = &reviewerID
		sub.ReviewedAt = &now

		if approve {
			if err := s.Ledger.CreditParticipant(tx, sub.ParticipantID, reward, "mission_"+sub.Mission.Slug); err != nil {
				return err
			}
		}
		if err := s.Feed.Publish(tx, "submission", sub.ID, string(status), sub); err != nil {
			return err
		}

		out = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PendingSubmissions lists submissions waiting on a reviewer.
func (s *MissionService) PendingSubmissions(missionID string) ([]models.Submission, error) {
	var subs []models.Submission
	query := s.DB.Where("status = ?", models.SubmissionStatusPending)
	if missionID != "" {
		query = query.Where("mission_id = ?", missionID)
	}
	err := query.Order("created_at ASC").Find(&subs).Error
	return subs, err
}

// ParticipantSubmissions returns a participant's submissions, newest first,
// optionally scoped to one mission.
func (s *MissionService) ParticipantSubmissions(participantID, missionID string) ([]models.Submission, error) {
	var subs []models.Submission
	query := s.DB.Where("participant_id = ?", participantID)
	if missionID != "" {
		query = query.Where("mission_id = ?", missionID)
	}
	err := query.Order("created_at DESC").Find(&subs).Error
	return subs, err
}
