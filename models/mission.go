package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MissionType drives how a submission is resolved
type MissionType string

const (
	MissionTypePhoto  MissionType = "photo"
	MissionTypeQR     MissionType = "qr"
	MissionTypeQuiz   MissionType = "quiz"
	MissionTypeGPS    MissionType = "gps"
	MissionTypeManual MissionType = "manual"
)

// MissionStatus — only active missions accept submissions
type MissionStatus string

const (
	MissionStatusActive   MissionStatus = "active"
	MissionStatusInactive MissionStatus = "inactive"
)

// QuizMode selects the quiz variant. Speedrun records elapsed time,
// but only for runs where every answer is correct.
type QuizMode string

const (
	QuizModeClassic  QuizMode = "classic_timed"
	QuizModeSpeedrun QuizMode = "speedrun"
)

// Mission is an admin-managed activity definition. Type-specific payload
// fields are only meaningful for their own type and ignored otherwise.
type Mission struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string        `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Type        MissionType   `gorm:"not null;index" json:"type"`
	Status      MissionStatus `gorm:"not null;default:'inactive'" json:"status"`
	Reward      int64         `json:"reward" gorm:"default:0"`

	// Optional submission window. Nil means unbounded on that side.
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	// Per-participant approved-completion cap. 0 is treated as the default of 1.
	MaxCompletions int `json:"max_completions" gorm:"default:1"`

	// QR payload
	QRValue string `json:"-" gorm:"column:qr_value"`

	// GPS payload
	TargetLat    float64 `json:"target_lat"`
	TargetLng    float64 `json:"target_lng"`
	RadiusMeters float64 `json:"radius_meters"`

	// Quiz payload
	QuizQuestions    QuizQuestionList `gorm:"type:text" json:"quiz_questions,omitempty"`
	PassingThreshold int              `json:"passing_threshold"` // percent, 0–100
	QuizMode         QuizMode         `json:"quiz_mode,omitempty"`

	// Race extension: a race is a mission with IsRace set. RaceActive and
	// RaceStartedAt are flipped by explicit admin start/stop, never by clock.
	IsRace        bool       `json:"is_race" gorm:"default:false"`
	RaceActive    bool       `json:"race_active" gorm:"default:false"`
	RaceStartedAt *time.Time `json:"race_started_at,omitempty"`
	RacePoints    Int64List  `gorm:"type:text" json:"race_points,omitempty"` // index 0 = placement 1

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EffectiveMaxCompletions normalizes the cap (0 → 1).
func (m *Mission) EffectiveMaxCompletions() int {
	if m.MaxCompletions <= 0 {
		return 1
	}
	return m.MaxCompletions
}

// SubmissionStatus transitions once: pending → approved | rejected.
// Auto-resolved types (qr, gps, quiz) are created already terminal.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Submission is a participant's attempt at a mission. Append-mostly:
// after creation only the terminal transition mutates it.
type Submission struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID     string           `gorm:"index:idx_mission_participant;not null" json:"mission_id"`
	ParticipantID string           `gorm:"index:idx_mission_participant;not null" json:"participant_id"`
	Status        SubmissionStatus `gorm:"not null;default:'pending';index" json:"status"`

	// Reward actually credited. Stays 0 until the submission resolves approved.
	Reward int64 `json:"reward" gorm:"default:0"`

	// Opaque evidence reference (photo URL in the object store). Never inspected.
	EvidenceURL string `json:"evidence_url,omitempty" gorm:"type:text"`

	// Quiz outcome
	QuizScore     *int   `json:"quiz_score,omitempty"`
	QuizElapsedMs *int64 `json:"quiz_elapsed_ms,omitempty"`

	// Race outcome
	Placement     *int   `json:"placement,omitempty"`
	RaceElapsedMs *int64 `json:"race_elapsed_ms,omitempty"`

	// Set when a reviewer resolved a pending submission
	ReviewerID *string    `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Mission Mission `json:"mission,omitempty" gorm:"foreignKey:MissionID"`
}

// RaceCounter backs the atomic placement sequence, one row per race.
// LastPlacement is only ever advanced with an atomic increment.
type RaceCounter struct {
	RaceID        string `gorm:"primaryKey;type:uuid" json:"race_id"`
	LastPlacement int    `json:"last_placement" gorm:"default:0"`
}

func (m *Mission) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
