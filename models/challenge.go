package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeType string

const (
	ChallengeTypeTeamTimed       ChallengeType = "team_timed"
	ChallengeTypeIndividualTimed ChallengeType = "individual_timed"
	ChallengeTypeTeamTask        ChallengeType = "team_task"
	ChallengeTypeIndividualTask  ChallengeType = "individual_task"
)

// IsTimed reports whether placements order by elapsed time (ascending)
// rather than raw score (descending).
func (t ChallengeType) IsTimed() bool {
	return t == ChallengeTypeTeamTimed || t == ChallengeTypeIndividualTimed
}

// IsIndividual reports whether results attach to a single participant.
func (t ChallengeType) IsIndividual() bool {
	return t == ChallengeTypeIndividualTimed || t == ChallengeTypeIndividualTask
}

type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusScoring   ChallengeStatus = "scoring"
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// PointsMode selects how computed placements translate into points.
type PointsMode string

const (
	PointsModePlacementTable PointsMode = "placement_table"
	PointsModeTopN           PointsMode = "top_n_only"
	PointsModeFixed          PointsMode = "fixed_amount"
)

// Challenge is a scored team contest. Points are awarded to teams at most
// once, guarded by the scoring→completed status flip.
type Challenge struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Type        ChallengeType   `gorm:"not null" json:"type"`
	Status      ChallengeStatus `gorm:"not null;default:'pending';index" json:"status"`

	PointsMode  PointsMode `gorm:"not null;default:'placement_table'" json:"points_mode"`
	PointsTable Int64List  `gorm:"type:text" json:"points_table,omitempty"` // index 0 = placement 1
	FixedAmount int64      `json:"fixed_amount" gorm:"default:0"`
	TopN        int        `json:"top_n" gorm:"default:0"`

	// Max result entries per team in individual modes. 0 = unbounded.
	ParticipantCap int `json:"participant_cap" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChallengeResult is one team's (or one participant's) scored entry.
// Placement and Points are derived by ComputePlacements; everything else
// is fixed at entry time.
type ChallengeResult struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengeID   string  `gorm:"index;not null" json:"challenge_id"`
	TeamID        string  `gorm:"index;not null" json:"team_id"`
	ParticipantID *string `gorm:"index" json:"participant_id,omitempty"`

	ElapsedMs *int64 `json:"elapsed_ms,omitempty"`
	RawScore  *int64 `json:"raw_score,omitempty"`

	Placement *int  `json:"placement,omitempty"`
	Points    int64 `json:"points" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Completed reports whether the entry carries a usable measurement.
// Entries without one never receive fixed-amount points.
func (r *ChallengeResult) Completed() bool {
	return r.ElapsedMs != nil || r.RawScore != nil
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (r *ChallengeResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
