package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngineEvent is one row of the change-notification feed: one event per
// accepted state transition, written in the same transaction as the
// transition itself. Dashboards stream these instead of polling entities.
type EngineEvent struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	EntityType string `gorm:"index;not null" json:"entity_type"` // submission | bid | auction | challenge
	EntityID   string `gorm:"index;not null" json:"entity_id"`
	Action     string `gorm:"not null" json:"action"` // e.g. approved, bid_accepted, closed, points_awarded
	Payload    string `gorm:"type:text" json:"payload"` // JSON snapshot of the transition

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// LeaderboardScope separates the two snapshot boards.
type LeaderboardScope string

const (
	LeaderboardScopeParticipant LeaderboardScope = "participant"
	LeaderboardScopeTeam        LeaderboardScope = "team"
)

// LeaderboardSnapshot is an eventually-consistent projection recomputed by
// the snapshot worker. Readers may lag the ledger; only writers need the
// strict path.
type LeaderboardSnapshot struct {
	ID         string           `gorm:"primaryKey;type:uuid" json:"id"`
	Scope      LeaderboardScope `gorm:"uniqueIndex:idx_scope_entity;not null" json:"scope"`
	EntityID   string           `gorm:"uniqueIndex:idx_scope_entity;not null" json:"entity_id"`
	Name       string           `json:"name"`
	Score      int64            `json:"score"`
	Rank       int              `gorm:"index" json:"rank"`
	ComputedAt time.Time        `json:"computed_at"`
}

func (e *EngineEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (s *LeaderboardSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
