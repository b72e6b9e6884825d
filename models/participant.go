package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant is a local snapshot of an event attendee.
// Identity (who they are, how they logged in) lives in the auth layer;
// we only carry what the ledger needs.
type Participant struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	DisplayName string  `gorm:"index;not null" json:"display_name"`
	TeamID      *string `gorm:"index" json:"team_id,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`

	// Cumulative XP. Written only through LedgerStore.CreditParticipant —
	// never assigned directly, never decremented.
	XP    int64 `json:"xp" gorm:"default:0"`
	Level int   `json:"level" gorm:"default:1"`
	Rank  int   `json:"rank" gorm:"default:1"` // Bronze(1)→Silver(2)→Gold(3)→Platinum(4)→Diamond(5)

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate fills the id when the DB default is unavailable.
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Team aggregates member XP plus team-scoped contest points (races,
// auctions, challenges). Same rule as Participant.XP: credit-only.
type Team struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	ColorHex    string `gorm:"size:7" json:"color_hex"`
	XP          int64  `json:"xp" gorm:"default:0"`
	MemberCount int    `json:"member_count" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
