package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuctionStatus transitions are one-way:
// pending → active → ended | cancelled (pending may also cancel directly).
type AuctionStatus string

const (
	AuctionStatusPending   AuctionStatus = "pending"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// Auction is a contested item teams bid on. CurrentPrice is monotonically
// non-decreasing and only advances through the guarded bid path.
type Auction struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string        `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	ImageURL    string        `gorm:"type:text" json:"image_url,omitempty"`
	Status      AuctionStatus `gorm:"not null;default:'pending';index" json:"status"`

	StartingPrice int64 `json:"starting_price" gorm:"default:0"`
	MinIncrement  int64 `json:"min_increment" gorm:"default:1"`
	CurrentPrice  int64 `json:"current_price" gorm:"default:0"`

	// Points credited to the winning team on close
	PointsForWin int64 `json:"points_for_win" gorm:"default:0"`

	// Winner fields, set exactly once when status flips to ended
	WinningTeamID        *string `json:"winning_team_id,omitempty"`
	WinningParticipantID *string `json:"winning_participant_id,omitempty"`
	WinningAmount        int64   `json:"winning_amount" gorm:"default:0"`

	BidCount int `json:"bid_count" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Bid is an accepted offer. At most one bid per auction carries IsLeader.
type Bid struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	AuctionID     string `gorm:"index;not null" json:"auction_id"`
	TeamID        string `gorm:"index;not null" json:"team_id"`
	ParticipantID string `gorm:"index;not null" json:"participant_id"`
	Amount        int64  `gorm:"not null" json:"amount"`
	IsLeader      bool   `gorm:"default:false;index" json:"is_leader"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (a *Auction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
