package services

import (
	"errors"
	"fmt"
	"log"

	"event-quest-system/models"

	"gorm.io/gorm"
)

// AuctionService is the auction resolver: bid acceptance under optimistic
// concurrency plus the one-way close/cancel transitions.
type AuctionService struct {
	DB     *gorm.DB
	Ledger *LedgerStore
	Feed   *FeedService
}

func NewAuctionService(db *gorm.DB, ledger *LedgerStore, feed *FeedService) *AuctionService {
	return &AuctionService{DB: db, Ledger: ledger, Feed: feed}
}

// AuctionWinner is what Close reports back.
type AuctionWinner struct {
	TeamID        string `json:"team_id"`
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
}

// PlaceBid validates a bid against the freshest auction state and applies
// the acceptance as one atomic unit: price advance, old leader cleared,
// new leader inserted. The price advance is a conditional update keyed on
// the price the bid was validated against — when a concurrent bid commits
// first, this one observes the moved price and fails with ErrStalePrice
// instead of silently overwriting.
func (s *AuctionService) PlaceBid(auctionID, teamID, participantID string, amount int64) (*models.Bid, error) {
	if teamID == "" {
		return nil, ErrParticipantHasNoTeam
	}

	var a models.Auction
	if err := s.DB.First(&a, "id = ?", auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: auction %s", ErrNotFound, auctionID)
		}
		return nil, err
	}
	return s.placeBidAgainst(&a, teamID, participantID, amount)
}

// placeBidAgainst runs the guarded acceptance against an observed auction
// snapshot. Split out so the stale-snapshot path is exercisable directly.
func (s *AuctionService) placeBidAgainst(observed *models.Auction, teamID, participantID string, amount int64) (*models.Bid, error) {
	if observed.Status != models.AuctionStatusActive {
		return nil, ErrAuctionNotActive
	}
	if amount < observed.CurrentPrice+observed.MinIncrement {
		return nil, ErrBidTooLow
	}

	var bid *models.Bid
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Auction{}).
			Where("id = ? AND status = ? AND current_price = ?",
				observed.ID, models.AuctionStatusActive, observed.CurrentPrice).
			Updates(map[string]interface{}{
				"current_price": amount,
				"bid_count":     gorm.Expr("bid_count + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race (or the auction moved out of active). Figure
			// out which so the caller gets the right signal.
			var fresh models.Auction
			if err := tx.First(&fresh, "id = ?", observed.ID).Error; err != nil {
				return err
			}
			if fresh.Status != models.AuctionStatusActive {
				return ErrAuctionNotActive
			}
			return ErrStalePrice
		}

		if err := tx.Model(&models.Bid{}).
			Where("auction_id = ? AND is_leader = ?", observed.ID, true).
			Update("is_leader", false).Error; err != nil {
			return err
		}

		bid = &models.Bid{
			AuctionID:     observed.ID,
			TeamID:        teamID,
			ParticipantID: participantID,
			Amount:        amount,
			IsLeader:      true,
		}
		if err := tx.Create(bid).Error; err != nil {
			return err
		}

		return s.Feed.Publish(tx, "bid", bid.ID, "bid_accepted", bid)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🔨 bid accepted: auction %s now at %d (team %s)", observed.ID, amount, teamID)
	return bid, nil
}

// Activate moves a pending auction to active. One-way.
func (s *AuctionService) Activate(auctionID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Auction{}).
			Where("id = ? AND status = ?", auctionID, models.AuctionStatusPending).
			Update("status", models.AuctionStatusActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionRejection(tx, auctionID)
		}
		return s.Feed.Publish(tx, "auction", auctionID, "activated", auctionRef(auctionID))
	})
}

// Close ends an active auction: copies the leader bid into the winner
// fields and credits the winning team its points, exactly once. The
// active→ended flip is conditional on status and on the observed price,
// so a second Close call is rejected before it can credit again, and a
// close racing a winning bid fails with ErrStalePrice instead of
// crowning the superseded leader.
func (s *AuctionService) Close(auctionID string) (*AuctionWinner, error) {
	var a models.Auction
	if err := s.DB.First(&a, "id = ?", auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: auction %s", ErrNotFound, auctionID)
		}
		return nil, err
	}
	return s.closeAgainst(&a)
}

// closeAgainst runs the guarded close against an observed auction
// snapshot. Split out so the stale-observation path is exercisable
// directly.
func (s *AuctionService) closeAgainst(observed *models.Auction) (*AuctionWinner, error) {
	auctionID := observed.ID
	var winner *AuctionWinner
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var leader models.Bid
		if err := tx.Where("auction_id = ? AND is_leader = ?", auctionID, true).
			First(&leader).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if observed.Status != models.AuctionStatusActive {
					return s.transitionRejection(tx, auctionID)
				}
				return ErrNoLeaderBid
			}
			return err
		}

		// Flip is conditional on the price observed alongside the leader
		// read. A bid that wins the price CAS in between makes this fail,
		// so a superseded leader is never copied into the winner fields.
		res := tx.Model(&models.Auction{}).
			Where("id = ? AND status = ? AND current_price = ?",
				auctionID, models.AuctionStatusActive, observed.CurrentPrice).
			Updates(map[string]interface{}{
				"status":                 models.AuctionStatusEnded,
				"winning_team_id":        leader.TeamID,
				"winning_participant_id": leader.ParticipantID,
				"winning_amount":         leader.Amount,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var cur models.Auction
			if err := tx.First(&cur, "id = ?", auctionID).Error; err != nil {
				return err
			}
			if cur.Status == models.AuctionStatusEnded {
				return ErrAlreadyClosed
			}
			if cur.Status != models.AuctionStatusActive {
				return ErrAuctionNotActive
			}
			// Still active but the price moved: a newer bid leads now.
			// The caller retries and closes against the new leader.
			return ErrStalePrice
		}

		if err := s.Ledger.CreditTeam(tx, leader.TeamID, observed.PointsForWin, "auction_"+observed.Slug); err != nil {
			return err
		}

		winner = &AuctionWinner{
			TeamID:        leader.TeamID,
			ParticipantID: leader.ParticipantID,
			Amount:        leader.Amount,
		}
		return s.Feed.Publish(tx, "auction", auctionID, "closed", winner)
	})
	if err != nil {
		return nil, err
	}
	return winner, nil
}

// Cancel is permitted from pending or active; no credit is issued.
func (s *AuctionService) Cancel(auctionID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Auction{}).
			Where("id = ? AND status IN ?", auctionID,
				[]models.AuctionStatus{models.AuctionStatusPending, models.AuctionStatusActive}).
			Update("status", models.AuctionStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionRejection(tx, auctionID)
		}
		return s.Feed.Publish(tx, "auction", auctionID, "cancelled", auctionRef(auctionID))
	})
}

// transitionRejection maps a failed conditional status flip to the right
// rejection: ended auctions are the idempotency-guard case.
func (s *AuctionService) transitionRejection(tx *gorm.DB, auctionID string) error {
	var a models.Auction
	if err := tx.First(&a, "id = ?", auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: auction %s", ErrNotFound, auctionID)
		}
		return err
	}
	if a.Status == models.AuctionStatusEnded {
		return ErrAlreadyClosed
	}
	return ErrAuctionNotActive
}

func auctionRef(auctionID string) map[string]string {
	return map[string]string{"auction_id": auctionID}
}
