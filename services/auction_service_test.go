package services

import (
	"errors"
	"testing"

	"event-quest-system/models"

	"github.com/google/uuid"
)

func newAuctionFixture(t *testing.T) (*AuctionService, *models.Team, *models.Participant) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedgerStore(db)
	feed := NewFeedService(db)
	svc := NewAuctionService(db, ledger, feed)
	team := seedTeam(t, db, "blue")
	p := seedParticipant(t, db, "bidder", &team.ID)
	return svc, team, p
}

func seedAuction(t *testing.T, svc *AuctionService, a *models.Auction) *models.Auction {
	t.Helper()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Slug == "" {
		a.Slug = "a-" + a.ID[:8]
	}
	if a.Status == "" {
		a.Status = models.AuctionStatusActive
	}
	if a.CurrentPrice == 0 {
		a.CurrentPrice = a.StartingPrice
	}
	if err := svc.DB.Create(a).Error; err != nil {
		t.Fatalf("seed auction: %v", err)
	}
	return a
}

func TestPlaceBidMinIncrement(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		StartingPrice: 100,
		MinIncrement:  10,
	})

	// 105 < 100+10: rejected.
	_, err := svc.PlaceBid(a.ID, team.ID, p.ID, 105)
	if !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("err = %v, want ErrBidTooLow", err)
	}

	bid, err := svc.PlaceBid(a.ID, team.ID, p.ID, 110)
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if !bid.IsLeader {
		t.Fatal("accepted bid should lead")
	}

	var fresh models.Auction
	if err := svc.DB.First(&fresh, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.CurrentPrice != 110 {
		t.Fatalf("current_price = %d, want 110", fresh.CurrentPrice)
	}
	if fresh.BidCount != 1 {
		t.Fatalf("bid_count = %d, want 1", fresh.BidCount)
	}
}

func TestPlaceBidStalePrice(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		StartingPrice: 100,
		MinIncrement:  10,
	})

	// Snapshot the auction as a slow client would see it.
	var observed models.Auction
	if err := svc.DB.First(&observed, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Another team's bid lands first and moves the price to 110.
	other := seedTeam(t, svc.DB, "green")
	rival := seedParticipant(t, svc.DB, "rival", &other.ID)
	if _, err := svc.PlaceBid(a.ID, other.ID, rival.ID, 110); err != nil {
		t.Fatalf("rival bid: %v", err)
	}

	// The slow client bids 120 against the stale price of 100.
	_, err := svc.placeBidAgainst(&observed, team.ID, p.ID, 120)
	if !errors.Is(err, ErrStalePrice) {
		t.Fatalf("err = %v, want ErrStalePrice", err)
	}

	// The rival bid is untouched and still leads.
	var leader models.Bid
	if err := svc.DB.Where("auction_id = ? AND is_leader = ?", a.ID, true).First(&leader).Error; err != nil {
		t.Fatalf("leader: %v", err)
	}
	if leader.TeamID != other.ID || leader.Amount != 110 {
		t.Fatalf("leader = team %s at %d, want team %s at 110", leader.TeamID, leader.Amount, other.ID)
	}

	// A fresh read and retry succeeds.
	if _, err := svc.PlaceBid(a.ID, team.ID, p.ID, 120); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestPlaceBidSingleLeader(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		StartingPrice: 0,
		MinIncrement:  5,
	})

	other := seedTeam(t, svc.DB, "green")
	rival := seedParticipant(t, svc.DB, "rival", &other.ID)

	if _, err := svc.PlaceBid(a.ID, team.ID, p.ID, 5); err != nil {
		t.Fatalf("bid 1: %v", err)
	}
	if _, err := svc.PlaceBid(a.ID, other.ID, rival.ID, 10); err != nil {
		t.Fatalf("bid 2: %v", err)
	}
	if _, err := svc.PlaceBid(a.ID, team.ID, p.ID, 15); err != nil {
		t.Fatalf("bid 3: %v", err)
	}

	var leaders int64
	svc.DB.Model(&models.Bid{}).Where("auction_id = ? AND is_leader = ?", a.ID, true).Count(&leaders)
	if leaders != 1 {
		t.Fatalf("leaders = %d, want 1", leaders)
	}
	var leader models.Bid
	svc.DB.Where("auction_id = ? AND is_leader = ?", a.ID, true).First(&leader)
	if leader.Amount != 15 {
		t.Fatalf("leader amount = %d, want 15", leader.Amount)
	}
}

func TestPlaceBidRequiresTeam(t *testing.T) {
	svc, _, _ := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{MinIncrement: 1})

	loner := seedParticipant(t, svc.DB, "loner", nil)
	_, err := svc.PlaceBid(a.ID, "", loner.ID, 10)
	if !errors.Is(err, ErrParticipantHasNoTeam) {
		t.Fatalf("err = %v, want ErrParticipantHasNoTeam", err)
	}
}

func TestPlaceBidInactiveAuction(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		Status:       models.AuctionStatusPending,
		MinIncrement: 1,
	})

	_, err := svc.PlaceBid(a.ID, team.ID, p.ID, 10)
	if !errors.Is(err, ErrAuctionNotActive) {
		t.Fatalf("err = %v, want ErrAuctionNotActive", err)
	}
}

func TestCloseCreditsWinnerExactlyOnce(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		StartingPrice: 100,
		MinIncrement:  10,
		PointsForWin:  500,
	})

	if _, err := svc.PlaceBid(a.ID, team.ID, p.ID, 110); err != nil {
		t.Fatalf("bid: %v", err)
	}

	winner, err := svc.Close(a.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if winner.TeamID != team.ID || winner.Amount != 110 {
		t.Fatalf("winner = %+v", winner)
	}
	if got := teamXP(t, svc.DB, team.ID); got != 500 {
		t.Fatalf("team xp = %d, want 500", got)
	}

	var fresh models.Auction
	svc.DB.First(&fresh, "id = ?", a.ID)
	if fresh.Status != models.AuctionStatusEnded {
		t.Fatalf("status = %s, want ended", fresh.Status)
	}
	if fresh.WinningTeamID == nil || *fresh.WinningTeamID != team.ID {
		t.Fatalf("winning_team_id = %v, want %s", fresh.WinningTeamID, team.ID)
	}

	// The idempotency guard: closing again must not credit again.
	_, err = svc.Close(a.ID)
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second close err = %v, want ErrAlreadyClosed", err)
	}
	if got := teamXP(t, svc.DB, team.ID); got != 500 {
		t.Fatalf("team xp = %d after second close, want 500", got)
	}

	// So must bidding on an ended auction.
	_, err = svc.PlaceBid(a.ID, team.ID, p.ID, 200)
	if !errors.Is(err, ErrAuctionNotActive) {
		t.Fatalf("post-close bid err = %v, want ErrAuctionNotActive", err)
	}
}

func TestCloseWithoutBids(t *testing.T) {
	svc, _, _ := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{MinIncrement: 1})

	_, err := svc.Close(a.ID)
	if !errors.Is(err, ErrNoLeaderBid) {
		t.Fatalf("err = %v, want ErrNoLeaderBid", err)
	}
}

func TestActivateAndCancelTransitions(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		Status:       models.AuctionStatusPending,
		MinIncrement: 1,
	})

	if err := svc.Activate(a.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	// Activating twice is rejected, the auction is no longer pending.
	if err := svc.Activate(a.ID); !errors.Is(err, ErrAuctionNotActive) {
		t.Fatalf("second activate err = %v, want ErrAuctionNotActive", err)
	}

	if _, err := svc.PlaceBid(a.ID, team.ID, p.ID, 10); err != nil {
		t.Fatalf("bid: %v", err)
	}

	if err := svc.Cancel(a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// No credit on cancel, even with a standing leader bid.
	if got := teamXP(t, svc.DB, team.ID); got != 0 {
		t.Fatalf("team xp = %d after cancel, want 0", got)
	}
	if err := svc.Cancel(a.ID); !errors.Is(err, ErrAuctionNotActive) {
		t.Fatalf("second cancel err = %v, want ErrAuctionNotActive", err)
	}
}

func TestCloseAgainstSupersededLeader(t *testing.T) {
	svc, team, p := newAuctionFixture(t)
	a := seedAuction(t, svc, &models.Auction{
		StartingPrice: 100,
		MinIncrement:  10,
		PointsForWin:  500,
	})

	if _, err := svc.PlaceBid(a.ID, team.ID, p.ID, 110); err != nil {
		t.Fatalf("bid: %v", err)
	}

	// Snapshot at 110, then a rival bid wins the price advance before
	// the close commits.
	var observed models.Auction
	if err := svc.DB.First(&observed, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	rival := seedTeam(t, svc.DB, "crimson")
	rivalBidder := seedParticipant(t, svc.DB, "rival", &rival.ID)
	if _, err := svc.PlaceBid(a.ID, rival.ID, rivalBidder.ID, 120); err != nil {
		t.Fatalf("rival bid: %v", err)
	}

	if _, err := svc.closeAgainst(&observed); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("close err = %v, want ErrStalePrice", err)
	}

	// Nothing was resolved or credited on the failed close.
	var fresh models.Auction
	if err := svc.DB.First(&fresh, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.Status != models.AuctionStatusActive {
		t.Fatalf("status = %s, want active", fresh.Status)
	}
	if got := teamXP(t, svc.DB, team.ID); got != 0 {
		t.Fatalf("superseded team xp = %d, want 0", got)
	}

	// A close against the current state crowns the rival.
	winner, err := svc.Close(a.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if winner.TeamID != rival.ID || winner.Amount != 120 {
		t.Fatalf("winner = %+v, want rival at 120", winner)
	}
	if got := teamXP(t, svc.DB, rival.ID); got != 500 {
		t.Fatalf("rival team xp = %d, want 500", got)
	}
}
