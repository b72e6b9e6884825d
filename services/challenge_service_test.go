package services

import (
	"errors"
	"testing"

	"event-quest-system/models"

	"github.com/google/uuid"
)

func newChallengeFixture(t *testing.T) *ChallengeService {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedgerStore(db)
	feed := NewFeedService(db)
	return NewChallengeService(db, ledger, feed)
}

func seedChallenge(t *testing.T, svc *ChallengeService, ch *models.Challenge) *models.Challenge {
	t.Helper()
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.Title == "" {
		ch.Title = "ch-" + ch.ID[:8]
	}
	if ch.Status == "" {
		ch.Status = models.ChallengeStatusActive
	}
	if err := svc.DB.Create(ch).Error; err != nil {
		t.Fatalf("seed challenge: %v", err)
	}
	return ch
}

func int64p(v int64) *int64 { return &v }

func TestTimedChallengePlacementTable(t *testing.T) {
	svc := newChallengeFixture(t)
	red := seedTeam(t, svc.DB, "red")
	green := seedTeam(t, svc.DB, "green")
	blue := seedTeam(t, svc.DB, "blue")

	ch := seedChallenge(t, svc, &models.Challenge{
		Type:        models.ChallengeTypeTeamTimed,
		PointsMode:  models.PointsModePlacementTable,
		PointsTable: models.Int64List{100, 60, 30},
	})

	for _, entry := range []ResultEntry{
		{TeamID: red.ID, ElapsedMs: int64p(9200)},
		{TeamID: green.ID, ElapsedMs: int64p(8100)},
		{TeamID: blue.ID, ElapsedMs: int64p(10400)},
	} {
		if _, err := svc.AddResult(ch.ID, entry); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}

	results, err := svc.ComputePlacements(ch.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// Fastest first.
	wantOrder := []string{green.ID, red.ID, blue.ID}
	wantPoints := []int64{100, 60, 30}
	for i, r := range results {
		if r.TeamID != wantOrder[i] {
			t.Fatalf("placement %d team = %s, want %s", i+1, r.TeamID, wantOrder[i])
		}
		if r.Points != wantPoints[i] {
			t.Fatalf("placement %d points = %d, want %d", i+1, r.Points, wantPoints[i])
		}
	}

	credited, err := svc.AwardPoints(ch.ID)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if credited[green.ID] != 100 || credited[red.ID] != 60 || credited[blue.ID] != 30 {
		t.Fatalf("credited = %v", credited)
	}
	if got := teamXP(t, svc.DB, green.ID); got != 100 {
		t.Fatalf("green xp = %d, want 100", got)
	}
}

func TestTaskChallengeScoresDescendingWithTies(t *testing.T) {
	svc := newChallengeFixture(t)
	red := seedTeam(t, svc.DB, "red")
	green := seedTeam(t, svc.DB, "green")
	blue := seedTeam(t, svc.DB, "blue")

	ch := seedChallenge(t, svc, &models.Challenge{
		Type:        models.ChallengeTypeTeamTask,
		PointsMode:  models.PointsModePlacementTable,
		PointsTable: models.Int64List{50, 40, 20},
	})

	// red and green tie on 30; red was entered first, so red places ahead.
	for _, entry := range []ResultEntry{
		{TeamID: red.ID, RawScore: int64p(30)},
		{TeamID: green.ID, RawScore: int64p(30)},
		{TeamID: blue.ID, RawScore: int64p(45)},
	} {
		if _, err := svc.AddResult(ch.ID, entry); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}

	results, err := svc.ComputePlacements(ch.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	wantOrder := []string{blue.ID, red.ID, green.ID}
	for i, r := range results {
		if r.TeamID != wantOrder[i] {
			t.Fatalf("placement %d team = %s, want %s", i+1, r.TeamID, wantOrder[i])
		}
	}

	// Recomputing is idempotent before the award.
	again, err := svc.ComputePlacements(ch.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	for i := range again {
		if again[i].TeamID != results[i].TeamID || *again[i].Placement != *results[i].Placement {
			t.Fatalf("recompute changed placements at %d", i)
		}
	}
}

func TestFixedAmountAwardOnce(t *testing.T) {
	svc := newChallengeFixture(t)
	red := seedTeam(t, svc.DB, "red")
	green := seedTeam(t, svc.DB, "green")

	ch := seedChallenge(t, svc, &models.Challenge{
		Type:        models.ChallengeTypeTeamTask,
		PointsMode:  models.PointsModeFixed,
		FixedAmount: 25,
	})

	for _, entry := range []ResultEntry{
		{TeamID: red.ID, RawScore: int64p(3)},
		{TeamID: green.ID, RawScore: int64p(7)},
	} {
		if _, err := svc.AddResult(ch.ID, entry); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}

	// Award without a prior explicit compute: placements are derived
	// inside the award transaction.
	credited, err := svc.AwardPoints(ch.ID)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if credited[red.ID] != 25 || credited[green.ID] != 25 {
		t.Fatalf("credited = %v, want 25 each", credited)
	}
	if got := teamXP(t, svc.DB, red.ID); got != 25 {
		t.Fatalf("red xp = %d, want 25", got)
	}

	// Second award is rejected and credits nothing.
	_, err = svc.AwardPoints(ch.ID)
	if !errors.Is(err, ErrChallengeAlreadyCompleted) {
		t.Fatalf("second award err = %v, want ErrChallengeAlreadyCompleted", err)
	}
	if got := teamXP(t, svc.DB, red.ID); got != 25 {
		t.Fatalf("red xp = %d after second award, want 25", got)
	}

	// No recompute and no new results after completion.
	if _, err := svc.ComputePlacements(ch.ID); !errors.Is(err, ErrChallengeAlreadyCompleted) {
		t.Fatalf("compute err = %v, want ErrChallengeAlreadyCompleted", err)
	}
	if _, err := svc.AddResult(ch.ID, ResultEntry{TeamID: red.ID, RawScore: int64p(9)}); !errors.Is(err, ErrChallengeAlreadyCompleted) {
		t.Fatalf("add err = %v, want ErrChallengeAlreadyCompleted", err)
	}
}

func TestTopNOnlyMode(t *testing.T) {
	svc := newChallengeFixture(t)
	teams := make([]*models.Team, 4)
	for i, name := range []string{"t1", "t2", "t3", "t4"} {
		teams[i] = seedTeam(t, svc.DB, name)
	}

	ch := seedChallenge(t, svc, &models.Challenge{
		Type:        models.ChallengeTypeTeamTimed,
		PointsMode:  models.PointsModeTopN,
		PointsTable: models.Int64List{100, 60, 30},
		TopN:        2,
	})

	times := []int64{5000, 6000, 7000, 8000}
	for i, team := range teams {
		if _, err := svc.AddResult(ch.ID, ResultEntry{TeamID: team.ID, ElapsedMs: int64p(times[i])}); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}

	credited, err := svc.AwardPoints(ch.ID)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if credited[teams[0].ID] != 100 || credited[teams[1].ID] != 60 {
		t.Fatalf("top teams credited = %v", credited)
	}
	// Placements 3 and 4 are outside TopN and earn nothing.
	if credited[teams[2].ID] != 0 || credited[teams[3].ID] != 0 {
		t.Fatalf("outside-TopN teams credited = %v, want 0", credited)
	}
	if got := teamXP(t, svc.DB, teams[2].ID); got != 0 {
		t.Fatalf("t3 xp = %d, want 0", got)
	}
}

func TestIndividualChallengeCap(t *testing.T) {
	svc := newChallengeFixture(t)
	red := seedTeam(t, svc.DB, "red")
	a := seedParticipant(t, svc.DB, "a", &red.ID)
	b := seedParticipant(t, svc.DB, "b", &red.ID)
	c := seedParticipant(t, svc.DB, "c", &red.ID)

	ch := seedChallenge(t, svc, &models.Challenge{
		Type:           models.ChallengeTypeIndividualTimed,
		PointsMode:     models.PointsModePlacementTable,
		PointsTable:    models.Int64List{10},
		ParticipantCap: 2,
	})

	// participant_id is mandatory in individual modes.
	if _, err := svc.AddResult(ch.ID, ResultEntry{TeamID: red.ID, ElapsedMs: int64p(100)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing participant err = %v, want ErrInvalidInput", err)
	}

	for _, p := range []*models.Participant{a, b} {
		if _, err := svc.AddResult(ch.ID, ResultEntry{TeamID: red.ID, ParticipantID: &p.ID, ElapsedMs: int64p(100)}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	_, err := svc.AddResult(ch.ID, ResultEntry{TeamID: red.ID, ParticipantID: &c.ID, ElapsedMs: int64p(100)})
	if !errors.Is(err, ErrParticipantCapExceeded) {
		t.Fatalf("cap err = %v, want ErrParticipantCapExceeded", err)
	}
}

func TestUnmeasuredEntriesSortLastAndScoreZero(t *testing.T) {
	svc := newChallengeFixture(t)
	red := seedTeam(t, svc.DB, "red")
	green := seedTeam(t, svc.DB, "green")

	ch := seedChallenge(t, svc, &models.Challenge{
		Type:        models.ChallengeTypeTeamTimed,
		PointsMode:  models.PointsModePlacementTable,
		PointsTable: models.Int64List{100, 60},
	})

	if _, err := svc.AddResult(ch.ID, ResultEntry{TeamID: red.ID}); err != nil {
		t.Fatalf("add unmeasured: %v", err)
	}
	if _, err := svc.AddResult(ch.ID, ResultEntry{TeamID: green.ID, ElapsedMs: int64p(100)}); err != nil {
		t.Fatalf("add measured: %v", err)
	}

	results, err := svc.ComputePlacements(ch.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if results[0].TeamID != green.ID {
		t.Fatalf("first = %s, want measured team %s", results[0].TeamID, green.ID)
	}
	if results[1].TeamID != red.ID || results[1].Points != 0 {
		t.Fatalf("unmeasured entry = %s points %d, want %s with 0", results[1].TeamID, results[1].Points, red.ID)
	}
}

func TestAwardWithNoResults(t *testing.T) {
	svc := newChallengeFixture(t)
	ch := seedChallenge(t, svc, &models.Challenge{
		Type:       models.ChallengeTypeTeamTask,
		PointsMode: models.PointsModeFixed,
	})

	_, err := svc.AwardPoints(ch.ID)
	if !errors.Is(err, ErrNoResultsToScore) {
		t.Fatalf("err = %v, want ErrNoResultsToScore", err)
	}

	// The failed award rolled back, so the challenge is still open.
	var fresh models.Challenge
	svc.DB.First(&fresh, "id = ?", ch.ID)
	if fresh.Status == models.ChallengeStatusCompleted {
		t.Fatal("challenge completed despite failed award")
	}
}
