package services

import (
	"fmt"
	"strings"
	"testing"

	"event-quest-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database and migrates the full
// schema. Each test gets its own database, so tests can run in parallel.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Participant{},
		&models.Team{},
		&models.Mission{},
		&models.Submission{},
		&models.RaceCounter{},
		&models.Auction{},
		&models.Bid{},
		&models.Challenge{},
		&models.ChallengeResult{},
		&models.EngineEvent{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedTeam(t *testing.T, db *gorm.DB, name string) *models.Team {
	t.Helper()
	team := &models.Team{ID: uuid.NewString(), Name: name}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("seed team %s: %v", name, err)
	}
	return team
}

func seedParticipant(t *testing.T, db *gorm.DB, name string, teamID *string) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ID:          uuid.NewString(),
		DisplayName: name,
		TeamID:      teamID,
		Level:       1,
		Rank:        1,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed participant %s: %v", name, err)
	}
	return p
}

func participantXP(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var p models.Participant
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load participant %s: %v", id, err)
	}
	return p.XP
}

func teamXP(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var team models.Team
	if err := db.First(&team, "id = ?", id).Error; err != nil {
		t.Fatalf("load team %s: %v", id, err)
	}
	return team.XP
}

// IDs come from the create hooks, not a database default, so rows created
// without one get a UUID on every dialect the schema migrates on.
func TestCreateWithoutIDAssignsUUID(t *testing.T) {
	db := newTestDB(t)

	team := &models.Team{Name: "gold"}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := uuid.Parse(team.ID); err != nil {
		t.Fatalf("team id %q is not a uuid: %v", team.ID, err)
	}

	sub := &models.Submission{
		MissionID:     uuid.NewString(),
		ParticipantID: uuid.NewString(),
		Status:        models.SubmissionStatusPending,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if _, err := uuid.Parse(sub.ID); err != nil {
		t.Fatalf("submission id %q is not a uuid: %v", sub.ID, err)
	}
}
