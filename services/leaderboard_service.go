package services

import (
	"time"

	"event-quest-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardService maintains the eventually-consistent leaderboard
// projections. Readers hit snapshots only; the ledger tables stay the
// single source of truth.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// RebuildSnapshots recomputes both boards from current totals. Upserts
// keyed on (scope, entity) keep readers serving a complete board at all
// times instead of catching a half-rebuilt one.
func (s *LeaderboardService) RebuildSnapshots() error {
	now := time.Now()

	var participants []models.Participant
	if err := s.DB.Order("xp DESC, created_at ASC").Find(&participants).Error; err != nil {
		return err
	}
	var teams []models.Team
	if err := s.DB.Order("xp DESC, created_at ASC").Find(&teams).Error; err != nil {
		return err
	}

	var rows []models.LeaderboardSnapshot
	for i, p := range participants {
		rows = append(rows, models.LeaderboardSnapshot{
			Scope:      models.LeaderboardScopeParticipant,
			EntityID:   p.ID,
			Name:       p.DisplayName,
			Score:      p.XP,
			Rank:       i + 1,
			ComputedAt: now,
		})
	}
	for i, t := range teams {
		rows = append(rows, models.LeaderboardSnapshot{
			Scope:      models.LeaderboardScopeTeam,
			EntityID:   t.ID,
			Name:       t.Name,
			Score:      t.XP,
			Rank:       i + 1,
			ComputedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "score", "rank", "computed_at",
		}),
	}).Create(&rows).Error
}

// Board returns one snapshot board, best first.
func (s *LeaderboardService) Board(scope models.LeaderboardScope, limit int) ([]models.LeaderboardSnapshot, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.LeaderboardSnapshot
	err := s.DB.Where("scope = ?", scope).
		Order("rank ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// BoardAround returns the board slice surrounding one entity (±5), the
// same read pattern dashboards use for "you are here" views.
func (s *LeaderboardService) BoardAround(scope models.LeaderboardScope, entityID string) ([]models.LeaderboardSnapshot, error) {
	var entry models.LeaderboardSnapshot
	if err := s.DB.Where("scope = ? AND entity_id = ?", scope, entityID).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lower := entry.Rank - 5
	if lower < 1 {
		lower = 1
	}
	upper := entry.Rank + 5

	var rows []models.LeaderboardSnapshot
	err := s.DB.Where("scope = ? AND rank BETWEEN ? AND ?", scope, lower, upper).
		Order("rank ASC").
		Find(&rows).Error
	return rows, err
}
