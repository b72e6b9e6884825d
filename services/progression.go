package services

import (
	"math"

	"event-quest-system/models"

	"gorm.io/gorm"
)

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to go from currentLevel to currentLevel+1.
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForXP derives the level as a pure function of cumulative XP, so a
// participant's level can always be recomputed from the ledger alone.
func LevelForXP(totalXP int64) int {
	level := 1
	var spent int64
	for {
		need := xpForNextLevel(level)
		if spent+need > totalXP {
			return level
		}
		spent += need
		level++
	}
}

// RankThresholds: levels required before rank-up
var RankThresholds = map[int]int{ // rank → min level
	1: 1,   // Bronze (start)
	2: 10,  // Silver
	3: 25,  // Gold
	4: 50,  // Platinum
	5: 100, // Diamond
}

func RankForLevel(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureParticipant creates the participant row on first contact (idempotent).
func (s *ProgressionService) EnsureParticipant(participantID, displayName string, teamID *string) (*models.Participant, error) {
	var p models.Participant
	err := s.DB.Where("id = ?", participantID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		p = models.Participant{
			ID:          participantID,
			DisplayName: displayName,
			TeamID:      teamID,
			XP:          0,
			Level:       1,
			Rank:        1,
		}
		if err := s.DB.Create(&p).Error; err != nil {
			return nil, err
		}
		if teamID != nil {
			// Member count is a convenience counter, not a ledger total.
			if err := s.DB.Model(&models.Team{}).Where("id = ?", *teamID).
				Update("member_count", gorm.Expr("member_count + 1")).Error; err != nil {
				return nil, err
			}
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipant returns the participant with progression derived fields.
func (s *ProgressionService) GetParticipant(participantID string) (*models.Participant, error) {
	var p models.Participant
	if err := s.DB.First(&p, "id = ?", participantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
