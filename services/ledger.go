package services

import (
	"fmt"
	"log"

	"event-quest-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore wraps the atomic primitives every resolver goes through:
// entity-scoped credit, per-race placement allocation and conditional
// updates. Nothing outside this file mutates a cumulative total.
type LedgerStore struct {
	DB *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{DB: db}
}

// WithTx runs fn inside a transaction, reusing tx when the caller already
// holds one.
func (l *LedgerStore) WithTx(fn func(tx *gorm.DB) error) error {
	return l.DB.Transaction(fn)
}

// lockForUpdate row-locks the rows the query selects so count-then-insert
// precondition checks against them cannot interleave under read committed.
// sqlite rejects FOR UPDATE syntax and its single writer already
// serializes transactions, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CreditParticipant applies a single atomic XP increment to a participant
// and, when they belong to a team, the same increment to the team total.
// Level and rank are recomputed from the post-increment XP inside the same
// transaction. Crediting zero is a legal no-op.
func (l *LedgerStore) CreditParticipant(tx *gorm.DB, participantID string, amount int64, reason string) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative credit %d", ErrInvalidInput, amount)
	}
	if amount == 0 {
		return nil
	}

	res := tx.Model(&models.Participant{}).
		Where("id = ?", participantID).
		Update("xp", gorm.Expr("xp + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
	}

	// Re-read inside the transaction: the increment above row-locked the
	// participant, so the derived level/rank write cannot interleave with
	// a concurrent credit.
	var p models.Participant
	if err := tx.First(&p, "id = ?", participantID).Error; err != nil {
		return err
	}
	level := LevelForXP(p.XP)
	rank := RankForLevel(level)
	if level != p.Level || rank != p.Rank {
		if err := tx.Model(&p).Updates(map[string]interface{}{
			"level": level,
			"rank":  rank,
		}).Error; err != nil {
			return err
		}
	}

	if p.TeamID != nil {
		if err := l.CreditTeam(tx, *p.TeamID, amount, reason); err != nil {
			return err
		}
	}

	log.Printf("💰 credit participant %s +%d (reason: %s)", participantID, amount, reason)
	return nil
}

// CreditTeam applies a single atomic increment to a team total.
func (l *LedgerStore) CreditTeam(tx *gorm.DB, teamID string, amount int64, reason string) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative credit %d", ErrInvalidInput, amount)
	}
	if amount == 0 {
		return nil
	}
	res := tx.Model(&models.Team{}).
		Where("id = ?", teamID).
		Update("xp", gorm.Expr("xp + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}
	log.Printf("💰 credit team %s +%d (reason: %s)", teamID, amount, reason)
	return nil
}

// NextPlacement allocates the next integer placement for a race: strictly
// increasing from 1, unique per race. The counter row is upserted once and
// then only ever advanced with an atomic increment, so two concurrent
// approvals can never receive the same placement.
func (l *LedgerStore) NextPlacement(tx *gorm.DB, raceID string) (int, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RaceCounter{RaceID: raceID, LastPlacement: 0}).Error; err != nil {
		return 0, err
	}

	res := tx.Model(&models.RaceCounter{}).
		Where("race_id = ?", raceID).
		Update("last_placement", gorm.Expr("last_placement + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("race counter %s vanished mid-allocation", raceID)
	}

	var counter models.RaceCounter
	if err := tx.First(&counter, "race_id = ?", raceID).Error; err != nil {
		return 0, err
	}
	return counter.LastPlacement, nil
}

// placementReward looks up the reward for a 1-based placement in a points
// table. Placements beyond the table earn nothing.
func placementReward(table models.Int64List, placement int) int64 {
	if placement < 1 || placement > len(table) {
		return 0
	}
	return table[placement-1]
}
