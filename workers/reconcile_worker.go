package workers

import (
	"context"
	"log"
	"time"

	"event-quest-system/models"
	"event-quest-system/services"

	"gorm.io/gorm"
)

// RunReconciler periodically repairs derived state that can drift if a
// process dies between a credit and its follow-up writes: participant
// level/rank derived from XP, and team member counts.
//
// Credits themselves never need repair, they commit atomically with the
// transition that earned them. This loop only touches derived columns.
func RunReconciler(ctx context.Context, db *gorm.DB, interval time.Duration) {
	log.Println("Starting reconcile worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconcile worker stopped.")
			return
		case <-ticker.C:
			if n, err := reconcileProgression(db); err != nil {
				log.Printf("❌ Progression reconcile failed: %v", err)
			} else if n > 0 {
				log.Printf("✅ Repaired level/rank on %d participant(s).", n)
			}

			if n, err := reconcileTeamCounts(db); err != nil {
				log.Printf("❌ Team count reconcile failed: %v", err)
			} else if n > 0 {
				log.Printf("✅ Repaired member_count on %d team(s).", n)
			}
		}
	}
}

func reconcileProgression(db *gorm.DB) (int, error) {
	var participants []models.Participant
	if err := db.Find(&participants).Error; err != nil {
		return 0, err
	}

	repaired := 0
	for _, p := range participants {
		level := services.LevelForXP(p.XP)
		rank := services.RankForLevel(level)
		if p.Level == level && p.Rank == rank {
			continue
		}
		if err := db.Model(&models.Participant{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{"level": level, "rank": rank}).Error; err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

func reconcileTeamCounts(db *gorm.DB) (int, error) {
	var teams []models.Team
	if err := db.Find(&teams).Error; err != nil {
		return 0, err
	}

	repaired := 0
	for _, t := range teams {
		var count int64
		if err := db.Model(&models.Participant{}).
			Where("team_id = ?", t.ID).
			Count(&count).Error; err != nil {
			return repaired, err
		}
		if int64(t.MemberCount) == count {
			continue
		}
		if err := db.Model(&models.Team{}).
			Where("id = ?", t.ID).
			Update("member_count", count).Error; err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}
