// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSnapshotScheduler refreshes the leaderboard projections on a fixed
// cadence. Boards are allowed to lag the ledger, so a missed or failed run
// only delays the next refresh.
func (s *LeaderboardService) StartSnapshotScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.RebuildSnapshots(); err != nil {
				log.Printf("[Scheduler] leaderboard rebuild failed: %v", err)
				return
			}
		}),
	)
}
