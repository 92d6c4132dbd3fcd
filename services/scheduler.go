// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler runs the escalation sweep once a day. Cron-level
// retries are harmless: every sweep action is individually idempotent.
func (s *EscalationService) StartSweepScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if _, err := s.RunSweep(time.Now()); err != nil {
				log.Printf("[SWEEP] sweep failed: %v", err)
			}
		}),
	)
}
