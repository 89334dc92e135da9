// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const sweepMinAge = 10 * time.Minute
const sweepLimit = 100

// StartReconciliationScheduler runs the stale-order sweep every 5 minutes.
// Webhook delivery is not guaranteed; the sweep is the recovery path for
// orders whose notification never arrived. Safe to run alongside live
// webhook traffic.
func (s *PaymentService) StartReconciliationScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			report, err := s.SyncStaleOrders(ctx, sweepMinAge, sweepLimit)
			if err != nil {
				log.Printf("[Scheduler] reconciliation sweep error: %v", err)
				return
			}
			if report.Processed > 0 {
				log.Printf("[Scheduler] reconciliation sweep: processed=%d resolved=%d failed=%d",
					report.Processed, report.Resolved, report.Failed)
			}
		}),
	)
}
