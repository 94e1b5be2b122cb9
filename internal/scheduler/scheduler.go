package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/worktrackhq/work-tracking-api/internal/services"
)

// Runner drives the cutoff sweep on a fixed cadence, decoupled from any user
// session. The sweep body is idempotent, so overlapping invocations (for
// example an HTTP-triggered sweep during a scheduled one) are safe.
type Runner struct {
	cutoff   *services.CutoffService
	interval time.Duration
}

// NewRunner creates a Runner.
func NewRunner(cutoff *services.CutoffService, interval time.Duration) *Runner {
	return &Runner{
		cutoff:   cutoff,
		interval: interval,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// A failed sweep is logged and retried on the next cadence.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("cutoff scheduler: sweeping every %s", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("cutoff scheduler: stopped")
			return
		case <-ticker.C:
			result, err := r.cutoff.Sweep(ctx)
			if err != nil {
				log.Printf("cutoff scheduler: sweep failed: %v", err)
				continue
			}
			if result.ExceededCount > 0 {
				log.Printf("cutoff scheduler: closed %d entries over budget, %d still monitored",
					result.ExceededCount, result.MonitoredCount)
			}
		}
	}
}
