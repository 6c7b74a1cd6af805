// Package scheduler owns the recurring reconcile task: a single cancellable
// loop driving sync cycles at a fixed interval. A failed cycle is logged and
// the loop simply waits for the next tick.
package scheduler

import (
	"context"
	"log"
	"time"

	"risk-monitorv1/internal/model"
)

// SyncFunc performs one full reconcile cycle and reports what it touched.
type SyncFunc func(ctx context.Context) (model.SyncResult, error)

// Scheduler drives a SyncFunc on a fixed interval.
type Scheduler struct {
	Interval time.Duration
	Sync     SyncFunc

	// OnCycle, if set, is called after every attempt with its outcome.
	OnCycle func(model.SyncResult, error)
}

// New creates a Scheduler.
func New(interval time.Duration, sync SyncFunc) *Scheduler {
	return &Scheduler{Interval: interval, Sync: sync}
}

// Run performs one immediate cycle, then one per interval tick, until ctx is
// cancelled. Blocks.
func (s *Scheduler) Run(ctx context.Context) {
	s.cycle(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	res, err := s.Sync(ctx)
	if err != nil {
		log.Printf("[scheduler] sync cycle failed: %v", err)
	} else {
		log.Printf("[scheduler] synced: accounts=%d positions=%d closed=%d",
			res.AccountsSynced, res.PositionsSynced, res.PositionsClosed)
	}
	if s.OnCycle != nil {
		s.OnCycle(res, err)
	}
}
