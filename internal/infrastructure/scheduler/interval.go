// Package scheduler triggers the recurring scrape-all enqueue. Overlap
// with a still-running scrape is allowed: the queue serializes nothing
// here, and hash dedup makes overlapping runs idempotent.
package scheduler

import (
	"context"
	"time"

	"NewsIngest/internal/ports"
)

// Interval fires the job on a fixed period, starting with one immediate
// run.
type Interval struct {
	period time.Duration
	stop   chan struct{}
}

var _ ports.Scheduler = (*Interval)(nil)

// NewInterval builds a scheduler with the given period.
func NewInterval(period time.Duration) *Interval {
	if period <= 0 {
		period = 5 * time.Minute
	}
	return &Interval{period: period}
}

// Start begins ticking; a second Start without Stop is a no-op.
func (s *Interval) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	// The goroutine selects on a local copy; Stop nils the field, so
	// re-reading it from the loop would race.
	stop := make(chan struct{})
	s.stop = stop
	go func() {
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *Interval) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
