// Package watch re-runs a task set on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// Watcher fires a run function on a cron schedule. Overlapping ticks are
// skipped: if the previous run is still going when the schedule fires, the
// tick is dropped rather than queued.
type Watcher struct {
	schedule string
}

// New creates a watcher for the given cron schedule.
// Returns an error if the schedule expression is invalid.
func New(schedule string) (*Watcher, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return &Watcher{schedule: schedule}, nil
}

// Schedule returns the cron expression this watcher fires on.
func (w *Watcher) Schedule() string {
	return w.schedule
}

// Start begins the cron scheduler, invoking run on every tick.
// Blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context, run func(context.Context) error) error {
	c := cron.New()

	var busy atomic.Bool
	_, err := c.AddFunc(w.schedule, func() {
		if !busy.CompareAndSwap(false, true) {
			fmt.Fprintf(os.Stderr, "warning: previous run still in progress, skipping tick\n")
			return
		}
		defer busy.Store(false)

		if err := run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: scheduled run failed: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("adding cron job: %w", err)
	}

	c.Start()
	<-ctx.Done()
	c.Stop()
	return nil
}
