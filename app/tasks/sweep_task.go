package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-relay/app/relay"
)

// SweepTask runs a silent PollFeedTask for every feed, then maintenance. Only one
// sweep runs at a time; overlapping sweeps are skipped.
type SweepTask struct {
	Task
	relay       Relay
	running     *atomic.Bool
	workerCount int
	pollTimeout time.Duration
}

func NewSweepTask(r Relay, running *atomic.Bool, workerCount int, pollTimeout time.Duration) *SweepTask {
	task := NewTask(TaskTypeSweep, "")
	task.MaxRetries = 0

	return &SweepTask{
		Task:        task,
		relay:       r,
		running:     running,
		workerCount: max(workerCount, 1),
		pollTimeout: pollTimeout,
	}
}

func (t *SweepTask) Execute(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		slog.Debug("Sweep already running, skipping")
		return nil
	}
	defer t.running.Store(false)

	names := t.relay.Names()
	slog.Debug("Polling feeds", "count", len(names))

	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workerCount)

	for _, name := range names {
		g.Go(func() error {
			pollCtx := gctx
			if t.pollTimeout > 0 {
				var cancel context.CancelFunc
				pollCtx, cancel = context.WithTimeout(gctx, t.pollTimeout)
				defer cancel()
			}

			poll := NewPollFeedTask(name, t.relay, relay.Silent)
			poll.Start()
			if err := poll.Execute(pollCtx); err != nil {
				if !errors.Is(err, relay.ErrFeedNotFound) {
					failed.Add(1)
				}
			}

			// A failing feed must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := NewMaintenanceTask(t.relay).Execute(ctx); err != nil {
		slog.Warn("Maintenance failed", "error", err)
	}

	slog.Debug("Task completed", "type", string(t.Type), "feeds", len(names), "failed", failed.Load(), "duration", t.GetDuration().String())
	return nil
}
