package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-relay/app/relay"
)

type PollFeedTask struct {
	Task
	relay Relay
	mode  relay.Mode
}

// NewPollFeedTask polls one feed. Silent polls are not retried since the
// next sweep covers them.
func NewPollFeedTask(feedName string, r Relay, mode relay.Mode) *PollFeedTask {
	task := NewTask(TaskTypePollFeed, feedName)
	if mode == relay.Silent {
		task.MaxRetries = 0
	}

	return &PollFeedTask{
		Task:  task,
		relay: r,
		mode:  mode,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.relay.Update(ctx, t.FeedName, t.mode)
	if err != nil {
		return fmt.Errorf("failed to poll feed: %w", err)
	}

	slog.Debug("Task completed", "type", string(t.Type), "feed", t.FeedName, "mode", t.mode.String(), "items", result.Items, "new", result.New, "posted", result.Posted, "duration", t.GetDuration().String())

	return nil
}
