package tasks

import (
	"context"

	"github.com/lysyi3m/rss-relay/app/relay"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the command dispatcher to queue polls.
// Example usage:
//
//	scheduler := NewScheduler(relay, SchedulerOptions{Interval: time.Minute, WorkerCount: 5})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewPollFeedTask("news", relay, relay.Chatty))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Sweep() error
}

// Relay is the part of the relay the tasks drive.
type Relay interface {
	Names() []string
	Update(ctx context.Context, name string, mode relay.Mode) (relay.Result, error)
	SaveState() error
}
