package api

import (
	"context"

	"github.com/lysyi3m/rss-relay/app/command"
	"github.com/lysyi3m/rss-relay/app/relay"
)

type DispatcherInterface interface {
	Run(ctx context.Context, line string) []string
	Execute(ctx context.Context, args []string) []string
}

var _ DispatcherInterface = (*command.Dispatcher)(nil)

type FeedLister interface {
	Feed(name string) (relay.FeedInfo, error)
	List(filter string) []relay.FeedInfo
}

type Handler struct {
	dispatcher DispatcherInterface
	feeds      FeedLister
	version    string
}

// CommandRequest carries either a command line, tokenized like a shell
// does, or the already split arguments.
type CommandRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type CommandResponse struct {
	Replies []string `json:"replies"`
}
