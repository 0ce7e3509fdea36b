package relay

import (
	"sync"

	"github.com/lysyi3m/rss-relay/app/feed"
	"github.com/lysyi3m/rss-relay/app/format"
	"github.com/lysyi3m/rss-relay/app/ring"
)

// FeedInfo describes a registered feed.
type FeedInfo struct {
	Channel string `json:"channel"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Format  string `json:"format"`
	Hashes  int    `json:"hashes"`
}

// entry is the runtime state of a feed. Everything below mu is guarded by it.
type entry struct {
	channel string
	name    string
	url     string

	mu sync.Mutex
	// requested is the format asked for by the operator, possibly empty.
	requested string
	// resolved is false until the format was negotiated against an item.
	resolved bool
	engine   *format.Engine
	hashes   *ring.Buffer[string]
	deleted  bool
}

// format returns the effective format string. Caller holds e.mu.
func (e *entry) format(fallback string) string {
	if e.resolved {
		return e.engine.Spec().String()
	}
	if e.requested != "" {
		return e.requested
	}
	return fallback
}

// info snapshots the feed. Caller holds e.mu.
func (e *entry) info(fallback string) FeedInfo {
	return FeedInfo{
		Channel: e.channel,
		Name:    e.name,
		URL:     e.url,
		Format:  e.format(fallback),
		Hashes:  e.hashes.Len(),
	}
}

// asItem keeps a nil *feed.Item from becoming a non-nil format.Item.
func asItem(item *feed.Item) format.Item {
	if item == nil {
		return nil
	}
	return item
}
