package relay

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-relay/app/feed"
	"github.com/lysyi3m/rss-relay/app/format"
)

const (
	listSeparator  = ","
	fieldSeparator = "|"
	// hydrateConcurrency bounds the fetches issued while loading the state.
	hydrateConcurrency = 8
)

// DefaultFormat is the format a feed gets when none was requested for it.
func (r *Relay) DefaultFormat() string {
	r.formatsMu.RLock()
	defer r.formatsMu.RUnlock()

	if len(r.formats) > 0 {
		return r.formats[0]
	}
	return format.DefaultFormat
}

// Formats returns the deployment default format candidates in order.
func (r *Relay) Formats() []string {
	r.formatsMu.RLock()
	defer r.formatsMu.RUnlock()

	return append([]string(nil), r.formats...)
}

// SetFormats replaces the default format candidates with the valid ones
// among raws and returns them.
func (r *Relay) SetFormats(raws []string) []string {
	formats := format.FilterCandidates(raws)

	r.formatsMu.Lock()
	r.formats = formats
	r.formatsMu.Unlock()

	return append([]string(nil), formats...)
}

func (r *Relay) Templates() *format.Templates {
	return r.templates
}

// SetTemplates resets the templates to the builtin ones and applies the
// "letter|template" pairs. Pairs that cannot be applied are returned.
func (r *Relay) SetTemplates(pairs []string) []string {
	r.templates.Reset()

	var rejected []string
	for _, pair := range pairs {
		field, tmpl, ok := strings.Cut(pair, fieldSeparator)
		if !ok || len(field) != 1 {
			rejected = append(rejected, pair)
			continue
		}
		if err := r.templates.Set(field[0], tmpl); err != nil {
			rejected = append(rejected, pair)
		}
	}
	return rejected
}

// persistedFormat is the format written for a feed, or "" when the feed
// follows the default. Caller holds e.mu.
func (e *entry) persistedFormat(fallback string) string {
	current := e.format(fallback)
	if current == fallback {
		return ""
	}
	return current
}

// EncodeFeeds lists the feeds as "channel|name|url[|format]".
func (r *Relay) EncodeFeeds() string {
	fallback := r.DefaultFormat()

	var feeds []string
	for _, e := range r.entries() {
		e.mu.Lock()
		atoms := []string{e.channel, e.name, e.url}
		if f := e.persistedFormat(fallback); f != "" {
			atoms = append(atoms, f)
		}
		e.mu.Unlock()
		feeds = append(feeds, strings.Join(atoms, fieldSeparator))
	}
	sort.Strings(feeds)
	return strings.Join(feeds, listSeparator)
}

// EncodeFormats lists the default format candidates followed by the
// global default, which is listed once.
func (r *Relay) EncodeFormats() string {
	formats := slices.DeleteFunc(r.Formats(), func(raw string) bool {
		return raw == format.DefaultFormat
	})
	return strings.Join(append(formats, format.DefaultFormat), listSeparator)
}

// EncodeTemplates lists every template as "letter|template".
func (r *Relay) EncodeTemplates() string {
	return strings.Join(r.templates.Encode(), listSeparator)
}

// SetFeeds adds every "channel|name|url[|format]" entry of value through
// the regular add checks. It returns the added feeds and the errors of the
// rejected ones.
func (r *Relay) SetFeeds(ctx context.Context, value string) ([]FeedInfo, []error) {
	var added []FeedInfo
	var errs []error

	for _, raw := range strings.Split(value, listSeparator) {
		state, ok := parseFeed(raw)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				errs = append(errs, fmt.Errorf("malformed feed %q", raw))
			}
			continue
		}

		info, err := r.Add(ctx, state.Channel, state.Name, state.URL, state.Format)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		added = append(added, info)
	}

	return added, errs
}

func parseFeed(raw string) (feed.FeedState, bool) {
	atoms := strings.Split(strings.TrimSpace(raw), fieldSeparator)
	if len(atoms) < 3 {
		return feed.FeedState{}, false
	}

	state := feed.FeedState{Channel: atoms[0], Name: atoms[1], URL: atoms[2]}
	if len(atoms) > 3 {
		state.Format = atoms[3]
	}
	return state, true
}

// Snapshot captures the state to persist.
func (r *Relay) Snapshot() *feed.State {
	fallback := r.DefaultFormat()
	state := &feed.State{
		Formats:   r.Formats(),
		Templates: r.templates.Overrides(),
	}

	for _, e := range r.entries() {
		e.mu.Lock()
		state.Feeds = append(state.Feeds, feed.FeedState{
			Channel: e.channel,
			Name:    e.name,
			URL:     e.url,
			Format:  e.persistedFormat(fallback),
		})
		e.mu.Unlock()
	}

	return state
}

// pruneTables drops the fingerprint tables of feeds that are no longer in
// state, so such a feed starts with an empty history when added again.
func (r *Relay) pruneTables(state *feed.State) {
	tables, err := r.store.Tables()
	if err != nil {
		slog.Error("Unable to list fingerprint tables", "error", err)
		r.metrics.RecordPersistenceFailure()
		return
	}

	known := make(map[string]bool, len(state.Feeds))
	for _, fs := range state.Feeds {
		known[fs.Name] = true
	}

	for _, table := range tables {
		if known[table.FeedName] {
			continue
		}
		if err := r.store.Drop(table.FeedName); err != nil {
			slog.Error("Unable to drop table of removed feed", "feed", table.FeedName, "table", table.TableName, "error", err)
			r.metrics.RecordPersistenceFailure()
			continue
		}
		slog.Info("Dropped table of removed feed", "feed", table.FeedName, "table", table.TableName)
	}
}

// Hydrate loads a persisted state: default formats, templates and then
// every feed with its stored fingerprints. Feeds that cannot be read right
// now are registered anyway and negotiate their format on the first
// successful poll. Feeds failing the other checks are skipped.
func (r *Relay) Hydrate(ctx context.Context, state *feed.State) error {
	if len(state.Formats) > 0 {
		r.SetFormats(state.Formats)
	}

	r.templates.Reset()
	for field, tmpl := range state.Templates {
		if len(field) != 1 {
			continue
		}
		if err := r.templates.Set(field[0], tmpl); err != nil {
			slog.Warn("Ignoring template", "field", field, "template", tmpl, "error", err)
		}
	}

	r.pruneTables(state)

	docs := make([]*feed.Document, len(state.Feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, fs := range state.Feeds {
		g.Go(func() error {
			doc, err := r.fetcher.Fetch(gctx, fs.URL)
			if err != nil {
				slog.Warn("Unable to read url of feed", "url", fs.URL, "feed", fs.Name, "error", err)
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to fetch feeds: %w", err)
	}

	for i, fs := range state.Feeds {
		first := docs[i].First()

		if problems := r.check(fs.Channel, fs.Name, first); len(problems) > 0 {
			slog.Warn("Skipping feed", "feed", fs.Name, "error", &ValidationError{Feed: fs.Name, Problems: problems})
			continue
		}

		if _, err := r.register(fs.Channel, fs.Name, fs.URL, fs.Format, first); err != nil {
			slog.Warn("Skipping feed", "feed", fs.Name, "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("Read config from disk", "feeds", len(r.Names()))
	return nil
}
