// Package relay keeps the registry of feeds and decides, on every poll,
// which items are new and must be posted to the channel of their feed.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/rss-relay/app/database"
	"github.com/lysyi3m/rss-relay/app/feed"
	"github.com/lysyi3m/rss-relay/app/format"
	"github.com/lysyi3m/rss-relay/app/metrics"
	"github.com/lysyi3m/rss-relay/app/ring"
)

const (
	DefaultMaxHashes     = 300
	DefaultChannelMarker = "#"
)

// Fetcher reads feed documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*feed.Document, error)
}

// StateSaver persists the relay state.
type StateSaver interface {
	Save(state *feed.State) error
}

// Mode selects which items a poll posts.
type Mode int

const (
	// Silent posts only items that were not seen before.
	Silent Mode = iota
	// Chatty posts every item of the feed.
	Chatty
)

func (m Mode) String() string {
	if m == Chatty {
		return metrics.ModeChatty
	}
	return metrics.ModeSilent
}

type Options struct {
	MaxHashes     int
	ChannelMarker string
	Shortener     format.Shortener
	Cleaner       format.Cleaner
	Templates     *format.Templates
	Metrics       metrics.Recorder
	State         StateSaver
}

// Result summarizes a single poll of a feed.
type Result struct {
	Feed   string
	Items  int
	New    int
	Posted int
}

type Relay struct {
	fetcher   Fetcher
	store     database.HashStore
	emitter   Emitter
	state     StateSaver
	metrics   metrics.Recorder
	templates *format.Templates
	shortener format.Shortener
	cleaner   format.Cleaner

	maxHashes     int
	channelMarker string

	mu    sync.RWMutex
	feeds map[string]*entry

	formatsMu sync.RWMutex
	formats   []string
}

func New(fetcher Fetcher, store database.HashStore, emitter Emitter, opts Options) *Relay {
	if opts.MaxHashes <= 0 {
		opts.MaxHashes = DefaultMaxHashes
	}
	if opts.ChannelMarker == "" {
		opts.ChannelMarker = DefaultChannelMarker
	}
	if opts.Templates == nil {
		opts.Templates = format.NewTemplates()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if emitter == nil {
		emitter = LogEmitter{}
	}

	return &Relay{
		fetcher:       fetcher,
		store:         store,
		emitter:       emitter,
		state:         opts.State,
		metrics:       opts.Metrics,
		templates:     opts.Templates,
		shortener:     opts.Shortener,
		cleaner:       opts.Cleaner,
		maxHashes:     opts.MaxHashes,
		channelMarker: opts.ChannelMarker,
		feeds:         make(map[string]*entry),
	}
}

func (r *Relay) ChannelMarker() string {
	return r.channelMarker
}

func (r *Relay) MaxHashes() int {
	return r.maxHashes
}

// Add fetches the feed at url, runs the acceptance checks and registers it.
// An explicit format must be valid for the items of the feed.
func (r *Relay) Add(ctx context.Context, channel, name, url, rawFormat string) (FeedInfo, error) {
	doc, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return FeedInfo{}, unreadable(err)
	}

	first := doc.First()
	if first == nil {
		return FeedInfo{}, fmt.Errorf("%w: feed %q has no items", ErrUnreadableFeed, name)
	}

	problems := r.check(channel, name, first)
	if rawFormat != "" {
		if _, err := format.Parse(rawFormat, format.AvailableFields(first)); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) > 0 {
		return FeedInfo{}, &ValidationError{Feed: name, Problems: problems}
	}

	return r.register(channel, name, url, rawFormat, first)
}

func (r *Relay) check(channel, name string, first *feed.Item) []error {
	var problems []error

	if first != nil && first.Title == "" && first.Description == "" {
		problems = append(problems, ErrNoTitleOrDescription)
	}
	if r.exists(name) {
		problems = append(problems, fmt.Errorf("%w: %q", ErrFeedExists, name))
	}
	if !strings.HasPrefix(channel, r.channelMarker) {
		problems = append(problems, fmt.Errorf("%w %q: %q", ErrChannelMarker, r.channelMarker, channel))
	}

	return problems
}

// register creates the fingerprint table of a feed, hydrates its ring from
// the stored fingerprints and adds it to the registry. A nil first item
// defers format negotiation to the first successful poll.
func (r *Relay) register(channel, name, url, requested string, first *feed.Item) (FeedInfo, error) {
	exists, err := r.store.Exists(name)
	if err != nil {
		slog.Error("Unable to check fingerprint table", "feed", name, "error", err)
		r.metrics.RecordPersistenceFailure()
	}
	if !exists {
		if err := r.store.Create(name); err != nil {
			slog.Error("Unable to create fingerprint table", "feed", name, "error", err)
			r.metrics.RecordPersistenceFailure()
		}
	}

	hashes := ring.New[string](r.maxHashes)
	stored, err := r.store.ReadAll(name)
	if err != nil {
		slog.Error("Unable to read hashes of feed", "feed", name, "error", err)
		r.metrics.RecordPersistenceFailure()
	}
	for _, hash := range stored {
		hashes.Append(hash)
	}
	slog.Debug("Read hashes of feed", "feed", name, "table", database.TableName(name), "count", len(stored))

	e := &entry{
		channel:   channel,
		name:      name,
		url:       url,
		requested: requested,
		hashes:    hashes,
		engine:    r.newEngine(format.Spec{}),
	}
	if first != nil {
		e.engine.SetSpec(r.sanitize(requested, first))
		e.resolved = true
	}

	e.mu.Lock()
	info := e.info(r.DefaultFormat())
	e.mu.Unlock()

	r.mu.Lock()
	if _, ok := r.feeds[name]; ok {
		r.mu.Unlock()
		return FeedInfo{}, &ValidationError{Feed: name, Problems: []error{fmt.Errorf("%w: %q", ErrFeedExists, name)}}
	}
	r.feeds[name] = e
	count := len(r.feeds)
	r.mu.Unlock()

	r.metrics.SetFeeds(count)
	slog.Info("Added feed", "feed", name, "channel", channel, "url", url, "format", info.Format)

	return info, nil
}

func (r *Relay) newEngine(spec format.Spec) *format.Engine {
	var opts []format.EngineOption
	if r.shortener != nil {
		opts = append(opts, format.WithShortener(r.shortener))
	}
	if r.cleaner != nil {
		opts = append(opts, format.WithCleaner(r.cleaner))
	}
	return format.NewEngine(spec, r.templates, opts...)
}

func (r *Relay) sanitize(requested string, first *feed.Item) format.Spec {
	return format.Sanitize(requested, r.Formats(), format.DefaultFormat, asItem(first))
}

// Delete removes a feed together with its stored fingerprints. A poll of
// the feed that is still running is discarded.
func (r *Relay) Delete(name string) (FeedInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.feeds[name]
	if !ok {
		return FeedInfo{}, fmt.Errorf("%w: %q", ErrFeedNotFound, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.store.Drop(name); err != nil {
		r.metrics.RecordPersistenceFailure()
		return FeedInfo{}, fmt.Errorf("failed to delete feed %q: %w", name, err)
	}

	info := e.info(r.DefaultFormat())
	e.deleted = true
	delete(r.feeds, name)
	r.metrics.SetFeeds(len(r.feeds))

	slog.Info("Deleted feed", "feed", name, "channel", e.channel, "url", e.url)
	return info, nil
}

// Update polls a feed and posts its items oldest first: every new item in
// Silent mode, every item in Chatty mode. New fingerprints are remembered
// even when storing them fails.
func (r *Relay) Update(ctx context.Context, name string, mode Mode) (Result, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	defer func() {
		r.metrics.RecordPoll(mode.String(), time.Since(start))
	}()

	doc, err := r.fetcher.Fetch(ctx, e.url)
	if err != nil {
		slog.Error("Unable to read url of feed", "url", e.url, "feed", name, "error", err)
		r.metrics.RecordFetchFailure()
		return Result{}, unreadable(err)
	}
	if len(doc.Items) == 0 {
		slog.Warn("Feed has no items", "url", e.url, "feed", name)
		r.metrics.RecordFetchFailure()
		return Result{Feed: name}, fmt.Errorf("%w: feed %q has no items", ErrUnreadableFeed, name)
	}

	// ctx bounds the fetch only. Fingerprints are recorded before posting,
	// so a fetched batch is always posted to the end.
	return r.process(context.WithoutCancel(ctx), e, doc, mode)
}

func (r *Relay) process(ctx context.Context, e *entry, doc *feed.Document, mode Mode) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return Result{}, fmt.Errorf("%w: %q", ErrFeedNotFound, e.name)
	}

	result := Result{Feed: e.name, Items: len(doc.Items)}

	if !e.resolved {
		e.engine.SetSpec(r.sanitize(e.requested, doc.First()))
		e.resolved = true
		slog.Info("Resolved format of feed", "feed", e.name, "format", e.engine.Spec().String())
	}

	for i := len(doc.Items) - 1; i >= 0; i-- {
		item := &doc.Items[i]

		hash := e.engine.Fingerprint(e.name, item)
		isNew := !e.hashes.Contains(hash)
		if isNew {
			e.hashes.Append(hash)
			result.New++
			r.saveHash(e.name, hash)
		}

		if !isNew && mode != Chatty {
			continue
		}

		post := e.engine.Render(ctx, e.name, item)
		if err := r.emitter.Emit(ctx, e.channel, post); err != nil {
			slog.Error("Unable to emit post", "feed", e.name, "channel", e.channel, "error", err)
			r.metrics.RecordEmitFailure()
			continue
		}
		result.Posted++
		r.metrics.RecordPostEmitted()
	}

	r.metrics.RecordNewItems(result.New)
	slog.Debug("Feed updated", "feed", e.name, "mode", mode.String(), "items", result.Items, "new", result.New, "posted", result.Posted)

	return result, nil
}

func (r *Relay) saveHash(name, hash string) {
	if _, err := r.store.InsertIfAbsent(name, hash); err != nil {
		slog.Error("Unable to save hash of feed", "hash", hash, "feed", name, "table", database.TableName(name), "error", err)
		r.metrics.RecordPersistenceFailure()
		return
	}
	slog.Debug("Saved hash of feed", "hash", hash, "feed", name, "table", database.TableName(name))
}

// SetFormat validates raw against the items of a feed and makes it the
// format of the feed.
func (r *Relay) SetFormat(ctx context.Context, name, raw string) (FeedInfo, error) {
	e, err := r.lookup(name)
	if err != nil {
		return FeedInfo{}, err
	}

	doc, err := r.fetcher.Fetch(ctx, e.url)
	if err != nil {
		return FeedInfo{}, unreadable(err)
	}

	first := doc.First()
	if first == nil {
		return FeedInfo{}, fmt.Errorf("%w: feed %q has no items", ErrUnreadableFeed, name)
	}

	spec, err := format.Parse(raw, format.AvailableFields(first))
	if err != nil {
		return FeedInfo{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return FeedInfo{}, fmt.Errorf("%w: %q", ErrFeedNotFound, name)
	}

	e.engine.SetSpec(spec)
	e.requested = spec.String()
	e.resolved = true

	slog.Info("Format of feed has been set", "feed", name, "format", spec.String())
	return e.info(r.DefaultFormat()), nil
}

// Fields lists the field letters the items of a feed expose.
func (r *Relay) Fields(ctx context.Context, name string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}

	doc, err := r.fetcher.Fetch(ctx, e.url)
	if err != nil {
		return "", unreadable(err)
	}

	return format.AvailableFields(asItem(doc.First())), nil
}

func (r *Relay) Feed(name string) (FeedInfo, error) {
	e, err := r.lookup(name)
	if err != nil {
		return FeedInfo{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info(r.DefaultFormat()), nil
}

// List returns the feed named filter, or else the feeds posting to the
// channel filter. An empty filter lists every feed.
func (r *Relay) List(filter string) []FeedInfo {
	if filter != "" {
		if info, err := r.Feed(filter); err == nil {
			return []FeedInfo{info}
		}
	}

	fallback := r.DefaultFormat()
	var result []FeedInfo
	for _, e := range r.entries() {
		if filter != "" && e.channel != filter {
			continue
		}
		e.mu.Lock()
		result = append(result, e.info(fallback))
		e.mu.Unlock()
	}
	return result
}

// Names returns the registered feed names in order.
func (r *Relay) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Channels returns the distinct channels feeds post to.
func (r *Relay) Channels() []string {
	seen := make(map[string]bool)
	var channels []string
	for _, e := range r.entries() {
		if !seen[e.channel] {
			seen[e.channel] = true
			channels = append(channels, e.channel)
		}
	}
	sort.Strings(channels)
	return channels
}

// Evict caps the stored fingerprints of every feed.
func (r *Relay) Evict() int64 {
	var total int64
	for _, name := range r.Names() {
		removed, err := r.store.EvictOldest(name, r.maxHashes)
		if err != nil {
			slog.Error("Unable to evict hashes of feed", "feed", name, "error", err)
			r.metrics.RecordPersistenceFailure()
			continue
		}
		total += removed
	}
	r.metrics.RecordEvicted(total)
	return total
}

// SaveState evicts old fingerprints and writes the state file.
func (r *Relay) SaveState() error {
	r.Evict()

	if r.state == nil {
		return nil
	}

	if err := r.state.Save(r.Snapshot()); err != nil {
		slog.Error("Unable to save config to disk", "error", err)
		r.metrics.RecordPersistenceFailure()
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}

func (r *Relay) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.feeds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFeedNotFound, name)
	}
	return e, nil
}

func (r *Relay) exists(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

// entries returns the registered feeds ordered by name.
func (r *Relay) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entry, 0, len(r.feeds))
	for _, e := range r.feeds {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries
}

func unreadable(err error) error {
	if errors.Is(err, ErrUnreadableFeed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnreadableFeed, err)
}
