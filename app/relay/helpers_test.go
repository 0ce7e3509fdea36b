package relay

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lysyi3m/rss-relay/app/database"
	"github.com/lysyi3m/rss-relay/app/feed"
)

const testURL = "https://example.com/rss"

type fakeFetcher struct {
	mu     sync.Mutex
	docs   map[string]*feed.Document
	errs   map[string]error
	calls  int
	before func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		docs: make(map[string]*feed.Document),
		errs: make(map[string]error),
	}
}

func (f *fakeFetcher) set(url string, doc *feed.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[url] = doc
	delete(f.errs, url)
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*feed.Document, error) {
	f.mu.Lock()
	f.calls++
	before := f.before
	doc, err := f.docs[url], f.errs[url]
	f.mu.Unlock()

	if before != nil {
		before(url)
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("no such feed")
	}
	return doc, nil
}

type post struct {
	channel string
	text    string
}

type recordingEmitter struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (e *recordingEmitter) Emit(ctx context.Context, channel, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.posts = append(e.posts, post{channel: channel, text: text})
	return nil
}

func (e *recordingEmitter) texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	texts := make([]string, 0, len(e.posts))
	for _, p := range e.posts {
		texts = append(texts, p.text)
	}
	return texts
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.posts = nil
}

// failingStore fails every fingerprint insert.
type failingStore struct {
	database.HashStore
}

func (s failingStore) InsertIfAbsent(feedName, hash string) (bool, error) {
	return false, errors.New("disk full")
}

func newTestStore(t *testing.T) *database.HashRepository {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return database.NewHashRepository(db)
}

// threeItems is a feed as served: newest first.
func threeItems() *feed.Document {
	return &feed.Document{
		Title: "News",
		Items: []feed.Item{
			{Title: "Title3", Link: "https://example.com/3"},
			{Title: "Title2", Link: "https://example.com/2"},
			{Title: "Title1", Link: "https://example.com/1"},
		},
	}
}

type testRelay struct {
	*Relay
	fetcher *fakeFetcher
	store   database.HashStore
	emitter *recordingEmitter
}

func newTestRelay(t *testing.T, store database.HashStore) *testRelay {
	t.Helper()

	if store == nil {
		store = newTestStore(t)
	}
	fetcher := newFakeFetcher()
	fetcher.set(testURL, threeItems())
	emitter := &recordingEmitter{}

	return &testRelay{
		Relay:   New(fetcher, store, emitter, Options{}),
		fetcher: fetcher,
		store:   store,
		emitter: emitter,
	}
}

func (tr *testRelay) mustAdd(t *testing.T, channel, name, url, rawFormat string) FeedInfo {
	t.Helper()

	info, err := tr.Add(context.Background(), channel, name, url, rawFormat)
	if err != nil {
		t.Fatalf("Failed to add feed %q: %v", name, err)
	}
	return info
}
