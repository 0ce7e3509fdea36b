package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher(nil, nil, "RSS-Relay/test", 5*time.Second)
	doc, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(doc.Items) != 3 {
		t.Errorf("Expected 3 items, got: %d", len(doc.Items))
	}
	if userAgent != "RSS-Relay/test" {
		t.Errorf("Expected user agent to be sent, got: %s", userAgent)
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(nil, nil, "", 5*time.Second).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got: %v", err)
	}
}

func TestFetchUnparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a feed</html>"))
	}))
	defer server.Close()

	_, err := NewFetcher(nil, nil, "", 5*time.Second).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got: %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewFetcher(nil, nil, "", 100*time.Millisecond).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Expected ErrUnreadable, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Expected fetch to be bounded by the timeout, took: %v", elapsed)
	}
}

func TestSafeClientRefusesLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher(NewHTTPClient(5*time.Second, true), nil, "", 5*time.Second)
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("Expected loopback fetch to be refused")
	}
}
