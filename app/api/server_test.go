package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/lysyi3m/rss-relay/app/relay"
)

const testKey = "secret"

type fakeDispatcher struct {
	lines [][]string
}

func (d *fakeDispatcher) Run(ctx context.Context, line string) []string {
	return d.Execute(ctx, strings.Fields(line))
}

func (d *fakeDispatcher) Execute(ctx context.Context, args []string) []string {
	d.lines = append(d.lines, args)
	if args[0] == "get" {
		return nil
	}
	return []string{"ran " + strings.Join(args, " ")}
}

type fakeFeeds struct {
	feeds []relay.FeedInfo
}

func (f *fakeFeeds) Feed(name string) (relay.FeedInfo, error) {
	for _, info := range f.feeds {
		if info.Name == name {
			return info, nil
		}
	}
	return relay.FeedInfo{}, fmt.Errorf("%w: %q", relay.ErrFeedNotFound, name)
}

func (f *fakeFeeds) List(filter string) []relay.FeedInfo {
	var result []relay.FeedInfo
	for _, info := range f.feeds {
		if filter == "" || info.Channel == filter {
			result = append(result, info)
		}
	}
	return result
}

func newTestServer(apiKey string) (http.Handler, *fakeDispatcher) {
	dispatcher := &fakeDispatcher{}
	feeds := &fakeFeeds{feeds: []relay.FeedInfo{
		{Channel: "#news", Name: "news", URL: "https://example.com/rss", Format: "fl+ftl", Hashes: 3},
	}}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "rss_relay_feeds 1\n")
	})

	return NewServer(NewHandler(dispatcher, feeds, "test"), metrics, apiKey), dispatcher
}

func doRequest(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer("")

	w := doRequest(server, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Expected JSON body, got: %v", err)
	}
	if health["feeds"] != float64(1) {
		t.Errorf("Expected 1 feed, got: %v", health["feeds"])
	}
	if health["version"] != "test" {
		t.Errorf("Expected version 'test', got: %v", health["version"])
	}
}

func TestMetrics(t *testing.T) {
	server, _ := newTestServer("")

	w := doRequest(server, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "rss_relay_feeds") {
		t.Errorf("Expected metrics output, got: %d %s", w.Code, w.Body.String())
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server, _ := newTestServer("")

	w := doRequest(server, http.MethodGet, "/api/feeds", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got: %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	server, _ := newTestServer(testKey)

	cases := []struct {
		headers map[string]string
		status  int
	}{
		{nil, http.StatusUnauthorized},
		{map[string]string{"X-API-Key": "wrong"}, http.StatusUnauthorized},
		{map[string]string{"X-API-Key": testKey}, http.StatusOK},
		{map[string]string{"Authorization": "Bearer " + testKey}, http.StatusOK},
	}

	for _, tc := range cases {
		w := doRequest(server, http.MethodGet, "/api/feeds", "", tc.headers)
		if w.Code != tc.status {
			t.Errorf("Expected status %d for %v, got: %d", tc.status, tc.headers, w.Code)
		}
	}
}

func TestListFeeds(t *testing.T) {
	server, _ := newTestServer(testKey)
	auth := map[string]string{"X-API-Key": testKey}

	w := doRequest(server, http.MethodGet, "/api/feeds", "", auth)
	var body struct {
		Feeds []relay.FeedInfo `json:"feeds"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body, got: %v", err)
	}
	if body.Total != 1 || body.Feeds[0].Name != "news" {
		t.Errorf("Expected feed news, got: %+v", body)
	}

	w = doRequest(server, http.MethodGet, "/api/feeds?filter=%23other", "", auth)
	if !strings.Contains(w.Body.String(), `"feeds":[]`) {
		t.Errorf("Expected empty feed list, got: %s", w.Body.String())
	}
}

func TestFeedDetails(t *testing.T) {
	server, _ := newTestServer(testKey)
	auth := map[string]string{"X-API-Key": testKey}

	w := doRequest(server, http.MethodGet, "/api/feeds/news", "", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}
	var info relay.FeedInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("Expected JSON body, got: %v", err)
	}
	if info.Format != "fl+ftl" || info.Hashes != 3 {
		t.Errorf("Expected format fl+ftl with 3 hashes, got: %+v", info)
	}

	w = doRequest(server, http.MethodGet, "/api/feeds/missing", "", auth)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got: %d", w.Code)
	}
}

func TestRunCommand(t *testing.T) {
	server, dispatcher := newTestServer(testKey)
	auth := map[string]string{"X-API-Key": testKey}

	w := doRequest(server, http.MethodPost, "/api/commands", `{"command":"list #news"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}
	var resp CommandResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got: %v", err)
	}
	if !reflect.DeepEqual(resp.Replies, []string{"ran list #news"}) {
		t.Errorf("Expected reply of list, got: %q", resp.Replies)
	}

	w = doRequest(server, http.MethodPost, "/api/commands", `{"args":["add","#news","my feed","https://example.com/rss"]}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got: %d", w.Code)
	}
	if got := dispatcher.lines[1]; len(got) != 4 || got[2] != "my feed" {
		t.Errorf("Expected args passed unchanged, got: %q", got)
	}

	w = doRequest(server, http.MethodPost, "/api/commands", `{"command":"get news"}`, auth)
	if !strings.Contains(w.Body.String(), `"replies":[]`) {
		t.Errorf("Expected empty replies, got: %s", w.Body.String())
	}
}

func TestRunCommandBadRequest(t *testing.T) {
	server, _ := newTestServer(testKey)
	auth := map[string]string{"X-API-Key": testKey}

	for _, body := range []string{`{}`, `{"command":"  "}`, `not json`} {
		w := doRequest(server, http.MethodPost, "/api/commands", body, auth)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got: %d", body, w.Code)
		}
	}
}
