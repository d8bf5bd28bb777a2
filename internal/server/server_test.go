package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/store"
	"github.com/inkpath/plotline/pkg/story"
)

func testServer(t *testing.T) *httptest.Server {
	return testServerWith(t, nil)
}

func testServerWith(t *testing.T, c cache.Cache) *httptest.Server {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	srv := New(Config{
		Store:  fs,
		Cache:  c,
		Logger: log.NewWithOptions(io.Discard, log.Options{}),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// recordingCache captures every written key so tests can inspect key shapes.
type recordingCache struct {
	mu   sync.Mutex
	keys []string
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, key string) error { return nil }

func (c *recordingCache) Close() error { return nil }

func testStoryJSON() []byte {
	s := story.Story{
		ID:          "ignored", // the URL path wins
		Title:       "The Cave",
		FirstCardID: "root",
		Cards: []story.Card{
			{ID: "root", Title: "Entrance", Content: "x", ImageURL: "u"},
			{ID: "a", Title: "The Fork", Content: "x", ImageURL: "u", OrderIndex: 1},
			{ID: "lost", Title: "Lost Grotto", Content: "x", ImageURL: "u", OrderIndex: 2},
		},
		Choices: []story.Choice{
			{ID: "c1", SourceCardID: "root", TargetCardID: "a", Label: "enter"},
		},
	}
	data, _ := json.Marshal(s)
	return data
}

func doJSON(t *testing.T, method, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func putStory(t *testing.T, ts *httptest.Server, id string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPut, ts.URL+"/v1/stories/"+id, testStoryJSON())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", resp.StatusCode, body)
	}
}

func TestHealth(t *testing.T) {
	ts := testServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestStoryCRUD(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	// GET round-trips the story; the path ID is authoritative.
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/stories/tale", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	var got story.Story
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "tale" {
		t.Errorf("ID = %q, want the path ID", got.ID)
	}
	if got.Title != "The Cave" || got.CardCount() != 3 {
		t.Errorf("story = %+v", got)
	}

	// List includes it.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/stories/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list struct {
		StoryIDs []string `json:"story_ids"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.StoryIDs) != 1 || list.StoryIDs[0] != "tale" {
		t.Errorf("story_ids = %v", list.StoryIDs)
	}

	// DELETE, then GET is a 404.
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/v1/stories/tale", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/stories/tale", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", resp.StatusCode)
	}
}

func TestGetStoryNotFound(t *testing.T) {
	ts := testServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/stories/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var e struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatal(err)
	}
	if e.Error.Code != "STORY_NOT_FOUND" {
		t.Errorf("code = %q", e.Error.Code)
	}
}

func TestAnalyze(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/analyze",
		[]byte(`{"current_id":"a"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var got struct {
		StoryHash string `json:"story_hash"`
		Analysis  struct {
			RootID         string   `json:"root_id"`
			OrphanCardIDs  []string `json:"orphan_card_ids"`
			DeadEndCardIDs []string `json:"dead_end_card_ids"`
			MaxDepth       int      `json:"max_depth"`
		} `json:"analysis"`
		Trail *struct {
			OrderedPath []string `json:"ordered_path"`
		} `json:"trail"`
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, body)
	}

	if got.StoryHash == "" {
		t.Error("story_hash missing")
	}
	if got.Analysis.RootID != "root" || got.Analysis.MaxDepth != 1 {
		t.Errorf("analysis = %+v", got.Analysis)
	}
	if len(got.Analysis.OrphanCardIDs) != 1 || got.Analysis.OrphanCardIDs[0] != "lost" {
		t.Errorf("orphans = %v", got.Analysis.OrphanCardIDs)
	}
	if got.Trail == nil || len(got.Trail.OrderedPath) != 2 {
		t.Errorf("trail = %+v", got.Trail)
	}
	if len(got.Nodes) != 3 || len(got.Edges) != 1 {
		t.Errorf("%d nodes, %d edges", len(got.Nodes), len(got.Edges))
	}
}

func TestAnalyzeEmptyBody(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	// No body at all is fine: every option has a default.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/analyze", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), `"trail"`) {
		t.Error("trail should be omitted without a selection")
	}
}

func TestAnalyzeCacheKeysScopedPerStory(t *testing.T) {
	rc := &recordingCache{}
	ts := testServerWith(t, rc)
	putStory(t, ts, "one")
	putStory(t, ts, "two")

	for _, id := range []string{"one", "two"} {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/"+id+"/analyze", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("analyze %s = %d, body %s", id, resp.StatusCode, body)
		}
	}

	rc.mu.Lock()
	keys := slices.Clone(rc.keys)
	rc.mu.Unlock()
	if len(keys) == 0 {
		t.Fatal("no cache writes recorded")
	}

	var one, two int
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, "story:one:"):
			one++
		case strings.HasPrefix(k, "story:two:"):
			two++
		default:
			t.Errorf("key %q is not scoped to a story", k)
		}
	}
	if one == 0 || two == 0 {
		t.Errorf("expected writes for both stories, got one=%d two=%d", one, two)
	}
}

func TestAnalyzeBadPolicy(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/analyze",
		[]byte(`{"policy":"bogus"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAncestry(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/ancestry",
		[]byte(`{"current_id":"a"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var got struct {
		OrderedPath []string `json:"ordered_path"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.OrderedPath) != 2 || got.OrderedPath[0] != "root" || got.OrderedPath[1] != "a" {
		t.Errorf("ordered_path = %v", got.OrderedPath)
	}
}

func TestAncestryValidation(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/ancestry", []byte(`{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing current_id = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/ancestry",
		[]byte(`{"current_id":"ghost"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown card = %d, want 404", resp.StatusCode)
	}
}

func TestSuggest(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/suggest",
		[]byte(`{"orphan_card_id":"lost"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var got struct {
		Suggestions []struct {
			CardID string  `json:"card_id"`
			Score  float64 `json:"score"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Suggestions) == 0 {
		t.Fatal("expected suggestions for the orphan")
	}
	if got.Suggestions[0].Score <= 0 {
		t.Errorf("top score = %v", got.Suggestions[0].Score)
	}
}

func TestExportDOT(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/export",
		[]byte(`{"format":"dot"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}
	dot := string(body)
	if !strings.HasPrefix(dot, "digraph story {") {
		t.Errorf("body is not DOT:\n%s", dot)
	}
	if !strings.Contains(dot, `label="The Cave"`) {
		t.Error("graph title missing")
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	ts := testServer(t)
	putStory(t, ts, "tale")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/stories/tale/export",
		[]byte(`{"format":"png"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
