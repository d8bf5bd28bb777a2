package pipeline

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/scene"
	"github.com/inkpath/plotline/pkg/story"
)

func testStory() *story.Story {
	return &story.Story{
		ID:          "tale",
		FirstCardID: "root",
		Cards: []story.Card{
			{ID: "root", Title: "Opening", Content: "x", ImageURL: "u"},
			{ID: "a", Title: "Left", Content: "x", ImageURL: "u"},
			{ID: "b", Title: "Right", Content: "x", ImageURL: "u"},
			{ID: "lost", Title: "Lost", Content: "x", ImageURL: "u"},
		},
		Choices: []story.Choice{
			{ID: "c1", SourceCardID: "root", TargetCardID: "a", Label: "left"},
			{ID: "c2", SourceCardID: "root", TargetCardID: "b", Label: "right"},
		},
	}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func fileRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return NewRunner(c, nil, quietLogger())
}

func TestExecuteBasics(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	result, err := r.Execute(context.Background(), testStory(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.StoryHash == "" {
		t.Error("StoryHash should be set")
	}
	if result.Analysis == nil {
		t.Fatal("Analysis should be set")
	}
	if !result.Analysis.OrphanCards["lost"] {
		t.Errorf("OrphanCards = %v", result.Analysis.OrphanCards)
	}
	if len(result.Nodes) != 4 || len(result.Edges) != 2 {
		t.Errorf("projected %d nodes, %d edges", len(result.Nodes), len(result.Edges))
	}
	if result.Stats.CardCount != 4 || result.Stats.ChoiceCount != 2 {
		t.Errorf("Stats = %+v", result.Stats)
	}

	// First render: everything lands in ToAdd.
	if len(result.NodeDiff.ToAdd) != 4 || len(result.NodeDiff.Unchanged) != 0 {
		t.Errorf("NodeDiff = %+v", result.NodeDiff)
	}
	if len(result.EdgeDiff.ToAdd) != 2 {
		t.Errorf("EdgeDiff = %+v", result.EdgeDiff)
	}
}

func TestExecuteInvalidPolicy(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	if _, err := r.Execute(context.Background(), testStory(), Options{Policy: "bogus"}); err == nil {
		t.Error("invalid policy should fail")
	}
}

func TestExecuteTrail(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	result, err := r.Execute(context.Background(), testStory(), Options{CurrentID: "a"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"root", "a"}
	if len(result.Ancestry.OrderedPath) != 2 ||
		result.Ancestry.OrderedPath[0] != want[0] || result.Ancestry.OrderedPath[1] != want[1] {
		t.Errorf("OrderedPath = %v, want %v", result.Ancestry.OrderedPath, want)
	}
	if result.Branch.CurrentDepth != 1 {
		t.Errorf("CurrentDepth = %d, want 1", result.Branch.CurrentDepth)
	}
	if result.Progress.Value != 1.0 {
		t.Errorf("Progress.Value = %v, want 1.0 at max depth", result.Progress.Value)
	}

	// Without a selection the trail stays zero-valued.
	result, err = r.Execute(context.Background(), testStory(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Ancestry.OrderedPath != nil {
		t.Errorf("OrderedPath without selection = %v", result.Ancestry.OrderedPath)
	}
}

func TestExecuteCacheHit(t *testing.T) {
	r := fileRunner(t)
	ctx := context.Background()
	s := testStory()

	first, err := r.Execute(ctx, s, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheInfo.AnalysisHit || first.CacheInfo.SceneHit {
		t.Errorf("first run should miss: %+v", first.CacheInfo)
	}

	second, err := r.Execute(ctx, s, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheInfo.AnalysisHit || !second.CacheInfo.SceneHit {
		t.Errorf("second run should hit: %+v", second.CacheInfo)
	}
	if second.StoryHash != first.StoryHash {
		t.Error("hash should be stable across runs")
	}
	if len(second.Nodes) != len(first.Nodes) || len(second.Edges) != len(first.Edges) {
		t.Errorf("cached projection differs: %d/%d vs %d/%d",
			len(second.Nodes), len(second.Edges), len(first.Nodes), len(first.Edges))
	}

	// Editing the story changes the hash and misses.
	s.Cards[0].Title = "Changed"
	third, err := r.Execute(ctx, s, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if third.StoryHash == first.StoryHash {
		t.Error("edit should change the story hash")
	}
	if third.CacheInfo.AnalysisHit {
		t.Error("edited story should miss the analysis cache")
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	r := fileRunner(t)
	ctx := context.Background()
	s := testStory()

	if _, err := r.Execute(ctx, s, Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, err := r.Execute(ctx, s, Options{Refresh: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.CacheInfo.AnalysisHit || result.CacheInfo.SceneHit {
		t.Errorf("Refresh should bypass the cache: %+v", result.CacheInfo)
	}
}

func TestExecuteCachedPositionsFollowCaller(t *testing.T) {
	r := fileRunner(t)
	ctx := context.Background()
	s := testStory()

	if _, err := r.Execute(ctx, s, Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pos := map[string]scene.Position{"a": {X: 240, Y: 80}}
	result, err := r.Execute(ctx, s, Options{Positions: pos})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.CacheInfo.SceneHit {
		t.Fatal("second run should hit the scene cache")
	}
	for _, n := range result.Nodes {
		if n.ID == "a" && n.Position != pos["a"] {
			t.Errorf("a position = %+v, want caller's %+v", n.Position, pos["a"])
		}
	}
}

func TestExecuteSuggestionsSkipSceneCache(t *testing.T) {
	r := fileRunner(t)
	ctx := context.Background()
	s := testStory()

	opts := Options{
		Suggestions: []scene.SuggestedCard{{ID: "s1", Title: "Ghost", SourceCardID: "root"}},
	}
	if _, err := r.Execute(ctx, s, opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, err := r.Execute(ctx, s, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.CacheInfo.SceneHit {
		t.Error("runs with suggestions must not use the scene cache")
	}

	// A later run without suggestions must not see the ghost either.
	result, err = r.Execute(ctx, s, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, n := range result.Nodes {
		if n.Kind == scene.KindSuggestion {
			t.Error("ghost node leaked into a suggestion-free run")
		}
	}
}

func TestExecuteDiffAgainstPrevious(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	ctx := context.Background()
	s := testStory()

	first, err := r.Execute(ctx, s, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	s.Cards = append(s.Cards, story.Card{ID: "fresh", Title: "Fresh", Content: "x", ImageURL: "u"})
	second, err := r.Execute(ctx, s, Options{Previous: first.View()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(second.NodeDiff.ToAdd) != 1 || second.NodeDiff.ToAdd[0].ID != "fresh" {
		t.Errorf("ToAdd = %+v", second.NodeDiff.ToAdd)
	}
	if len(second.NodeDiff.ToRemove) != 0 {
		t.Errorf("ToRemove = %+v", second.NodeDiff.ToRemove)
	}
	if len(second.NodeDiff.Unchanged) != 4 {
		t.Errorf("Unchanged = %d, want 4", len(second.NodeDiff.Unchanged))
	}
}

func TestExecuteRootOverride(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	result, err := r.Execute(context.Background(), testStory(), Options{RootID: "a"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Analysis.RootID != "a" {
		t.Errorf("RootID = %q, want a", result.Analysis.RootID)
	}
}
