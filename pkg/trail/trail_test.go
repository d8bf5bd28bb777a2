package trail

import (
	"math"
	"testing"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/story"
)

// forkStory is root -> a -> end, root -> b -> end (a diamond).
func forkStory() *story.Story {
	return &story.Story{
		FirstCardID: "root",
		Cards: []story.Card{
			{ID: "root"}, {ID: "a"}, {ID: "b"}, {ID: "end"},
		},
		Choices: []story.Choice{
			{ID: "c1", SourceCardID: "root", TargetCardID: "a"},
			{ID: "c2", SourceCardID: "root", TargetCardID: "b"},
			{ID: "c3", SourceCardID: "a", TargetCardID: "end"},
			{ID: "c4", SourceCardID: "b", TargetCardID: "end"},
		},
	}
}

func TestAncestryPathLinear(t *testing.T) {
	s := forkStory()
	got := AncestryPath("end", "root", s.Choices)

	if len(got.OrderedPath) != 3 {
		t.Fatalf("OrderedPath = %v, want 3 cards", got.OrderedPath)
	}
	if got.OrderedPath[0] != "root" || got.OrderedPath[2] != "end" {
		t.Errorf("OrderedPath = %v", got.OrderedPath)
	}
	mid := got.OrderedPath[1]
	if mid != "a" && mid != "b" {
		t.Errorf("middle card = %q, want a or b", mid)
	}
	if !got.PathNodeIDs["root"] || !got.PathNodeIDs[mid] || !got.PathNodeIDs["end"] {
		t.Errorf("PathNodeIDs = %v", got.PathNodeIDs)
	}
	if len(got.PathEdgeIDs) != 2 {
		t.Errorf("PathEdgeIDs = %v, want 2 edges", got.PathEdgeIDs)
	}
}

func TestAncestryPathShortest(t *testing.T) {
	// root -> end directly, and root -> a -> end. BFS must pick the short one.
	choices := []story.Choice{
		{ID: "c1", SourceCardID: "root", TargetCardID: "a"},
		{ID: "c2", SourceCardID: "a", TargetCardID: "end"},
		{ID: "c3", SourceCardID: "root", TargetCardID: "end"},
	}
	got := AncestryPath("end", "root", choices)

	want := []string{"root", "end"}
	if len(got.OrderedPath) != 2 || got.OrderedPath[0] != want[0] || got.OrderedPath[1] != want[1] {
		t.Errorf("OrderedPath = %v, want %v", got.OrderedPath, want)
	}
	if !got.PathEdgeIDs["c3"] || len(got.PathEdgeIDs) != 1 {
		t.Errorf("PathEdgeIDs = %v, want {c3}", got.PathEdgeIDs)
	}
}

func TestAncestryPathRoot(t *testing.T) {
	got := AncestryPath("root", "root", forkStory().Choices)
	if len(got.OrderedPath) != 1 || got.OrderedPath[0] != "root" {
		t.Errorf("OrderedPath = %v, want [root]", got.OrderedPath)
	}
	if len(got.PathEdgeIDs) != 0 {
		t.Errorf("PathEdgeIDs = %v, want empty", got.PathEdgeIDs)
	}
}

func TestAncestryPathDisconnected(t *testing.T) {
	s := forkStory()
	got := AncestryPath("island", "root", s.Choices)

	if len(got.OrderedPath) != 1 || got.OrderedPath[0] != "island" {
		t.Errorf("OrderedPath = %v, want singleton", got.OrderedPath)
	}
	if !got.PathNodeIDs["island"] || len(got.PathNodeIDs) != 1 {
		t.Errorf("PathNodeIDs = %v", got.PathNodeIDs)
	}
}

func TestAncestryPathCycleTerminates(t *testing.T) {
	// a <-> b cycle with no route to root.
	choices := []story.Choice{
		{ID: "c1", SourceCardID: "a", TargetCardID: "b"},
		{ID: "c2", SourceCardID: "b", TargetCardID: "a"},
	}
	got := AncestryPath("b", "root", choices)
	if len(got.OrderedPath) != 1 || got.OrderedPath[0] != "b" {
		t.Errorf("OrderedPath = %v, want [b]", got.OrderedPath)
	}
}

func TestAncestryPathEmptyRoot(t *testing.T) {
	got := AncestryPath("a", "", forkStory().Choices)
	if len(got.OrderedPath) != 1 || got.OrderedPath[0] != "a" {
		t.Errorf("OrderedPath = %v, want [a]", got.OrderedPath)
	}
}

func TestBranchDepthDiamond(t *testing.T) {
	s := forkStory()
	a := analyze.Analyze(s, "root", analyze.Options{Completeness: analyze.TextOnlyCompleteness})

	info := BranchDepth("a", a)
	if info.CurrentDepth != 1 {
		t.Errorf("CurrentDepth = %d, want 1", info.CurrentDepth)
	}
	if info.MaxDepthInBranch != 2 {
		t.Errorf("MaxDepthInBranch = %d, want 2", info.MaxDepthInBranch)
	}
	if info.IsTerminal {
		t.Error("a has an outgoing choice, not terminal")
	}

	info = BranchDepth("end", a)
	if !info.IsTerminal {
		t.Error("end should be terminal")
	}
	if info.CurrentDepth != 2 {
		t.Errorf("CurrentDepth = %d, want 2", info.CurrentDepth)
	}
}

func TestBranchDepthCycle(t *testing.T) {
	s := forkStory()
	// end -> root closes the loop; subtree height must still settle.
	s.Choices = append(s.Choices, story.Choice{ID: "c5", SourceCardID: "end", TargetCardID: "root"})
	a := analyze.Analyze(s, "root", analyze.Options{Completeness: analyze.TextOnlyCompleteness})

	info := BranchDepth("root", a)
	// root -> a -> end -> (back edge contributes nothing)
	if info.MaxDepthInBranch != 2 {
		t.Errorf("MaxDepthInBranch = %d, want 2", info.MaxDepthInBranch)
	}
}

func TestBranchDepthUnreachable(t *testing.T) {
	s := forkStory()
	s.Cards = append(s.Cards, story.Card{ID: "island"})
	a := analyze.Analyze(s, "root", analyze.Options{Completeness: analyze.TextOnlyCompleteness})

	info := BranchDepth("island", a)
	if info.CurrentDepth != 0 {
		t.Errorf("CurrentDepth = %d, want 0 for unreachable card", info.CurrentDepth)
	}
	if !info.IsTerminal {
		t.Error("island has no choices, should be terminal")
	}
}

func TestPathProgressValues(t *testing.T) {
	s := forkStory()
	a := analyze.Analyze(s, "root", analyze.Options{Completeness: analyze.TextOnlyCompleteness})

	tests := []struct {
		name      string
		currentID string
		prevDepth int
		value     float64
		forward   bool
	}{
		{"root", "root", 0, 1.0 / 3.0, false},
		{"middle forward", "a", 0, 2.0 / 3.0, true},
		{"ending", "end", 1, 1.0, true},
		{"backtrack", "a", 2, 2.0 / 3.0, false},
		{"unreachable reports root progress", "island", 0, 1.0 / 3.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PathProgress(tt.currentID, tt.prevDepth, a)
			if math.Abs(p.Value-tt.value) > 1e-9 {
				t.Errorf("Value = %v, want %v", p.Value, tt.value)
			}
			if p.Forward != tt.forward {
				t.Errorf("Forward = %v, want %v", p.Forward, tt.forward)
			}
			if p.MaxDepth != 2 {
				t.Errorf("MaxDepth = %d, want 2", p.MaxDepth)
			}
		})
	}
}

func TestPathProgressMilestones(t *testing.T) {
	s := forkStory()
	s.Cards = append(s.Cards, story.Card{ID: "island"}) // unreachable dead end
	a := analyze.Analyze(s, "root", analyze.Options{Completeness: analyze.TextOnlyCompleteness})

	p := PathProgress("a", 0, a)

	kinds := map[string][]MilestoneKind{}
	for _, m := range p.Milestones {
		kinds[m.CardID] = append(kinds[m.CardID], m.Kind)
	}

	if got := kinds["root"]; len(got) != 2 {
		// root has two outgoing choices: both the root and branch markers.
		t.Errorf("root milestones = %v, want root+branch", got)
	}
	if got := kinds["end"]; len(got) != 1 || got[0] != MilestoneTerminal {
		t.Errorf("end milestones = %v, want terminal", got)
	}
	if got := kinds["a"]; len(got) != 1 || got[0] != MilestoneCurrent {
		t.Errorf("a milestones = %v, want current", got)
	}
	if _, ok := kinds["island"]; ok {
		t.Error("unreachable cards should produce no milestones")
	}

	// Sorted by position, then card ID
	for i := 1; i < len(p.Milestones); i++ {
		prev, cur := p.Milestones[i-1], p.Milestones[i]
		if cur.Position < prev.Position {
			t.Errorf("milestones out of order at %d: %v", i, p.Milestones)
		}
		if cur.Position == prev.Position && cur.CardID < prev.CardID {
			t.Errorf("ties not broken by card ID at %d: %v", i, p.Milestones)
		}
	}
}
