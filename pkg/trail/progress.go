package trail

import (
	"slices"

	"github.com/inkpath/plotline/pkg/analyze"
)

// MilestoneKind classifies markers along the progress track.
type MilestoneKind string

// Milestone kinds, ordered roughly by narrative significance.
const (
	MilestoneRoot     MilestoneKind = "root"
	MilestoneBranch   MilestoneKind = "branch"
	MilestoneTerminal MilestoneKind = "terminal"
	MilestoneCurrent  MilestoneKind = "current"
)

// Milestone is one marker on the progress track.
type Milestone struct {
	CardID   string
	Kind     MilestoneKind
	Position float64 // Normalized [0,1] position along the story depth
}

// Progress describes how far through the story the current card is.
type Progress struct {
	// Value is (currentDepth+1)/(maxStoryDepth+1), in [0,1].
	//
	// The denominator is the whole story's reachable depth from the root,
	// not a branch-local maximum. A branch-local denominator would make the
	// progress bar jump backward when an unrelated part of the story grows,
	// so the stable whole-story depth is used throughout.
	Value float64

	// Forward reports whether this card is deeper than the previously
	// viewed one (true = moving toward an ending, false = backtracking or
	// sideways).
	Forward bool

	// CurrentDepth and MaxDepth are the raw inputs to Value.
	CurrentDepth int
	MaxDepth     int

	// Milestones are markers for the root, branch points, terminals, and
	// the current card, each positioned on the same normalized scale as
	// Value. Sorted by position, then card ID.
	Milestones []Milestone
}

// PathProgress computes the progress of currentID through the analyzed story.
// previousDepth is the depth of the card viewed before this one (pass the
// previous Progress.CurrentDepth, or 0 on first view).
//
// Unreachable cards report depth 0, so their progress equals the root's.
func PathProgress(currentID string, previousDepth int, a *analyze.Analysis) Progress {
	currentDepth := 0
	if d, ok := a.Depth[currentID]; ok {
		currentDepth = d
	}
	maxDepth := a.MaxDepth()

	p := Progress{
		Value:        float64(currentDepth+1) / float64(maxDepth+1),
		Forward:      currentDepth > previousDepth,
		CurrentDepth: currentDepth,
		MaxDepth:     maxDepth,
	}
	p.Milestones = milestones(currentID, maxDepth, a)
	return p
}

// milestones collects markers for reachable cards only - unreachable branch
// points and dead ends have no defined position on the depth scale.
func milestones(currentID string, maxDepth int, a *analyze.Analysis) []Milestone {
	position := func(cardID string) float64 {
		return float64(a.Depth[cardID]+1) / float64(maxDepth+1)
	}

	var ms []Milestone
	if a.RootID != "" && a.IsReachable(a.RootID) {
		ms = append(ms, Milestone{CardID: a.RootID, Kind: MilestoneRoot, Position: position(a.RootID)})
	}
	for id := range a.Depth {
		if a.ChoiceCount[id] > 1 {
			ms = append(ms, Milestone{CardID: id, Kind: MilestoneBranch, Position: position(id)})
		}
		if a.DeadEndCards[id] {
			ms = append(ms, Milestone{CardID: id, Kind: MilestoneTerminal, Position: position(id)})
		}
	}
	if a.IsReachable(currentID) {
		ms = append(ms, Milestone{CardID: currentID, Kind: MilestoneCurrent, Position: position(currentID)})
	}

	slices.SortStableFunc(ms, func(x, y Milestone) int {
		if x.Position != y.Position {
			if x.Position < y.Position {
				return -1
			}
			return 1
		}
		if x.CardID < y.CardID {
			return -1
		}
		if x.CardID > y.CardID {
			return 1
		}
		return 0
	})
	return ms
}
