// Package analyze computes structural diagnostics for a story graph.
//
// The analyzer treats cards and choices as a directed graph and derives, in a
// single pass plus one BFS, everything the editor needs to flag problems:
// orphaned cards, dead ends, incomplete cards, per-card choice counts, and
// BFS depth from the designated root.
//
// Analysis is a pure function of the story snapshot passed in. It never
// mutates its inputs, holds no state between calls, and is deterministic for
// a given input (map iteration order affects only unspecified child ordering,
// never set membership).
package analyze

import "github.com/inkpath/plotline/pkg/story"

// Analysis holds the structural diagnostics derived from one story snapshot.
// Set-valued fields use map[string]bool with only true entries.
type Analysis struct {
	// OrphanCards are cards with no incoming choice that are not the root.
	OrphanCards map[string]bool

	// DeadEndCards are cards with no outgoing choices, reachable or not.
	DeadEndCards map[string]bool

	// IncompleteCards are cards failing the completeness policy.
	IncompleteCards map[string]bool

	// ChoiceCount maps each card to its number of outgoing choices,
	// including dangling ones (an authored choice counts even before it
	// points anywhere).
	ChoiceCount map[string]int

	// Depth maps each card to its BFS distance from the root.
	// Cards unreachable from the root have no entry.
	Depth map[string]int

	// ChildrenMap is the forward adjacency map over non-dangling choices.
	ChildrenMap map[string][]string

	// RootID is the root passed to Analyze, possibly empty.
	RootID string
}

// IsReachable reports whether the card was reached by the root BFS.
func (a *Analysis) IsReachable(cardID string) bool {
	_, ok := a.Depth[cardID]
	return ok
}

// MaxDepth returns the greatest depth of any reachable card, or 0 when
// nothing is reachable (including the no-root case).
func (a *Analysis) MaxDepth() int {
	max := 0
	for _, d := range a.Depth {
		if d > max {
			max = d
		}
	}
	return max
}

// Options configures an analysis run.
type Options struct {
	// Completeness overrides the completeness policy.
	// Nil means DefaultCompleteness.
	Completeness CompletenessPolicy
}

// Analyze computes the full structural diagnostics for a story.
//
// rootID may be empty, in which case no card is reachable and the depth map
// is empty; orphan and dead-end classification still apply. A rootID naming a
// non-existent card behaves the same as an empty root. Cycles in the choice
// graph are expected and terminate via the BFS visited set.
func Analyze(s *story.Story, rootID string, opts Options) *Analysis {
	complete := opts.Completeness
	if complete == nil {
		complete = DefaultCompleteness
	}

	exists := s.CardSet()
	if !exists[rootID] {
		rootID = ""
	}

	// One pass over choices builds both link sets and the children map.
	hasIncoming := make(map[string]bool, len(s.Cards))
	hasOutgoing := make(map[string]bool, len(s.Cards))
	choiceCount := make(map[string]int, len(s.Cards))
	children := make(map[string][]string)

	for _, ch := range s.Choices {
		if !exists[ch.SourceCardID] {
			continue
		}
		hasOutgoing[ch.SourceCardID] = true
		choiceCount[ch.SourceCardID]++
		if ch.TargetCardID == "" || !exists[ch.TargetCardID] {
			continue // dangling or stale target
		}
		hasIncoming[ch.TargetCardID] = true
		children[ch.SourceCardID] = append(children[ch.SourceCardID], ch.TargetCardID)
	}

	// The root is the canonical start of the story, never an orphan.
	if rootID != "" {
		hasIncoming[rootID] = true
	}

	a := &Analysis{
		OrphanCards:     make(map[string]bool),
		DeadEndCards:    make(map[string]bool),
		IncompleteCards: make(map[string]bool),
		ChoiceCount:     choiceCount,
		Depth:           bfsDepth(rootID, children),
		ChildrenMap:     children,
		RootID:          rootID,
	}

	for _, c := range s.Cards {
		if !hasIncoming[c.ID] {
			a.OrphanCards[c.ID] = true
		}
		if !hasOutgoing[c.ID] {
			a.DeadEndCards[c.ID] = true
		}
		if !complete(c) {
			a.IncompleteCards[c.ID] = true
		}
	}

	return a
}

// bfsDepth runs a breadth-first traversal from root over the children map and
// returns distance-from-root for every reached card. The visited set doubles
// as the result map, so cycles terminate and revisits keep their first
// (shortest) depth.
func bfsDepth(rootID string, children map[string][]string) map[string]int {
	depth := make(map[string]int)
	if rootID == "" {
		return depth
	}

	depth[rootID] = 0
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if _, seen := depth[child]; seen {
				continue
			}
			depth[child] = depth[id] + 1
			queue = append(queue, child)
		}
	}
	return depth
}
