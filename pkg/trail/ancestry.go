// Package trail derives path-relative information for the currently viewed
// card: the root-to-card ancestry used for breadcrumb highlighting, branch
// depth, and a normalized progress value with milestone markers.
//
// Everything here is a pure function over story snapshots and a previously
// computed analysis. Disconnected cards, missing roots, and cycles all
// degrade to well-defined results rather than errors.
package trail

import "github.com/inkpath/plotline/pkg/story"

// Ancestry describes the shortest root-to-card path.
type Ancestry struct {
	// PathNodeIDs is the set of card IDs on the path, including both ends.
	PathNodeIDs map[string]bool

	// PathEdgeIDs is the set of choice IDs traversed along the path.
	PathEdgeIDs map[string]bool

	// OrderedPath lists the card IDs from root to current, inclusive.
	// For the root itself, or for a card with no backward path to the root,
	// it contains only the current card.
	OrderedPath []string
}

// step records how a card was first reached during the backward search.
type step struct {
	parentID string
	choiceID string
}

// AncestryPath finds the shortest path from root to the current card by
// searching backward over the parent index (BFS, so the first time the root
// is reached the path is shortest in edge count).
//
// Multiple parents are supported; which shortest path wins follows choice
// insertion order. If the current card cannot reach the root backward
// (orphaned or disconnected), the result is the singleton path of the card
// itself with no edges. A global visited set makes cycles terminate.
func AncestryPath(currentID, rootID string, choices []story.Choice) Ancestry {
	single := Ancestry{
		PathNodeIDs: map[string]bool{currentID: true},
		PathEdgeIDs: map[string]bool{},
		OrderedPath: []string{currentID},
	}
	if currentID == rootID || rootID == "" || currentID == "" {
		return single
	}

	parents := parentIndex(choices)

	// cameFrom[p] records the child (and connecting choice) from which the
	// backward search first reached p. Walking cameFrom from the root back
	// to currentID reconstructs the forward path.
	cameFrom := map[string]step{}
	visited := map[string]bool{currentID: true}
	queue := []string{currentID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, ref := range parents[id] {
			if visited[ref.ParentID] {
				continue
			}
			visited[ref.ParentID] = true
			cameFrom[ref.ParentID] = step{parentID: id, choiceID: ref.ChoiceID}
			if ref.ParentID == rootID {
				return reconstruct(rootID, currentID, cameFrom)
			}
			queue = append(queue, ref.ParentID)
		}
	}

	return single
}

// reconstruct walks cameFrom from the root forward to the current card.
func reconstruct(rootID, currentID string, cameFrom map[string]step) Ancestry {
	a := Ancestry{
		PathNodeIDs: map[string]bool{},
		PathEdgeIDs: map[string]bool{},
	}

	id := rootID
	for {
		a.OrderedPath = append(a.OrderedPath, id)
		a.PathNodeIDs[id] = true
		if id == currentID {
			return a
		}
		s, ok := cameFrom[id]
		if !ok {
			// Should not happen for a path found by the BFS; bail out
			// rather than loop.
			return a
		}
		a.PathEdgeIDs[s.choiceID] = true
		id = s.parentID
	}
}

// parentIndex builds targetCardID -> incoming refs over non-dangling choices.
// Unlike story.ParentIndex it does not verify card existence: a choice whose
// endpoints were deleted simply leads nowhere during the search.
func parentIndex(choices []story.Choice) map[string][]story.ParentRef {
	parents := make(map[string][]story.ParentRef)
	for _, ch := range choices {
		if ch.TargetCardID == "" {
			continue
		}
		parents[ch.TargetCardID] = append(parents[ch.TargetCardID], story.ParentRef{
			ParentID: ch.SourceCardID,
			ChoiceID: ch.ID,
		})
	}
	return parents
}
