package trail

import "github.com/inkpath/plotline/pkg/analyze"

// BranchInfo describes where the current card sits within the story's depth
// structure.
type BranchInfo struct {
	// CurrentDepth is the BFS depth of the current card, 0 if unreachable.
	CurrentDepth int

	// MaxDepthInBranch is the deepest depth reachable from the root.
	MaxDepthInBranch int

	// IsTerminal reports whether the current card is a dead end.
	IsTerminal bool
}

// BranchDepth computes depth information for the current card.
//
// MaxDepthInBranch is found by a memoized depth-first walk over the children
// map starting at the root. Memoization keeps diamond-shaped graphs linear
// (each card's subtree height is computed once) and the in-progress marker
// makes cycles terminate: a back edge contributes no extra height.
func BranchDepth(currentID string, a *analyze.Analysis) BranchInfo {
	info := BranchInfo{
		IsTerminal: a.DeadEndCards[currentID],
	}
	if d, ok := a.Depth[currentID]; ok {
		info.CurrentDepth = d
	}
	if a.RootID == "" {
		return info
	}

	const inProgress = -1
	height := map[string]int{}

	// subtreeHeight returns the number of edges on the longest downward path
	// from id. Cards currently on the DFS stack report 0 so cycles settle.
	var subtreeHeight func(id string) int
	subtreeHeight = func(id string) int {
		if h, ok := height[id]; ok {
			if h == inProgress {
				return 0
			}
			return h
		}
		height[id] = inProgress
		max := 0
		for _, child := range a.ChildrenMap[id] {
			if h := subtreeHeight(child) + 1; h > max {
				max = h
			}
		}
		height[id] = max
		return max
	}

	info.MaxDepthInBranch = subtreeHeight(a.RootID)
	return info
}
