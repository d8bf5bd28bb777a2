// Package navigate converts a laid-out story graph into lookup tables for
// keyboard traversal: parent/child/sibling adjacency plus depth-indexed
// ordering. The package is agnostic to how key events are captured - a
// terminal UI, a browser, or a test feeds moves in and reads card IDs out.
//
// Every lookup degrades to ("", false) when no target exists - pressing Left
// at the root is a no-op, never a panic.
package navigate

import (
	"slices"

	"github.com/inkpath/plotline/pkg/story"
)

// Placed is a node with its final 2D layout position and precomputed depth.
type Placed struct {
	ID    string
	X, Y  float64
	Depth int
}

// Direction is an arrow-key movement.
type Direction int

// Arrow-key directions.
const (
	DirLeft  Direction = iota // first parent
	DirRight                  // first child
	DirUp                     // previous sibling at same depth
	DirDown                   // next sibling at same depth
)

// Shortcut is a jump-key movement.
type Shortcut int

// Jump shortcuts.
const (
	JumpHome     Shortcut = iota // root
	JumpEnd                      // last node in depth-major order
	JumpPageUp                   // first parent, falling back to depth-1
	JumpPageDown                 // first child, falling back to depth+1
)

// Map holds the precomputed traversal tables for one layout snapshot.
// Build a fresh Map whenever the layout or the graph changes.
type Map struct {
	Parents      map[string][]string
	Children     map[string][]string
	Siblings     map[string][]string // same-depth nodes, excluding self, by vertical position
	DepthToNodes map[int][]string    // sorted by vertical position for stable up/down order
	NodeToDepth  map[string]int
	RootID       string

	depths []int // sorted distinct depths for depth-major traversal
}

// Build constructs the navigation map from laid-out nodes and choices.
// Choices whose endpoints are not in the placed set are ignored, as are
// dangling choices.
func Build(nodes []Placed, choices []story.Choice, rootID string) *Map {
	m := &Map{
		Parents:      make(map[string][]string),
		Children:     make(map[string][]string),
		Siblings:     make(map[string][]string),
		DepthToNodes: make(map[int][]string),
		NodeToDepth:  make(map[string]int, len(nodes)),
		RootID:       rootID,
	}

	placed := make(map[string]Placed, len(nodes))
	for _, n := range nodes {
		placed[n.ID] = n
		m.NodeToDepth[n.ID] = n.Depth
	}

	for _, ch := range choices {
		if ch.TargetCardID == "" {
			continue
		}
		if _, ok := placed[ch.SourceCardID]; !ok {
			continue
		}
		if _, ok := placed[ch.TargetCardID]; !ok {
			continue
		}
		m.Children[ch.SourceCardID] = append(m.Children[ch.SourceCardID], ch.TargetCardID)
		m.Parents[ch.TargetCardID] = append(m.Parents[ch.TargetCardID], ch.SourceCardID)
	}

	// Group by depth, order each level by vertical position (ties by X,
	// then ID, so the order is total and stable across rebuilds).
	byDepth := make(map[int][]Placed)
	for _, n := range nodes {
		byDepth[n.Depth] = append(byDepth[n.Depth], n)
	}
	for depth, level := range byDepth {
		slices.SortStableFunc(level, func(a, b Placed) int {
			switch {
			case a.Y != b.Y:
				if a.Y < b.Y {
					return -1
				}
				return 1
			case a.X != b.X:
				if a.X < b.X {
					return -1
				}
				return 1
			case a.ID < b.ID:
				return -1
			case a.ID > b.ID:
				return 1
			}
			return 0
		})
		ids := make([]string, len(level))
		for i, n := range level {
			ids[i] = n.ID
		}
		m.DepthToNodes[depth] = ids
		for _, id := range ids {
			for _, sibling := range ids {
				if sibling != id {
					m.Siblings[id] = append(m.Siblings[id], sibling)
				}
			}
		}
		m.depths = append(m.depths, depth)
	}
	slices.Sort(m.depths)

	return m
}

// Move resolves one arrow-key step from the given node.
// Returns ("", false) when there is no target in that direction.
func (m *Map) Move(fromID string, dir Direction) (string, bool) {
	switch dir {
	case DirRight:
		return first(m.Children[fromID])
	case DirLeft:
		return first(m.Parents[fromID])
	case DirUp:
		return m.step(fromID, -1)
	case DirDown:
		return m.step(fromID, +1)
	}
	return "", false
}

// Jump resolves one shortcut-key movement from the given node.
// Returns ("", false) when there is no target.
func (m *Map) Jump(fromID string, sc Shortcut) (string, bool) {
	switch sc {
	case JumpHome:
		if m.RootID == "" {
			return "", false
		}
		if _, ok := m.NodeToDepth[m.RootID]; !ok {
			return "", false
		}
		return m.RootID, true
	case JumpEnd:
		return m.last()
	case JumpPageUp:
		if id, ok := first(m.Parents[fromID]); ok {
			return id, true
		}
		return m.firstAtDepth(m.NodeToDepth[fromID] - 1)
	case JumpPageDown:
		if id, ok := first(m.Children[fromID]); ok {
			return id, true
		}
		return m.firstAtDepth(m.NodeToDepth[fromID] + 1)
	}
	return "", false
}

// step moves delta positions within the node's depth level.
func (m *Map) step(fromID string, delta int) (string, bool) {
	depth, ok := m.NodeToDepth[fromID]
	if !ok {
		return "", false
	}
	level := m.DepthToNodes[depth]
	idx := slices.Index(level, fromID)
	if idx < 0 {
		return "", false
	}
	next := idx + delta
	if next < 0 || next >= len(level) {
		return "", false
	}
	return level[next], true
}

// last returns the final node in depth-major traversal order: the bottom
// node of the deepest level.
func (m *Map) last() (string, bool) {
	for i := len(m.depths) - 1; i >= 0; i-- {
		if level := m.DepthToNodes[m.depths[i]]; len(level) > 0 {
			return level[len(level)-1], true
		}
	}
	return "", false
}

func (m *Map) firstAtDepth(depth int) (string, bool) {
	return first(m.DepthToNodes[depth])
}

func first(ids []string) (string, bool) {
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}
