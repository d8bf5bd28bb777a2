// Package scene projects an analyzed story into render-ready node and edge
// descriptors and reconciles consecutive projections incrementally.
//
// A scene node carries semantic classification only (orphan, dead end,
// on-path, depth, counts) - the rendering layer decides colors and shapes.
// Positions originate in an external layout step and are threaded through the
// diff so that user-dragged placements survive unrelated data changes.
package scene

import (
	"fmt"
	"slices"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/story"
	"github.com/inkpath/plotline/pkg/trail"
)

// Kind distinguishes real story cards from transient AI-suggestion ghosts.
// The diff engine branches on Kind, so the two can share one node set without
// structural ambiguity.
type Kind string

// Node kinds.
const (
	KindStory      Kind = "story"
	KindSuggestion Kind = "suggestion"
)

// ghostPrefix namespaces suggestion node and edge IDs away from card IDs.
const ghostPrefix = "ghost:"

// Position is a 2D layout position in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a positioned, classified projection of a card (or suggestion) for
// display. Position and collapse state are transient UI state: they are
// excluded from the structural hash and preserved across recomputation by
// the diff engine.
type Node struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`

	Position Position `json:"position"`
	Width    float64  `json:"width,omitempty"`
	Height   float64  `json:"height,omitempty"`

	// Semantic status flags mapped to visual style by the renderer.
	IsFirst      bool `json:"is_first,omitempty"`
	IsOrphaned   bool `json:"is_orphaned,omitempty"`
	IsDeadEnd    bool `json:"is_dead_end,omitempty"`
	IsIncomplete bool `json:"is_incomplete,omitempty"`
	IsOnPath     bool `json:"is_on_path,omitempty"`

	Depth       int `json:"depth,omitempty"`
	ChoiceCount int `json:"choice_count,omitempty"`

	IsCollapsed           bool `json:"is_collapsed,omitempty"`
	HiddenDescendantCount int  `json:"hidden_descendant_count,omitempty"`
}

// Edge is a render-ready projection of a choice (or suggestion link).
type Edge struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label,omitempty"`
	IsOnPath bool   `json:"is_on_path,omitempty"`
}

// SuggestedCard is a transient AI-proposed card to display as a ghost node
// attached to an existing source card.
type SuggestedCard struct {
	ID           string
	Title        string
	SourceCardID string
}

// Input bundles everything one projection needs. Story and Analysis are
// required; the rest defaults to empty.
type Input struct {
	Story    *story.Story
	Analysis *analyze.Analysis

	// Path marks the ancestry of the currently viewed card; nodes and edges
	// on it get IsOnPath.
	Path trail.Ancestry

	// Positions is the freshly computed layout, keyed by node ID. Missing
	// entries default to the zero position - the diff engine will preserve
	// previous positions for unchanged nodes anyway.
	Positions map[string]Position

	// Collapsed marks cards whose descendants are hidden.
	Collapsed map[string]bool

	// Suggestions become ghost nodes with ghost edges from their source.
	Suggestions []SuggestedCard
}

// Project builds the render node and edge sets for one story snapshot.
//
// Cards hidden behind a collapsed ancestor are omitted; a card that stays
// reachable around the collapsed region remains visible. Dangling choices
// produce no edge. Output ordering follows card/choice order, so the result
// is deterministic.
func Project(in Input) ([]Node, []Edge) {
	s, a := in.Story, in.Analysis
	hidden, hiddenCounts := visibility(a, in.Collapsed)

	var nodes []Node
	for _, c := range s.Cards {
		if hidden[c.ID] {
			continue
		}
		nodes = append(nodes, Node{
			ID:                    c.ID,
			Kind:                  KindStory,
			Label:                 c.Title,
			Position:              in.Positions[c.ID],
			IsFirst:               c.ID == a.RootID && a.RootID != "",
			IsOrphaned:            a.OrphanCards[c.ID],
			IsDeadEnd:             a.DeadEndCards[c.ID],
			IsIncomplete:          a.IncompleteCards[c.ID],
			IsOnPath:              in.Path.PathNodeIDs[c.ID],
			Depth:                 a.Depth[c.ID],
			ChoiceCount:           a.ChoiceCount[c.ID],
			IsCollapsed:           in.Collapsed[c.ID],
			HiddenDescendantCount: hiddenCounts[c.ID],
		})
	}

	exists := s.CardSet()
	var edges []Edge
	for _, ch := range s.Choices {
		if ch.TargetCardID == "" || !exists[ch.TargetCardID] {
			continue
		}
		if hidden[ch.SourceCardID] || hidden[ch.TargetCardID] {
			continue
		}
		if in.Collapsed[ch.SourceCardID] {
			continue
		}
		edges = append(edges, Edge{
			ID:       ch.ID,
			Kind:     KindStory,
			SourceID: ch.SourceCardID,
			TargetID: ch.TargetCardID,
			Label:    ch.Label,
			IsOnPath: in.Path.PathEdgeIDs[ch.ID],
		})
	}

	for _, sg := range in.Suggestions {
		id := ghostPrefix + sg.ID
		nodes = append(nodes, Node{
			ID:       id,
			Kind:     KindSuggestion,
			Label:    sg.Title,
			Position: in.Positions[id],
		})
		if !hidden[sg.SourceCardID] {
			edges = append(edges, Edge{
				ID:       id + ":edge",
				Kind:     KindSuggestion,
				SourceID: sg.SourceCardID,
				TargetID: id,
			})
		}
	}

	return nodes, edges
}

// visibility computes which cards a collapse folds away and how many
// descendants each collapsed card hides.
//
// A card is hidden when it is reachable from the root in the full graph but
// no longer reached once traversal out of collapsed cards is cut. Cards that
// were never reachable (orphans and their subtrees) stay visible -
// collapsing only folds reachable structure.
func visibility(a *analyze.Analysis, collapsed map[string]bool) (hidden map[string]bool, hiddenCounts map[string]int) {
	hidden = make(map[string]bool)
	hiddenCounts = make(map[string]int)

	// BFS from root that does not traverse out of collapsed cards.
	seen := make(map[string]bool)
	if a.RootID != "" {
		seen[a.RootID] = true
		queue := []string{a.RootID}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if collapsed[id] {
				continue
			}
			for _, child := range a.ChildrenMap[id] {
				if !seen[child] {
					seen[child] = true
					queue = append(queue, child)
				}
			}
		}
	}

	for id := range a.Depth {
		if !seen[id] {
			hidden[id] = true
		}
	}
	if len(hidden) > 0 {
		for id := range collapsed {
			if hidden[id] {
				continue
			}
			hiddenCounts[id] = hiddenDescendants(id, a, seen)
		}
	}
	return hidden, hiddenCounts
}

// hiddenDescendants counts cards reachable from the collapsed card in the
// full graph that the pruned BFS no longer reaches.
func hiddenDescendants(collapsedID string, a *analyze.Analysis, seen map[string]bool) int {
	count := 0
	visited := map[string]bool{collapsedID: true}
	queue := slices.Clone(a.ChildrenMap[collapsedID])
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		if !seen[id] {
			count++
		}
		queue = append(queue, a.ChildrenMap[id]...)
	}
	return count
}

// GhostID returns the node ID a suggestion is projected under.
func GhostID(suggestionID string) string {
	return fmt.Sprintf("%s%s", ghostPrefix, suggestionID)
}
