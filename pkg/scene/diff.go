package scene

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
)

// PositionThreshold is the pixel delta below which a changed node keeps its
// previously rendered position. Layout recomputation produces sub-pixel float
// noise; only a move larger than this reflects a real layout change.
const PositionThreshold = 2.0

// NodeDiff is the reconciliation result for a node set.
type NodeDiff struct {
	ToAdd     []Node
	ToUpdate  []Node
	ToRemove  []Node
	Unchanged []Node
}

// EdgeDiff is the reconciliation result for an edge set.
type EdgeDiff struct {
	ToAdd     []Edge
	ToUpdate  []Edge
	ToRemove  []Edge
	Unchanged []Edge
}

// nodeHashFields are the semantically relevant node fields. Position is
// deliberately absent: it is transient UI state and must never cause an
// update on its own.
type nodeHashFields struct {
	Kind                  Kind    `json:"kind"`
	Label                 string  `json:"label"`
	Width                 float64 `json:"width"`
	Height                float64 `json:"height"`
	IsFirst               bool    `json:"is_first"`
	IsOrphaned            bool    `json:"is_orphaned"`
	IsDeadEnd             bool    `json:"is_dead_end"`
	IsIncomplete          bool    `json:"is_incomplete"`
	IsOnPath              bool    `json:"is_on_path"`
	Depth                 int     `json:"depth"`
	ChoiceCount           int     `json:"choice_count"`
	IsCollapsed           bool    `json:"is_collapsed"`
	HiddenDescendantCount int     `json:"hidden_descendant_count"`
}

// StructuralHash returns a hash of the node's semantically relevant fields.
// Two nodes with equal hashes render identically apart from where they sit.
func (n Node) StructuralHash() string {
	return hashOf(nodeHashFields{
		Kind:                  n.Kind,
		Label:                 n.Label,
		Width:                 n.Width,
		Height:                n.Height,
		IsFirst:               n.IsFirst,
		IsOrphaned:            n.IsOrphaned,
		IsDeadEnd:             n.IsDeadEnd,
		IsIncomplete:          n.IsIncomplete,
		IsOnPath:              n.IsOnPath,
		Depth:                 n.Depth,
		ChoiceCount:           n.ChoiceCount,
		IsCollapsed:           n.IsCollapsed,
		HiddenDescendantCount: n.HiddenDescendantCount,
	})
}

// edgeHashFields cover endpoints, label, and style-affecting fields.
type edgeHashFields struct {
	Kind     Kind   `json:"kind"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label"`
	IsOnPath bool   `json:"is_on_path"`
}

// StructuralHash returns a hash of the edge's semantically relevant fields.
func (e Edge) StructuralHash() string {
	return hashOf(edgeHashFields{
		Kind:     e.Kind,
		SourceID: e.SourceID,
		TargetID: e.TargetID,
		Label:    e.Label,
		IsOnPath: e.IsOnPath,
	})
}

func hashOf(v any) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DiffNodes reconciles the currently rendered node set against a freshly
// projected one.
//
// Identity is the stable node ID. Nodes whose structural hash is unchanged
// land in Unchanged carrying their existing (possibly user-dragged) position,
// not the freshly computed one. Changed nodes land in ToUpdate and also keep
// the existing position unless the layout moved them by more than
// PositionThreshold. New IDs go to ToAdd, vanished IDs to ToRemove.
//
// DiffNodes is a pure function: the same inputs always produce the same
// diff, and diffing a set against itself yields only Unchanged. Runs in
// O(len(current)+len(next)) using ID-keyed maps.
func DiffNodes(current, next []Node) NodeDiff {
	var d NodeDiff
	existing := make(map[string]Node, len(current))
	for _, n := range current {
		existing[n.ID] = n
	}
	kept := make(map[string]bool, len(next))

	for _, n := range next {
		old, ok := existing[n.ID]
		if !ok {
			d.ToAdd = append(d.ToAdd, n)
			continue
		}
		kept[n.ID] = true
		if old.StructuralHash() == n.StructuralHash() {
			d.Unchanged = append(d.Unchanged, old)
			continue
		}
		if !exceedsThreshold(old.Position, n.Position) {
			n.Position = old.Position
		}
		d.ToUpdate = append(d.ToUpdate, n)
	}

	for _, n := range current {
		if !kept[n.ID] {
			d.ToRemove = append(d.ToRemove, n)
		}
	}
	return d
}

// DiffEdges reconciles edge sets the same way as DiffNodes, minus position
// handling (edges have none to preserve).
func DiffEdges(current, next []Edge) EdgeDiff {
	var d EdgeDiff
	existing := make(map[string]Edge, len(current))
	for _, e := range current {
		existing[e.ID] = e
	}
	kept := make(map[string]bool, len(next))

	for _, e := range next {
		old, ok := existing[e.ID]
		if !ok {
			d.ToAdd = append(d.ToAdd, e)
			continue
		}
		kept[e.ID] = true
		if old.StructuralHash() == e.StructuralHash() {
			d.Unchanged = append(d.Unchanged, old)
			continue
		}
		d.ToUpdate = append(d.ToUpdate, e)
	}

	for _, e := range current {
		if !kept[e.ID] {
			d.ToRemove = append(d.ToRemove, e)
		}
	}
	return d
}

func exceedsThreshold(a, b Position) bool {
	return math.Abs(a.X-b.X) > PositionThreshold || math.Abs(a.Y-b.Y) > PositionThreshold
}
