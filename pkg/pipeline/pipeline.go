// Package pipeline provides the core recomputation pipeline for Plotline.
//
// This package implements the analyze → trail → project → diff sequence that
// the CLI, API, and TUI all trigger whenever story data or the selection
// changes. Centralizing it keeps behavior consistent across entry points and
// gives one place to hang caching and instrumentation.
//
// # Architecture
//
// A pipeline run consists of four stages:
//
//  1. Analyze: structural diagnostics (orphans, dead ends, depth) from the
//     story snapshot
//  2. Trail: ancestry, branch depth, and progress for the selected card
//  3. Project: render-ready node/edge descriptors
//  4. Diff: reconciliation against the previously rendered set
//
// Analysis and projection results are cached, keyed by a content hash of the
// story plus the options that affect them; any edit changes the hash, so
// entries cannot go stale.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, s, pipeline.Options{
//	    CurrentID: selectedCard,
//	    Previous:  lastResult.View(),
//	})
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/scene"
	"github.com/inkpath/plotline/pkg/trail"
)

// Completeness policy names accepted in Options.Policy.
const (
	PolicyDefault  = "default"
	PolicyTextOnly = "text-only"
)

// ValidPolicies is the set of supported completeness policy names.
var ValidPolicies = map[string]bool{
	PolicyDefault:  true,
	PolicyTextOnly: true,
}

// View is the previously rendered node/edge set the diff stage reconciles
// against. A zero View means "first render": everything lands in ToAdd.
type View struct {
	Nodes []scene.Node
	Edges []scene.Edge
}

// Options configures one pipeline run.
type Options struct {
	// RootID overrides the story's FirstCardID when non-empty.
	RootID string `json:"root_id,omitempty"`

	// CurrentID is the selected card; trail computations are relative to it.
	// Empty means no selection: ancestry and progress are skipped.
	CurrentID string `json:"current_id,omitempty"`

	// PreviousDepth is the depth of the previously selected card, used for
	// the forward/backtrack classification.
	PreviousDepth int `json:"previous_depth,omitempty"`

	// Policy names the completeness policy (default / text-only).
	Policy string `json:"policy,omitempty"`

	// Collapsed lists cards whose descendants are folded away.
	Collapsed []string `json:"collapsed,omitempty"`

	// Positions is the freshly computed layout keyed by node ID.
	Positions map[string]scene.Position `json:"positions,omitempty"`

	// Suggestions become ghost nodes in the projection.
	Suggestions []scene.SuggestedCard `json:"-"`

	// Previous is the currently rendered view to diff against.
	Previous View `json:"-"`

	// Refresh bypasses the cache for this run.
	Refresh bool `json:"refresh,omitempty"`

	// Logger receives debug output. Defaults to a discard logger.
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Policy == "" {
		o.Policy = PolicyDefault
	}
	if !ValidPolicies[o.Policy] {
		return fmt.Errorf("invalid policy: %q (must be one of: default, text-only)", o.Policy)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// CompletenessPolicy resolves the named policy to its predicate.
func (o *Options) CompletenessPolicy() analyze.CompletenessPolicy {
	if o.Policy == PolicyTextOnly {
		return analyze.TextOnlyCompleteness
	}
	return analyze.DefaultCompleteness
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Analysis is the structural diagnostics for the snapshot.
	Analysis *analyze.Analysis

	// Ancestry, Branch, and Progress are selection-relative; zero-valued
	// when Options.CurrentID was empty.
	Ancestry trail.Ancestry
	Branch   trail.BranchInfo
	Progress trail.Progress

	// Nodes and Edges are the freshly projected render set.
	Nodes []scene.Node
	Edges []scene.Edge

	// NodeDiff and EdgeDiff reconcile Previous against the fresh set.
	NodeDiff scene.NodeDiff
	EdgeDiff scene.EdgeDiff

	// StoryHash is the content hash of the analyzed snapshot.
	StoryHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// View returns the fresh render set in the shape Execute expects as the
// next run's Previous.
func (r *Result) View() View {
	return View{Nodes: r.Nodes, Edges: r.Edges}
}

// Stats contains pipeline execution statistics.
type Stats struct {
	CardCount   int
	ChoiceCount int
	NodeCount   int
	EdgeCount   int
	AnalyzeTime time.Duration
	ProjectTime time.Duration
	DiffTime    time.Duration
}

// CacheInfo tracks cache hits for each cached stage.
type CacheInfo struct {
	AnalysisHit bool // analysis came from cache
	SceneHit    bool // projection came from cache
}
