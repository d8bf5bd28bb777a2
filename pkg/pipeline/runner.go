package pipeline

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/observability"
	"github.com/inkpath/plotline/pkg/scene"
	"github.com/inkpath/plotline/pkg/story"
	"github.com/inkpath/plotline/pkg/trail"
)

// Runner executes the pipeline with caching and instrumentation.
// A Runner is safe for concurrent use: it holds no per-run state.
type Runner struct {
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// NewRunner creates a pipeline runner.
// A nil keyer falls back to the default keyer; a nil cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{cache: c, keyer: keyer, logger: logger}
}

// Execute runs the full pipeline for one story snapshot.
//
// The snapshot is content-hashed first; analysis and projection are served
// from cache when an entry for the same hash and options exists, unless
// opts.Refresh is set. The diff stage always runs - it depends on
// opts.Previous, which is caller state, not story content.
func (r *Runner) Execute(ctx context.Context, s *story.Story, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.logger
	}

	rootID := opts.RootID
	if rootID == "" {
		rootID = s.FirstCardID
	}

	data, err := story.Marshal(s)
	if err != nil {
		return nil, err
	}
	result := &Result{StoryHash: cache.Hash(data)}
	result.Stats.CardCount = s.CardCount()
	result.Stats.ChoiceCount = s.ChoiceCount()

	result.Analysis, result.CacheInfo.AnalysisHit = r.analysis(ctx, s, rootID, result, &opts, logger)

	if opts.CurrentID != "" {
		result.Ancestry = trail.AncestryPath(opts.CurrentID, rootID, s.Choices)
		result.Branch = trail.BranchDepth(opts.CurrentID, result.Analysis)
		result.Progress = trail.PathProgress(opts.CurrentID, opts.PreviousDepth, result.Analysis)
	}

	result.Nodes, result.Edges, result.CacheInfo.SceneHit = r.projection(ctx, s, result, &opts, logger)
	result.Stats.NodeCount = len(result.Nodes)
	result.Stats.EdgeCount = len(result.Edges)

	diffStart := time.Now()
	result.NodeDiff = scene.DiffNodes(opts.Previous.Nodes, result.Nodes)
	result.EdgeDiff = scene.DiffEdges(opts.Previous.Edges, result.Edges)
	result.Stats.DiffTime = time.Since(diffStart)
	observability.Engine().OnDiffComplete(ctx,
		len(result.NodeDiff.ToAdd), len(result.NodeDiff.ToUpdate),
		len(result.NodeDiff.ToRemove), len(result.NodeDiff.Unchanged))

	return result, nil
}

// analysis computes or restores the structural diagnostics.
func (r *Runner) analysis(ctx context.Context, s *story.Story, rootID string, result *Result, opts *Options, logger *log.Logger) (*analyze.Analysis, bool) {
	key := r.keyer.AnalysisKey(result.StoryHash, cache.AnalysisKeyOpts{
		RootID: rootID,
		Policy: opts.Policy,
	})

	if !opts.Refresh {
		if data, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			var a analyze.Analysis
			if err := json.Unmarshal(data, &a); err == nil {
				observability.Cache().OnCacheHit(ctx, "analysis")
				logger.Debug("analysis cache hit", "key", key[:16])
				return &a, true
			}
		}
		observability.Cache().OnCacheMiss(ctx, "analysis")
	}

	start := time.Now()
	observability.Engine().OnAnalyzeStart(ctx, s.CardCount(), s.ChoiceCount())
	a := analyze.Analyze(s, rootID, analyze.Options{Completeness: opts.CompletenessPolicy()})
	elapsed := time.Since(start)
	result.Stats.AnalyzeTime = elapsed
	observability.Engine().OnAnalyzeComplete(ctx, len(a.OrphanCards), len(a.DeadEndCards), elapsed)
	logger.Debug("analyzed story",
		"cards", s.CardCount(),
		"orphans", len(a.OrphanCards),
		"dead_ends", len(a.DeadEndCards),
		"elapsed", elapsed)

	if data, err := json.Marshal(a); err == nil {
		if err := r.cache.Set(ctx, key, data, cache.AnalysisTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "analysis", len(data))
		}
	}
	return a, false
}

// cachedScene is the cache payload for a projection.
type cachedScene struct {
	Nodes []scene.Node `json:"nodes"`
	Edges []scene.Edge `json:"edges"`
}

// projection computes or restores the render set.
//
// Layout positions are transient caller state, so they are excluded from the
// cache key and payload: cached nodes are re-positioned from opts.Positions
// after a hit. Runs carrying suggestions skip the cache entirely -
// suggestions are short-lived and not part of the key.
func (r *Runner) projection(ctx context.Context, s *story.Story, result *Result, opts *Options, logger *log.Logger) ([]scene.Node, []scene.Edge, bool) {
	collapsed := slices.Clone(opts.Collapsed)
	slices.Sort(collapsed)
	key := r.keyer.SceneKey(result.StoryHash, cache.SceneKeyOpts{
		RootID:    result.Analysis.RootID,
		CurrentID: opts.CurrentID,
		Collapsed: collapsed,
	})
	cacheable := len(opts.Suggestions) == 0

	if cacheable && !opts.Refresh {
		if data, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			var cs cachedScene
			if err := json.Unmarshal(data, &cs); err == nil {
				observability.Cache().OnCacheHit(ctx, "scene")
				for i := range cs.Nodes {
					cs.Nodes[i].Position = opts.Positions[cs.Nodes[i].ID]
				}
				return cs.Nodes, cs.Edges, true
			}
		}
		observability.Cache().OnCacheMiss(ctx, "scene")
	}

	start := time.Now()
	observability.Engine().OnProjectStart(ctx, s.CardCount())
	nodes, edges := scene.Project(scene.Input{
		Story:       s,
		Analysis:    result.Analysis,
		Path:        result.Ancestry,
		Positions:   opts.Positions,
		Collapsed:   collapsedSet(opts.Collapsed),
		Suggestions: opts.Suggestions,
	})
	elapsed := time.Since(start)
	result.Stats.ProjectTime = elapsed
	observability.Engine().OnProjectComplete(ctx, len(nodes), len(edges), elapsed)
	logger.Debug("projected scene", "nodes", len(nodes), "edges", len(edges), "elapsed", elapsed)

	if cacheable {
		// Strip positions before caching so a hit never resurrects stale layout.
		stripped := cachedScene{Nodes: slices.Clone(nodes), Edges: edges}
		for i := range stripped.Nodes {
			stripped.Nodes[i].Position = scene.Position{}
		}
		if data, err := json.Marshal(stripped); err == nil {
			if err := r.cache.Set(ctx, key, data, cache.AnalysisTTL); err == nil {
				observability.Cache().OnCacheSet(ctx, "scene", len(data))
			}
		}
	}
	return nodes, edges, false
}

func collapsedSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
