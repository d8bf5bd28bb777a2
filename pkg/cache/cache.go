// Package cache provides content-addressed caching for analysis and scene
// projection results.
//
// Analysis is cheap but projection of large stories is not, and the CLI and
// API both re-request the same story snapshots repeatedly. Cache keys are
// derived from a SHA-256 hash of the story content plus the options that
// affect the result, so a cache entry can never go stale: any edit changes
// the story hash and misses.
//
// Backends:
//   - FileCache: per-user on-disk cache for the CLI (XDG cache dir)
//   - RedisCache: shared cache for multi-instance API deployments
//   - NullCache: disables caching (tests, --no-cache)
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry class.
const (
	// AnalysisTTL bounds how long derived diagnostics are kept. Entries are
	// content-addressed so this is housekeeping, not correctness.
	AnalysisTTL = 7 * 24 * time.Hour

	// ArtifactTTL bounds rendered exports (DOT, SVG), which are larger.
	ArtifactTTL = 24 * time.Hour
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// AnalysisKeyOpts are the options that affect an analysis result.
type AnalysisKeyOpts struct {
	RootID string
	Policy string // completeness policy name
}

// SceneKeyOpts are the options that affect a scene projection.
type SceneKeyOpts struct {
	RootID    string
	CurrentID string
	Collapsed []string // sorted collapsed card IDs
}

// ArtifactKeyOpts are the options that affect a rendered export.
type ArtifactKeyOpts struct {
	RootID   string
	Format   string
	Detailed bool
}

// Keyer derives cache keys. Implementations must be deterministic: equal
// inputs yield equal keys.
type Keyer interface {
	// AnalysisKey keys an analysis result by story content hash and options.
	AnalysisKey(storyHash string, opts AnalysisKeyOpts) string

	// SceneKey keys a scene projection.
	SceneKey(storyHash string, opts SceneKeyOpts) string

	// ArtifactKey keys a rendered export.
	ArtifactKey(storyHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key derivation: "prefix:sha256(parts)".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// AnalysisKey generates a key for analysis caching.
func (k *DefaultKeyer) AnalysisKey(storyHash string, opts AnalysisKeyOpts) string {
	return hashKey("analysis", storyHash, opts)
}

// SceneKey generates a key for scene projection caching.
func (k *DefaultKeyer) SceneKey(storyHash string, opts SceneKeyOpts) string {
	return hashKey("scene", storyHash, opts)
}

// ArtifactKey generates a key for rendered export caching.
func (k *DefaultKeyer) ArtifactKey(storyHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", storyHash, opts)
}
