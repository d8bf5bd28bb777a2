package cache

// ScopedKeyer wraps a Keyer with a prefix so unrelated key families never
// collide in a shared backend. The API server scopes keys per story, which
// partitions a shared Redis instance by story ID:
//
//	keyer := cache.NewScopedKeyer(nil, "story:"+storyID+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// AnalysisKey generates a prefixed key for analysis caching.
func (k *ScopedKeyer) AnalysisKey(storyHash string, opts AnalysisKeyOpts) string {
	return k.prefix + k.inner.AnalysisKey(storyHash, opts)
}

// SceneKey generates a prefixed key for scene projection caching.
func (k *ScopedKeyer) SceneKey(storyHash string, opts SceneKeyOpts) string {
	return k.prefix + k.inner.SceneKey(storyHash, opts)
}

// ArtifactKey generates a prefixed key for rendered export caching.
func (k *ScopedKeyer) ArtifactKey(storyHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(storyHash, opts)
}
