// Package sched provides frame-aligned throttling and trailing debounce for
// high-frequency interaction events (panning, zooming, rapid edits) that
// trigger recomputation.
//
// The two utilities compose: a [Throttler] keeps cheap per-frame updates
// flowing during interaction, while a [Debouncer] holds back an expensive
// full recomputation until input settles. Cancellation always means "discard
// the scheduled callback" - work already running is never aborted.
package sched

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates one display refresh at 60 Hz.
const DefaultFrameInterval = time.Second / 60

// Throttler coalesces a burst of events into at most one callback per frame
// interval. Callbacks run with trailing-edge semantics: when the frame timer
// fires, the most recently submitted callback runs and earlier ones from the
// same frame are dropped.
//
// Throttler is safe for concurrent use. Callbacks run on a timer goroutine.
type Throttler struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewThrottler creates a throttler with the given frame interval.
// A non-positive interval falls back to DefaultFrameInterval.
func NewThrottler(interval time.Duration) *Throttler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Throttler{interval: interval}
}

// Call schedules fn to run on the next frame boundary, replacing any
// callback already pending for that frame. The most recent event's data
// always wins.
func (t *Throttler) Call(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = fn
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval, t.fire)
	}
}

// Cancel discards any pending callback and stops the frame timer.
// Call after the consumer is torn down so a late frame cannot fire into a
// dead context. The throttler remains usable afterward.
func (t *Throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
}

// fire runs the pending callback outside the lock.
func (t *Throttler) fire() {
	t.mu.Lock()
	fn := t.pending
	t.pending = nil
	t.timer = nil
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}
