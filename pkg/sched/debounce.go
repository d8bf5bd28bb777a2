package sched

import (
	"sync"
	"time"
)

// Debouncer delays a callback until events stop arriving for a quiet period.
// Each Call resets the timer, so a continuous stream of events keeps pushing
// the callback out; it runs once, `quiet` after the last event.
//
// Debouncer is safe for concurrent use. Callbacks run on a timer goroutine,
// except for Flush, which runs the pending callback on the caller's
// goroutine.
type Debouncer struct {
	quiet time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet}
}

// Call schedules fn to run once no further calls arrive for the quiet
// period. A later Call replaces fn and restarts the countdown.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

// Cancel discards the pending callback without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush runs the pending callback immediately, if any, and clears the timer.
// Use when the result is needed now (e.g. before a save) instead of after
// the quiet period.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// fire runs the pending callback outside the lock.
func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
