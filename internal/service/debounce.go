package service

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of events into one delayed trigger per key.
// Each Schedule supersedes the previous one for the same key: exactly one of
// them eventually fires, and a superseded action never fires. Supersession
// is decided by a generation counter, not by a race against the timer.
type Debouncer struct {
	mu     sync.Mutex
	gens   map[string]uint64
	timers map[string]*time.Timer
	closed bool
}

// NewDebouncer creates an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{
		gens:   make(map[string]uint64),
		timers: make(map[string]*time.Timer),
	}
}

// Schedule registers fn to run after the quiet window, cancelling any action
// previously scheduled for the same key.
func (d *Debouncer) Schedule(key string, window time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.gens[key]++
	gen := d.gens[key]

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(window, func() {
		d.mu.Lock()
		// Ties break in favor of cancellation: a stale generation means a
		// newer event superseded this action between fire and lock.
		if d.closed || d.gens[key] != gen {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending action for the key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gens[key]++
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending reports whether an action is scheduled for the key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Close cancels all pending actions; later Schedules are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// AdmitAfterQuiet is the pure debounce check used by one-shot hook mode,
// where no timer can live across invocations: an event is admitted once the
// quiet window has elapsed since the last persisted trigger for the key.
func AdmitAfterQuiet(lastTrigger time.Time, window time.Duration, now time.Time) bool {
	if window <= 0 || lastTrigger.IsZero() {
		return true
	}
	return now.Sub(lastTrigger) >= window
}
