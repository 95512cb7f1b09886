package scheduler

import (
	"sync"
	"time"
)

// Deferred is a single callback that can be armed, re-armed and cancelled
// on a Queue. At most one run is pending at a time.
type Deferred struct {
	mu      sync.Mutex
	q       *Queue
	fn      func()
	timer   *Timer
	pending bool
	seq     uint64 // detects stale callbacks
}

// NewDeferred creates an idle deferred call of fn on q.
func NewDeferred(q *Queue, fn func()) *Deferred {
	return &Deferred{q: q, fn: fn}
}

// Schedule arms the call to run after delay, replacing any pending run.
func (d *Deferred) Schedule(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armLocked(delay)
}

// ScheduleIfIdle arms the call only if no run is pending. It reports
// whether it armed.
func (d *Deferred) ScheduleIfIdle(delay time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		return false
	}
	d.armLocked(delay)
	return true
}

func (d *Deferred) armLocked(delay time.Duration) {
	d.timer.Stop()
	d.pending = true
	d.seq++
	seq := d.seq
	d.timer = d.q.AfterFunc(delay, func() {
		d.mu.Lock()
		if !d.pending || d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
}

// Cancel drops any pending run.
func (d *Deferred) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer.Stop()
	d.timer = nil
	d.seq++
	d.pending = false
}

// IsPending reports whether a run is armed.
func (d *Deferred) IsPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Due returns when the pending run fires.
func (d *Deferred) Due() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending || d.timer == nil {
		return time.Time{}, false
	}
	return d.timer.Due(), true
}
