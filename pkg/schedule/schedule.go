package schedule

import (
	"sync"
	"time"
)

// Task is a cancellable delayed call. At most one call is pending: scheduling
// again replaces whatever was waiting.
type Task struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule arranges for fn to run after d, dropping any pending call
func (t *Task) Schedule(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending call and reports whether there was one
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

// Pending reports whether a call is waiting to run
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Task) stopLocked() bool {
	if t.timer == nil {
		return false
	}
	t.timer.Stop()
	t.timer = nil
	// a callback that already fired but has not taken the lock sees a new gen
	t.gen++
	return true
}

// Debouncer delays calls to fn until no new value arrived for the delay.
// Only the latest value is delivered.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)
	task  Task

	mu     sync.Mutex
	latest T
}

// NewDebouncer creates a Debouncer that hands the last value to fn
func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Call records v and restarts the delay
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	d.latest = v
	d.mu.Unlock()
	d.task.Schedule(d.delay, d.fire)
}

// Cancel drops the pending value
func (d *Debouncer[T]) Cancel() {
	d.task.Cancel()
}

// Flush delivers the pending value immediately, if any
func (d *Debouncer[T]) Flush() {
	if d.task.Cancel() {
		d.fire()
	}
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	v := d.latest
	d.mu.Unlock()
	d.fn(v)
}
