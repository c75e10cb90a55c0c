// Package schedule provides cancelable one-shot and repeating tasks on top of an
// injectable clock, so that expiry and polling lifecycles can be driven by a mock
// clock in tests.
package schedule

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Scheduler creates tasks against a single clock.
type Scheduler struct {
	clock clock.Clock
}

// New returns a Scheduler using c, or the wall clock when c is nil.
func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{clock: c}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Task is a scheduled callback. A stopped task never runs again.
type Task struct {
	mu    sync.Mutex
	timer *clock.Timer
	done  bool
}

// After runs fn once, d from now.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = s.clock.AfterFunc(d, func() {
		if t.claim() {
			fn()
		}
	})
	return t
}

// Every runs fn every d until the task is stopped. The first run happens d from now.
// The next run is armed only after fn returns, so runs never overlap.
func (s *Scheduler) Every(d time.Duration, fn func()) *Task {
	t := &Task{}
	var tick func()
	tick = func() {
		if t.Stopped() {
			return
		}
		fn()

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.done {
			return
		}
		t.timer = s.clock.AfterFunc(d, tick)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = s.clock.AfterFunc(d, tick)
	return t
}

// Stop cancels the task. It returns true only for the call that cancelled a task
// which had not yet run to completion; later calls, and calls after a one-shot task
// has fired, return false.
func (t *Task) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

// Stopped reports whether the task is finished, by cancellation or by firing once.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// claim marks a one-shot task as fired. It fails if the task was stopped first.
func (t *Task) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
