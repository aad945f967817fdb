// Package schedule provides cancellable one-shot tasks on either the wall clock
// or a manually advanced virtual clock.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Handle cancels a scheduled task. Stop reports whether the call prevented the
// task from running.
type Handle interface {
	Stop() bool
}

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
	Now() time.Time
}

// Real schedules on the wall clock.
type Real struct{}

func (Real) AfterFunc(d time.Duration, fn func()) Handle {
	return time.AfterFunc(d, fn)
}

func (Real) Now() time.Time {
	return time.Now()
}

// Manual is a virtual clock. Tasks only run inside Advance, on the caller's
// goroutine, in due-time order (ties in scheduling order).
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	m       *Manual
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
}

// NewManual returns a virtual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by running tasks are run too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

// Pending returns the number of tasks that have not run or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manual) popDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) == 0 {
		return nil
	}
	sort.Slice(m.tasks, func(i, j int) bool {
		if m.tasks[i].at.Equal(m.tasks[j].at) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].at.Before(m.tasks[j].at)
	})

	next := m.tasks[0]
	if next.at.After(target) {
		return nil
	}
	m.tasks = m.tasks[1:]
	m.now = next.at
	return next
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.stopped {
		return false
	}
	for i, pending := range t.m.tasks {
		if pending == t {
			t.m.tasks = append(t.m.tasks[:i], t.m.tasks[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}
