package tick

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing runs until
// RunPending or Advance is called.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []manualTask
}

type manualTask struct {
	due time.Duration
	seq int
	fn  func()
}

// NewManual creates a manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Defer queues fn at the current virtual time.
func (m *Manual) Defer(fn func()) {
	m.After(0, fn)
}

// After queues fn at now+d.
func (m *Manual) After(d time.Duration, fn func()) {
	if fn == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.tasks = append(m.tasks, manualTask{due: m.now + d, seq: m.seq, fn: fn})
}

// RunPending runs every task due at the current virtual time, including
// tasks those callbacks schedule for "now". Returns the number run.
func (m *Manual) RunPending() int {
	return m.Advance(0)
}

// Advance moves virtual time forward by d, running due tasks in due order
// (ties in scheduling order). Returns the number of tasks run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	ran := 0
	for {
		m.mu.Lock()
		idx := m.nextDue(target)
		if idx < 0 {
			m.now = target
			m.mu.Unlock()
			return ran
		}
		task := m.tasks[idx]
		m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
		if task.due > m.now {
			m.now = task.due
		}
		m.mu.Unlock()

		task.fn()
		ran++
	}
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) nextDue(target time.Duration) int {
	candidates := make([]int, 0, len(m.tasks))
	for i, t := range m.tasks {
		if t.due <= target {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	sort.Slice(candidates, func(a, b int) bool {
		ta, tb := m.tasks[candidates[a]], m.tasks[candidates[b]]
		if ta.due != tb.due {
			return ta.due < tb.due
		}
		return ta.seq < tb.seq
	})
	return candidates[0]
}
