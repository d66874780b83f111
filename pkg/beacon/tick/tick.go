// Package tick schedules callbacks off the caller's stack.
//
// Completion callbacks and post-ready callbacks must never run
// synchronously inside the call that scheduled them. Scheduler captures
// the two shapes the pipeline needs: "on the next tick" and "after a delay".
package tick

import (
	"sync"
	"time"
)

// Scheduler runs callbacks asynchronously.
type Scheduler interface {
	// Defer runs fn on the next tick.
	Defer(fn func())

	// After runs fn once d has elapsed.
	After(d time.Duration, fn func())
}

// Loop is a Scheduler backed by a single goroutine. Callbacks run one at a
// time in the order they become due, so callbacks never race each other.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool

	// timers counts After timers not yet fired; outstanding counts queued
	// callbacks that have not finished running.
	timers      int
	outstanding int
	idle        *sync.Cond
}

// NewLoop starts a loop goroutine. Call Close to stop it.
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	l.idle = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Defer queues fn for the next tick. Callbacks scheduled after Close are dropped.
func (l *Loop) Defer(fn func()) {
	if fn != nil {
		l.enqueue(fn)
	}
}

func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.outstanding++
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// After queues fn on the loop once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) {
	if fn == nil {
		return
	}
	if d <= 0 {
		l.Defer(fn)
		return
	}
	l.mu.Lock()
	l.timers++
	l.mu.Unlock()
	time.AfterFunc(d, func() {
		l.Defer(fn)
		l.mu.Lock()
		l.timers--
		l.idle.Broadcast()
		l.mu.Unlock()
	})
}

// Close stops the loop after running callbacks already queued.
// Timers still in flight are dropped when they fire.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.idle.Broadcast()
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

// Wait blocks until no After timer is in flight and every queued callback
// has run, including callbacks and timers scheduled by the callbacks it
// waits for. It returns at once on a closed loop.
func (l *Loop) Wait() {
	for {
		l.mu.Lock()
		for l.timers > 0 && !l.closed {
			l.idle.Wait()
		}
		l.mu.Unlock()

		idle := make(chan bool, 1)
		ok := l.enqueue(func() {
			l.mu.Lock()
			idle <- l.timers == 0 && l.outstanding == 1
			l.mu.Unlock()
		})
		if !ok || <-idle {
			return
		}
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
			l.mu.Lock()
			l.outstanding--
			l.mu.Unlock()
		}

		if closed && len(batch) == 0 {
			return
		}
		if len(batch) > 0 {
			continue
		}
		<-l.wake
	}
}
