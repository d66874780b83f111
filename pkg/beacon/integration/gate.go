package integration

import (
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/tick"
)

// State is the readiness state of one initialization cycle.
type State int

const (
	Initializing State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "initializing"
}

// Gate counts destination ready signals for one initialization cycle and
// releases ready listeners once every destination has reported.
//
// A new Gate is Initializing with no cycle started; call Reset to begin
// one. Listeners registered while Initializing survive a Reset and fire on
// the next transition.
type Gate struct {
	sched  tick.Scheduler
	logger *slog.Logger
	now    func() time.Time
	hooks  []func(count int, elapsed time.Duration)

	mu        sync.Mutex
	state     State
	gen       uint64
	expected  int
	signalled map[string]bool
	started   time.Time
	listeners []func()
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger for ready diagnostics.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithGateClock sets the clock used to time cycles.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// WithReadyHook registers fn to run on every transition to Ready, before
// the listeners.
func WithReadyHook(fn func(count int, elapsed time.Duration)) GateOption {
	return func(g *Gate) {
		g.hooks = append(g.hooks, fn)
	}
}

// NewGate returns a gate that defers post-ready listeners on sched.
func NewGate(sched tick.Scheduler, opts ...GateOption) *Gate {
	g := &Gate{
		sched:     sched,
		logger:    slog.Default(),
		now:       time.Now,
		signalled: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsReady reports whether the current cycle has completed.
func (g *Gate) IsReady() bool {
	return g.State() == Ready
}

// Reset starts a new cycle expecting n destinations. Callbacks handed out
// by earlier cycles become no-ops. With n == 0 the gate turns Ready before
// Reset returns.
func (g *Gate) Reset(n int) {
	g.mu.Lock()
	g.gen++
	g.state = Initializing
	g.expected = n
	g.signalled = make(map[string]bool, n)
	g.started = g.now()
	if n > 0 {
		g.mu.Unlock()
		return
	}
	g.transition()
}

// ReadyFunc returns the callback the named destination calls when ready.
// Only the first call per destination per cycle counts.
func (g *Gate) ReadyFunc(name string) func() {
	g.mu.Lock()
	gen := g.gen
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		if gen != g.gen || g.state == Ready || g.signalled[name] {
			g.mu.Unlock()
			return
		}
		g.signalled[name] = true
		count := len(g.signalled)
		observability.LogDestinationReady(g.logger, name, count, g.expected)
		if count < g.expected {
			g.mu.Unlock()
			return
		}
		g.transition()
	}
}

// OnReady registers fn. When the gate is Ready fn runs on the next
// scheduler tick; otherwise it runs once, at the next transition.
func (g *Gate) OnReady(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	if g.state == Ready {
		g.mu.Unlock()
		g.sched.Defer(fn)
		return
	}
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// transition must be called with mu held; it releases it.
func (g *Gate) transition() {
	g.state = Ready
	count := g.expected
	elapsed := g.now().Sub(g.started)
	listeners := g.listeners
	g.listeners = nil
	g.mu.Unlock()

	observability.LogReady(g.logger, count, float64(elapsed.Microseconds())/1000)
	for _, hook := range g.hooks {
		hook(count, elapsed)
	}
	for _, fn := range listeners {
		fn()
	}
}
