package integration

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/registry"
)

// Skip reasons reported to logs and metrics.
const (
	SkipDisabled        = "disabled"
	SkipInitialPageview = "initial_pageview"
)

// Dispatcher forwards facades to the live destinations in the order they
// were added. It never blocks on readiness.
type Dispatcher struct {
	dests   *registry.Registry[string, Integration]
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu         sync.Mutex
	suppressed map[string]bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the dispatch logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDispatchMetrics sets the metrics recorder.
func WithDispatchMetrics(m observability.MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDispatchTracing sets the span manager used for dispatch events.
func WithDispatchTracing(s observability.SpanManager) DispatcherOption {
	return func(d *Dispatcher) {
		d.spans = s
	}
}

// NewDispatcher returns a dispatcher with no destinations.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		dests:      registry.New[string, Integration](),
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		spans:      observability.NoopSpanManager{},
		suppressed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add appends dest. Adding a name that is already present replaces the
// instance in place.
func (d *Dispatcher) Add(dest Integration) {
	d.dests.Register(dest.Name(), dest)
}

// Clear removes every destination and pending page suppression.
func (d *Dispatcher) Clear() {
	d.dests.Clear()
	d.mu.Lock()
	d.suppressed = make(map[string]bool)
	d.mu.Unlock()
}

// Get returns the live destination with the given name.
func (d *Dispatcher) Get(name string) (Integration, bool) {
	return d.dests.Get(name)
}

// Names returns the destination names in dispatch order.
func (d *Dispatcher) Names() []string {
	return d.dests.Keys()
}

// Len returns the number of destinations.
func (d *Dispatcher) Len() int {
	return d.dests.Len()
}

// SuppressNextPage makes the next page dispatch skip the named destination.
// Later pages reach it normally.
func (d *Dispatcher) SuppressNextPage(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suppressed[name] = true
}

// Dispatch forwards f to every destination enabled for it, in order, and
// returns how many received it. Destination panics propagate.
func (d *Dispatcher) Dispatch(ctx context.Context, f facade.Facade) int {
	method := string(f.Type())
	delivered := 0

	for _, dest := range d.dests.Values() {
		name := dest.Name()
		if !f.Enabled(name) {
			d.skip(ctx, method, name, SkipDisabled)
			continue
		}
		if f.Type() == facade.TypePage && d.takeSuppression(name) {
			d.skip(ctx, method, name, SkipInitialPageview)
			continue
		}

		observability.LogDispatch(d.logger, method, name)
		d.metrics.RecordDispatch(ctx, method, name)
		d.spans.AddSpanEvent(ctx, "beacon.dispatch",
			attribute.String("dispatch.method", method),
			attribute.String("dispatch.destination", name),
		)
		Invoke(ctx, dest, f)
		delivered++
	}
	return delivered
}

func (d *Dispatcher) takeSuppression(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.suppressed[name] {
		return false
	}
	delete(d.suppressed, name)
	return true
}

func (d *Dispatcher) skip(ctx context.Context, method, name, reason string) {
	observability.LogDispatchSkipped(d.logger, method, name, reason)
	d.metrics.RecordSkip(ctx, method, name, reason)
}
