// Package integration defines the destination contract and the machinery
// around it: the ordered constructor registry, the readiness gate that
// tracks one initialization cycle, and the dispatcher that forwards
// facades to enabled destinations.
package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/registry"
)

// ErrInvalidIntegration is returned when a destination is registered
// without a name or constructor.
var ErrInvalidIntegration = errors.New("attempted to add an invalid integration")

// Integration is a destination. Initialize must eventually call ready
// exactly once; later calls are ignored. The handlers may be called before
// ready, in which case the destination is expected to queue.
type Integration interface {
	Name() string
	Settings() config.Config
	Initialize(ready func())
	Identify(ctx context.Context, f *facade.Identify)
	Track(ctx context.Context, f *facade.Track)
	Page(ctx context.Context, f *facade.Page)
}

// Constructor builds a destination from its settings.
type Constructor func(settings config.Config) Integration

// Registry is the ordered table of destination constructors.
// Safe for concurrent use.
type Registry struct {
	entries *registry.Registry[string, Constructor]
}

// NewRegistry returns an empty constructor registry.
func NewRegistry() *Registry {
	return &Registry{entries: registry.New[string, Constructor]()}
}

// Register adds ctor under name. Registering a name twice replaces the
// constructor but keeps the first position.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("%w: name %q", ErrInvalidIntegration, name)
	}
	r.entries.Register(name, ctor)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// Get returns the constructor registered under name.
func (r *Registry) Get(name string) (Constructor, bool) {
	return r.entries.Get(name)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return r.entries.Keys()
}

// Len returns the number of registered constructors.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Base is embedded by destinations. It supplies Name and Settings, no-op
// handlers, an Initialize that is ready at once, and a queue for calls that
// arrive before the destination is ready.
type Base struct {
	name     string
	settings config.Config

	mu    sync.Mutex
	ready bool
	queue []queued
}

type queued struct {
	ctx context.Context
	f   facade.Facade
}

// NewBase returns a Base for the named destination.
func NewBase(name string, settings config.Config) *Base {
	return &Base{name: name, settings: settings}
}

// Name implements Integration.
func (b *Base) Name() string { return b.name }

// Settings implements Integration.
func (b *Base) Settings() config.Config { return b.settings }

// Initialize implements Integration. The default destination is ready at
// once.
func (b *Base) Initialize(ready func()) {
	b.MarkReady(nil)
	ready()
}

// Identify implements Integration.
func (b *Base) Identify(context.Context, *facade.Identify) {}

// Track implements Integration.
func (b *Base) Track(context.Context, *facade.Track) {}

// Page implements Integration.
func (b *Base) Page(context.Context, *facade.Page) {}

// IsReady reports whether MarkReady has been called.
func (b *Base) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Enqueue holds f until MarkReady when the destination is not ready yet.
// It reports whether f was queued; when false the caller handles f now.
func (b *Base) Enqueue(ctx context.Context, f facade.Facade) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return false
	}
	b.queue = append(b.queue, queued{ctx: ctx, f: f})
	return true
}

// Queued returns the number of calls waiting for MarkReady.
func (b *Base) Queued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// MarkReady marks the destination ready and replays queued calls through
// handle in arrival order. A nil handle drops them.
func (b *Base) MarkReady(handle func(context.Context, facade.Facade)) {
	b.mu.Lock()
	b.ready = true
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	if handle == nil {
		return
	}
	for _, q := range pending {
		handle(q.ctx, q.f)
	}
}

// Invoke calls the handler on dest that matches the concrete facade type.
func Invoke(ctx context.Context, dest Integration, f facade.Facade) {
	switch v := f.(type) {
	case *facade.Identify:
		dest.Identify(ctx, v)
	case *facade.Track:
		dest.Track(ctx, v)
	case *facade.Page:
		dest.Page(ctx, v)
	}
}
