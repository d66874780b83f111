package beacon

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/identity"
	"github.com/randalmurphal/beacon/pkg/beacon/integration"
	"github.com/randalmurphal/beacon/pkg/beacon/normalize"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/storage"
	"github.com/randalmurphal/beacon/pkg/beacon/tick"
)

// Analytics is the pipeline: it resolves call arguments, normalizes them
// into envelopes, enriches them with the user and group identity, and
// dispatches them to the initialized destinations.
//
// Analytics is safe for concurrent use. No lock is held while destination
// code or user callbacks run.
type Analytics struct {
	settings
	ownLoop *tick.Loop

	user  *identity.User
	group *identity.Group

	ctors      *integration.Registry
	dispatcher *integration.Dispatcher
	gate       *integration.Gate
	events     emitter

	mu      sync.RWMutex
	options Options
}

// New creates a pipeline. Storage candidates are resolved here, once.
func New(opts ...Option) *Analytics {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	a := &Analytics{settings: s, ctors: integration.NewRegistry()}
	if a.sched == nil {
		a.ownLoop = tick.NewLoop()
		a.sched = a.ownLoop
	}

	backend, degraded := storage.Resolve(a.logger, a.candidates...)
	if degraded {
		a.metrics.RecordStorageFallback(context.Background())
	}
	a.user = identity.NewUser(nil, identity.WithBackend(backend), identity.WithLogger(a.logger))
	a.group = identity.NewGroup(nil, identity.WithBackend(backend), identity.WithLogger(a.logger))

	a.dispatcher = integration.NewDispatcher(
		integration.WithDispatchLogger(a.logger),
		integration.WithDispatchMetrics(a.metrics),
		integration.WithDispatchTracing(a.spans),
	)
	a.gate = integration.NewGate(a.sched,
		integration.WithGateLogger(a.logger),
		integration.WithReadyHook(func(count int, elapsed time.Duration) {
			a.metrics.RecordReady(context.Background(), count, elapsed)
			a.events.emit(EventReady)
		}),
	)
	return a
}

// Close stops the scheduler the instance created for itself. Pending
// callbacks are dropped. It is a no-op when WithScheduler was used.
func (a *Analytics) Close() {
	if a.ownLoop != nil {
		a.ownLoop.Close()
	}
}

// Plugin extends an Analytics instance, typically by adding destinations.
type Plugin func(a *Analytics)

// Use runs plugin against a.
func (a *Analytics) Use(plugin Plugin) *Analytics {
	if plugin != nil {
		plugin(a)
	}
	return a
}

// AddIntegration registers a destination constructor under name.
// Destinations are dispatched to in the order they were added.
func (a *Analytics) AddIntegration(name string, ctor integration.Constructor) error {
	return a.ctors.Register(name, ctor)
}

// MustAddIntegration is AddIntegration that panics on error.
func (a *Analytics) MustAddIntegration(name string, ctor integration.Constructor) {
	a.ctors.MustRegister(name, ctor)
}

// Initialize applies opts and starts a new readiness cycle with one
// destination per settings entry that names a registered constructor.
// Entries for unknown destinations are dropped. The previous destination
// set is discarded.
func (a *Analytics) Initialize(ctx context.Context, settings map[string]any, opts Options) {
	a.applyOptions(opts)

	a.dispatcher.Clear()
	for _, name := range a.ctors.Names() {
		raw, ok := settings[name]
		if !ok {
			continue
		}
		ctor, _ := a.ctors.Get(name)
		destSettings, _ := raw.(map[string]any)
		a.dispatcher.Add(ctor(config.New(destSettings).Clone()))
	}

	var discarded []string
	for name := range settings {
		if _, ok := a.ctors.Get(name); !ok {
			discarded = append(discarded, name)
		}
	}
	sort.Strings(discarded)

	a.user.Load()
	a.group.Load()

	names := a.dispatcher.Names()
	observability.LogInitialize(a.logger, names, discarded)

	a.gate.Reset(len(names))
	for _, name := range names {
		dest, ok := a.dispatcher.Get(name)
		if !ok {
			continue
		}
		if opts.InitialPageview && !dest.Settings().Bool("initialPageview", true) {
			a.dispatcher.SuppressNextPage(name)
		}
		dest.Initialize(a.gate.ReadyFunc(name))
	}

	kept := make(map[string]any, len(names))
	for _, name := range names {
		kept[name] = config.CloneValue(settings[name])
	}
	a.events.emit(EventInitialize, kept, opts)

	if opts.InitialPageview {
		a.Page(ctx, PageCall{})
	}
}

func (a *Analytics) applyOptions(opts Options) {
	a.mu.Lock()
	a.options = opts
	a.mu.Unlock()

	for _, c := range a.candidates {
		switch b := c.(type) {
		case *storage.CookieStore:
			b.SetOptions(opts.Cookie)
		case *storage.SQLiteStore:
			b.SetOptions(opts.LocalStorage)
		}
	}
	a.user.SetOptions(opts.User)
	a.group.SetOptions(opts.Group)
}

// Options returns the options of the last Initialize.
func (a *Analytics) Options() Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

// Integrations returns the live destination names in dispatch order.
func (a *Analytics) Integrations() []string {
	return a.dispatcher.Names()
}

// Integration returns the live destination with the given name.
func (a *Analytics) Integration(name string) (integration.Integration, bool) {
	return a.dispatcher.Get(name)
}

// Ready registers fn to run once every destination has reported ready.
// If that already happened fn runs on the next scheduler tick.
func (a *Analytics) Ready(fn func()) {
	a.gate.OnReady(fn)
}

// IsReady reports whether the current initialization cycle is complete.
func (a *Analytics) IsReady() bool {
	return a.gate.IsReady()
}

// SetTimeout sets the completion-callback delay.
func (a *Analytics) SetTimeout(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d < 0 {
		d = 0
	}
	a.timeout = d
}

// Timeout returns the completion-callback delay.
func (a *Analytics) Timeout() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.timeout
}

// SetLocation replaces the page the pipeline runs on.
func (a *Analytics) SetLocation(loc Location) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.location = loc
}

// Location returns the current page location.
func (a *Analytics) Location() Location {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.location
}

// User returns the user entity.
func (a *Analytics) User() *identity.User { return a.user }

// Group returns the group entity.
func (a *Analytics) Group() *identity.Group { return a.group }

// SetAnonymousID sets the user's anonymous id.
func (a *Analytics) SetAnonymousID(id string) {
	a.user.SetAnonymousID(id)
}

// Reset logs out the user and the group.
func (a *Analytics) Reset() {
	a.user.Logout()
	a.group.Logout()
}

// On registers fn for event and returns a function that removes it.
func (a *Analytics) On(event string, fn Listener) (off func()) {
	return a.events.on(event, fn, false)
}

// Once is On for a single emission.
func (a *Analytics) Once(event string, fn Listener) (off func()) {
	return a.events.on(event, fn, true)
}

// normalize builds the envelope for msg: options sorted into
// integrations and context, the anonymous id attached, and the page
// defaults merged under context.page.
func (a *Analytics) normalize(msg map[string]any) map[string]any {
	out := normalize.Normalize(msg, a.dispatcher.Names())

	if anon, ok := out[normalize.KeyAnonymousID].(string); ok && anon != "" {
		a.user.SetAnonymousID(anon)
	}
	out[normalize.KeyAnonymousID] = a.user.AnonymousID()

	ctxMap := out[normalize.KeyContext].(map[string]any)
	page, _ := ctxMap["page"].(map[string]any)
	ctxMap["page"] = config.Merge(a.Location().PageDefaults(), page)
	return out
}

// invoke hands f to the dispatcher.
func (a *Analytics) invoke(ctx context.Context, f facade.Facade) {
	a.events.emit(EventInvoke, f)
	a.dispatcher.Dispatch(ctx, f)
}

// callback schedules fn after the configured timeout, or on the next
// tick when the timeout is zero.
func (a *Analytics) callback(fn func()) {
	if fn == nil {
		return
	}
	if d := a.Timeout(); d > 0 {
		a.sched.After(d, fn)
		return
	}
	a.sched.Defer(fn)
}
