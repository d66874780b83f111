package beacon

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
)

// IdentifyCall is the argument set of an identify call.
type IdentifyCall struct {
	// UserID identifies the user. Empty keeps the current user id.
	UserID string
	// Traits are merged over the stored traits.
	Traits map[string]any
	// Options holds per-destination overrides and context keys.
	Options map[string]any
	// Callback runs after the completion delay.
	Callback func()
}

// TrackCall is the argument set of a track call.
type TrackCall struct {
	Event      string
	Properties map[string]any
	Options    map[string]any
	Callback   func()
}

// PageCall is the argument set of a page call.
type PageCall struct {
	Category   string
	Name       string
	Properties map[string]any
	Options    map[string]any
	Callback   func()
}

// Identify records who the user is and sends an identify envelope built
// from the resulting user state.
func (a *Analytics) Identify(ctx context.Context, call IdentifyCall) {
	ctx, span := a.startCall(ctx, "identify", call.UserID)
	defer a.spans.EndSpanWithError(span, nil)

	a.user.Identify(call.UserID, call.Traits)

	msg := map[string]any{
		"options": call.Options,
		"traits":  a.user.Traits(),
	}
	if id := a.user.ID(); id != "" {
		msg["userId"] = id
	}
	a.invoke(ctx, facade.NewIdentify(a.normalize(msg), facade.WithClock(a.now)))

	a.events.emit(EventIdentify, call.UserID, call.Traits, call.Options)
	a.callback(call.Callback)
}

// Track sends a track envelope for call.Event, subject to the tracking
// plan. An event the plan disables is not dispatched but its callback
// still runs.
func (a *Analytics) Track(ctx context.Context, call TrackCall) {
	ctx, span := a.startCall(ctx, "track", call.Event)
	defer a.spans.EndSpanWithError(span, nil)

	props := call.Properties
	if props == nil {
		props = map[string]any{}
	}
	msg := a.normalize(map[string]any{
		"event":      call.Event,
		"properties": props,
		"options":    call.Options,
	})

	if plan, ok := a.Options().Plan.Track[call.Event]; ok {
		if plan.Enabled != nil && !*plan.Enabled {
			observability.LogPlanSkip(a.logger, call.Event)
			a.callback(call.Callback)
			return
		}
		integrations, _ := msg["integrations"].(map[string]any)
		msg["integrations"] = config.Merge(config.CloneMap(plan.Integrations), integrations)
	}

	a.invoke(ctx, facade.NewTrack(msg, facade.WithClock(a.now)))

	a.events.emit(EventTrack, call.Event, call.Properties, call.Options)
	a.callback(call.Callback)
}

// Page sends a page envelope. The properties are laid over the page
// defaults, and each default key is mirrored into options.context.page so
// destinations reading the context see the caller's overrides.
func (a *Analytics) Page(ctx context.Context, call PageCall) {
	ctx, span := a.startCall(ctx, "page", call.Name)
	defer a.spans.EndSpanWithError(span, nil)

	props := config.CloneMap(call.Properties)
	if props == nil {
		props = map[string]any{}
	}
	if call.Name != "" {
		props["name"] = call.Name
	}
	if call.Category != "" {
		props["category"] = call.Category
	}

	defaults := a.Location().PageDefaults()
	props = config.Merge(defaults, props)

	overrides := make(map[string]any, len(defaults))
	for key := range defaults {
		overrides[key] = props[key]
	}
	options := config.CloneMap(call.Options)
	if options == nil {
		options = map[string]any{}
	}
	pageCtx, _ := options["context"].(map[string]any)
	if pageCtx == nil {
		pageCtx = map[string]any{}
	}
	pageCtx["page"] = overrides
	options["context"] = pageCtx

	msg := map[string]any{
		"properties": props,
		"options":    options,
	}
	if call.Category != "" {
		msg["category"] = call.Category
	}
	if call.Name != "" {
		msg["name"] = call.Name
	}
	a.invoke(ctx, facade.NewPage(a.normalize(msg), facade.WithClock(a.now)))

	a.events.emit(EventPage, call.Category, call.Name, props, call.Options)
	a.callback(call.Callback)
}

func (a *Analytics) startCall(ctx context.Context, method, name string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	anon := a.user.AnonymousID()
	ctx, span := a.spans.StartCallSpan(ctx, method, anon)
	a.metrics.RecordCall(ctx, method)
	observability.LogCall(observability.EnrichLogger(a.logger, method, anon), method, name)
	return ctx, span
}
