package beacon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// The resolvers turn positional, loosely typed arguments into calls the
// way the historical snippet API reads them. A func() anywhere in the
// trailing positions is the callback; map[string]any is an object.

// ResolveIdentify reads (id, traits, options, callback):
//   - a callback in the options position clears options
//   - a callback in the traits position clears traits and options
//   - an object in the id position is the traits, the traits position
//     becomes the options, and the id defaults to the current user id
func ResolveIdentify(args ...any) (IdentifyCall, error) {
	const method = "identify"
	a, err := spread(method, args, 4)
	if err != nil {
		return IdentifyCall{}, err
	}
	id, traits, options, fn := a[0], a[1], a[2], a[3]

	if isCallback(options) {
		fn, options = options, nil
	}
	if isCallback(traits) {
		fn, options, traits = traits, nil, nil
	}
	if isObject(id) {
		options, traits, id = traits, id, nil
	}

	var call IdentifyCall
	if call.UserID, err = idArg(method, 0, id); err != nil {
		return IdentifyCall{}, err
	}
	if call.Traits, err = objectArg(method, 1, traits); err != nil {
		return IdentifyCall{}, err
	}
	if call.Options, err = objectArg(method, 2, options); err != nil {
		return IdentifyCall{}, err
	}
	if call.Callback, err = callbackArg(method, 3, fn); err != nil {
		return IdentifyCall{}, err
	}
	return call, nil
}

// ResolveTrack reads (event, properties, options, callback) with the same
// trailing-callback rules as ResolveIdentify.
func ResolveTrack(args ...any) (TrackCall, error) {
	const method = "track"
	a, err := spread(method, args, 4)
	if err != nil {
		return TrackCall{}, err
	}
	event, properties, options, fn := a[0], a[1], a[2], a[3]

	if isCallback(options) {
		fn, options = options, nil
	}
	if isCallback(properties) {
		fn, options, properties = properties, nil, nil
	}

	var call TrackCall
	if call.Event, err = stringArg(method, 0, event); err != nil {
		return TrackCall{}, err
	}
	if call.Properties, err = objectArg(method, 1, properties); err != nil {
		return TrackCall{}, err
	}
	if call.Options, err = objectArg(method, 2, options); err != nil {
		return TrackCall{}, err
	}
	if call.Callback, err = callbackArg(method, 3, fn); err != nil {
		return TrackCall{}, err
	}
	return call, nil
}

// ResolvePage reads (category, name, properties, options, callback).
// Trailing callbacks are stripped first. Then an object in the category
// position is the properties (category and name unset), an object in the
// name position is the properties (name unset), and a lone string
// category is the name. A string in the properties position is the path.
func ResolvePage(args ...any) (PageCall, error) {
	const method = "page"
	a, err := spread(method, args, 5)
	if err != nil {
		return PageCall{}, err
	}
	category, name, properties, options, fn := a[0], a[1], a[2], a[3], a[4]

	if isCallback(options) {
		fn, options = options, nil
	}
	if isCallback(properties) {
		fn, options, properties = properties, nil, nil
	}
	if isCallback(name) {
		fn, options, properties, name = name, nil, nil, nil
	}
	if isObject(category) {
		options, properties, name, category = name, category, nil, nil
	}
	if isObject(name) {
		options, properties, name = properties, name, nil
	}
	if isString(category) && !isString(name) {
		name, category = category, nil
	}

	var call PageCall
	if call.Category, err = stringArg(method, 0, category); err != nil {
		return PageCall{}, err
	}
	if call.Name, err = stringArg(method, 1, name); err != nil {
		return PageCall{}, err
	}
	if path, ok := properties.(string); ok {
		call.Properties = map[string]any{"path": path}
	} else if call.Properties, err = objectArg(method, 2, properties); err != nil {
		return PageCall{}, err
	}
	if call.Options, err = objectArg(method, 3, options); err != nil {
		return PageCall{}, err
	}
	if call.Callback, err = callbackArg(method, 4, fn); err != nil {
		return PageCall{}, err
	}
	return call, nil
}

// Push runs a snippet-style call: method followed by its positional
// arguments. Besides identify, track and page it accepts reset,
// setAnonymousId, ready, timeout (milliseconds) and use.
func (a *Analytics) Push(ctx context.Context, method string, args ...any) error {
	switch method {
	case "identify":
		call, err := ResolveIdentify(args...)
		if err != nil {
			return err
		}
		a.Identify(ctx, call)
	case "track":
		call, err := ResolveTrack(args...)
		if err != nil {
			return err
		}
		a.Track(ctx, call)
	case "page":
		call, err := ResolvePage(args...)
		if err != nil {
			return err
		}
		a.Page(ctx, call)
	case "reset":
		a.Reset()
	case "setAnonymousId":
		v, err := spread(method, args, 1)
		if err != nil {
			return err
		}
		id, err := idArg(method, 0, v[0])
		if err != nil {
			return err
		}
		a.SetAnonymousID(id)
	case "ready":
		v, err := spread(method, args, 1)
		if err != nil {
			return err
		}
		fn, err := callbackArg(method, 0, v[0])
		if err != nil {
			return err
		}
		a.Ready(fn)
	case "timeout":
		v, err := spread(method, args, 1)
		if err != nil {
			return err
		}
		ms, ok := number(v[0])
		if !ok {
			return &ArgumentError{Method: method, Position: 0, Expected: "a number of milliseconds", Got: v[0]}
		}
		a.SetTimeout(time.Duration(ms * float64(time.Millisecond)))
	case "use":
		v, err := spread(method, args, 1)
		if err != nil {
			return err
		}
		plugin, ok := asPlugin(v[0])
		if !ok {
			return &ArgumentError{Method: method, Position: 0, Expected: "a plugin", Got: v[0]}
		}
		a.Use(plugin)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return nil
}

// Start replays calls queued before the pipeline existed. Every use call
// runs first, then Initialize, then the remaining calls in order. When no
// page call was queued one is sent at the end. A malformed call does not
// stop the replay; the errors are joined.
func (a *Analytics) Start(ctx context.Context, calls [][]any, settings map[string]any, opts Options) error {
	var errs []error

	for _, c := range calls {
		if method, _ := methodOf(c); method == "use" {
			if err := a.Push(ctx, method, c[1:]...); err != nil {
				errs = append(errs, err)
			}
		}
	}

	a.Initialize(ctx, settings, opts)

	pageCalled := false
	for i, c := range calls {
		method, ok := methodOf(c)
		if !ok {
			errs = append(errs, &ArgumentError{Method: "start", Position: i, Expected: "a call starting with a method name", Got: c})
			continue
		}
		if method == "use" {
			continue
		}
		pageCalled = pageCalled || method == "page"
		if err := a.Push(ctx, method, c[1:]...); err != nil {
			errs = append(errs, err)
		}
	}

	if !pageCalled {
		a.Page(ctx, PageCall{})
	}
	return errors.Join(errs...)
}

func methodOf(call []any) (string, bool) {
	if len(call) == 0 {
		return "", false
	}
	method, ok := call[0].(string)
	return method, ok && method != ""
}

// spread pads args to n positions, rejecting extras.
func spread(method string, args []any, n int) ([]any, error) {
	if len(args) > n {
		return nil, &ArgumentError{
			Method:   method,
			Position: n,
			Expected: fmt.Sprintf("at most %d arguments", n),
			Got:      args[n],
		}
	}
	out := make([]any, n)
	copy(out, args)
	return out, nil
}

func isCallback(v any) bool {
	fn, ok := v.(func())
	return ok && fn != nil
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func asPlugin(v any) (Plugin, bool) {
	switch p := v.(type) {
	case Plugin:
		return p, p != nil
	case func(*Analytics):
		return p, p != nil
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func idArg(method string, pos int, v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	if n, ok := number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", &ArgumentError{Method: method, Position: pos, Expected: "a string or number id", Got: v}
}

func stringArg(method string, pos int, v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &ArgumentError{Method: method, Position: pos, Expected: "a string", Got: v}
}

func objectArg(method string, pos int, v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	return nil, &ArgumentError{Method: method, Position: pos, Expected: "an object", Got: v}
}

func callbackArg(method string, pos int, v any) (func(), error) {
	if v == nil {
		return nil, nil
	}
	if fn, ok := v.(func()); ok {
		return fn, nil
	}
	return nil, &ArgumentError{Method: method, Position: pos, Expected: "a func()", Got: v}
}
