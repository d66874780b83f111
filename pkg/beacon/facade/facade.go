// Package facade wraps normalized envelopes in read-only accessors.
//
// A facade is one of Identify, Track or Page. Destinations switch on the
// concrete type (or on Type) and read fields through the accessors rather
// than reaching into the envelope map.
package facade

import (
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
)

// Type tags the kind of call a facade carries.
type Type string

const (
	TypeIdentify Type = "identify"
	TypeTrack    Type = "track"
	TypePage     Type = "page"
)

// Facade is the accessor set shared by every envelope kind.
type Facade interface {
	// Type returns the call kind.
	Type() Type

	// JSON returns a copy of the envelope with "type" set.
	JSON() map[string]any

	Properties() map[string]any

	// Options returns the override object for dest. The second result is
	// false when dest is disabled for this envelope.
	Options(dest string) (map[string]any, bool)

	// Integrations returns the per-destination overrides.
	Integrations() map[string]any

	// Enabled reports whether dest should receive the envelope. It is
	// false only for an explicit boolean false in Integrations.
	Enabled(dest string) bool

	Timestamp() time.Time
	UserID() string
	AnonymousID() string
	Context() map[string]any
}

// Option configures facade construction.
type Option func(*settings)

type settings struct {
	clone bool
	now   func() time.Time
}

// WithoutClone wraps the envelope as is instead of deep-copying it. The
// caller must not modify the envelope afterwards.
func WithoutClone() Option {
	return func(s *settings) {
		s.clone = false
	}
}

// WithClock sets the clock used to stamp envelopes that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// Base holds the envelope and implements every accessor except Type.
type Base struct {
	obj   map[string]any
	clone bool
}

// New wraps obj. Unless WithoutClone is given obj is deep-copied, so later
// changes by the caller are not visible. A timestamp is stamped when the
// envelope has none.
func New(obj map[string]any, opts ...Option) *Base {
	s := settings{clone: true, now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}

	if s.clone || obj == nil {
		obj = config.CloneMap(obj)
		if obj == nil {
			obj = make(map[string]any)
		}
	}
	if _, ok := obj["timestamp"]; !ok {
		obj["timestamp"] = s.now()
	}
	return &Base{obj: obj, clone: s.clone}
}

// Field returns the raw envelope value for key.
func (b *Base) Field(key string) any {
	return b.copy(b.obj[key])
}

// Properties returns the "properties" map, never nil.
func (b *Base) Properties() map[string]any {
	return b.mapField("properties")
}

// Context returns the "context" map, never nil.
func (b *Base) Context() map[string]any {
	return b.mapField("context")
}

// Integrations returns the "integrations" map, falling back to the
// options map when the envelope has none.
func (b *Base) Integrations() map[string]any {
	if m, ok := b.obj["integrations"].(map[string]any); ok {
		return b.copyMap(m)
	}
	return b.options()
}

// Enabled implements Facade.
func (b *Base) Enabled(dest string) bool {
	integrations := b.obj["integrations"]
	m, ok := integrations.(map[string]any)
	if !ok {
		m, _ = b.rawOptions()
	}
	if enabled, ok := m[dest].(bool); ok {
		return enabled
	}
	return true
}

// Options implements Facade. For an enabled dest the result is the
// integrations entry when it is an object, else the options entry when it
// is an object, else an empty map.
func (b *Base) Options(dest string) (map[string]any, bool) {
	if !b.Enabled(dest) {
		return nil, false
	}
	if m, ok := b.Integrations()[dest].(map[string]any); ok {
		return m, true
	}
	if m, ok := b.options()[dest].(map[string]any); ok {
		return m, true
	}
	return map[string]any{}, true
}

// Timestamp returns the envelope timestamp. RFC 3339 strings are parsed;
// anything unreadable yields the zero time.
func (b *Base) Timestamp() time.Time {
	switch ts := b.obj["timestamp"].(type) {
	case time.Time:
		return ts
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

// UserID returns the envelope user id, or "".
func (b *Base) UserID() string {
	s, _ := b.obj["userId"].(string)
	return s
}

// AnonymousID returns the envelope anonymous id, or "".
func (b *Base) AnonymousID() string {
	s, _ := b.obj["anonymousId"].(string)
	return s
}

func (b *Base) json(t Type) map[string]any {
	out := config.CloneMap(b.obj)
	out["type"] = string(t)
	return out
}

// rawOptions returns the envelope's options map, or its context when there
// are no options. Normalized envelopes carry context only.
func (b *Base) rawOptions() (map[string]any, bool) {
	if m, ok := b.obj["options"].(map[string]any); ok {
		return m, true
	}
	if m, ok := b.obj["context"].(map[string]any); ok {
		return m, true
	}
	return nil, false
}

func (b *Base) options() map[string]any {
	m, _ := b.rawOptions()
	if m == nil {
		return map[string]any{}
	}
	return b.copyMap(m)
}

func (b *Base) mapField(key string) map[string]any {
	m, ok := b.obj[key].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return b.copyMap(m)
}

func (b *Base) copyMap(m map[string]any) map[string]any {
	if !b.clone {
		return m
	}
	return config.CloneMap(m)
}

func (b *Base) copy(v any) any {
	if !b.clone {
		return v
	}
	return config.CloneValue(v)
}

func (b *Base) props() config.Config {
	m, _ := b.obj["properties"].(map[string]any)
	return config.New(m)
}
