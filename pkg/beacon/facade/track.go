package facade

// Track is the facade for track calls.
type Track struct {
	*Base
}

var _ Facade = (*Track)(nil)

// NewTrack wraps a track envelope.
func NewTrack(obj map[string]any, opts ...Option) *Track {
	return &Track{Base: New(obj, opts...)}
}

// Type implements Facade.
func (t *Track) Type() Type { return TypeTrack }

// JSON implements Facade.
func (t *Track) JSON() map[string]any { return t.json(TypeTrack) }

// Event returns the event name.
func (t *Track) Event() string {
	s, _ := t.obj["event"].(string)
	return s
}

// Revenue returns properties.revenue when it is numeric.
func (t *Track) Revenue() (float64, bool) {
	return t.number("revenue")
}

// Value returns properties.value when it is numeric.
func (t *Track) Value() (float64, bool) {
	return t.number("value")
}

// Category returns properties.category.
func (t *Track) Category() string {
	return t.props().String("category", "")
}

// Name returns properties.name, falling back to properties.label.
func (t *Track) Name() string {
	p := t.props()
	if name := p.String("name", ""); name != "" {
		return name
	}
	return p.String("label", "")
}

func (t *Track) number(key string) (float64, bool) {
	props, _ := t.obj["properties"].(map[string]any)
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
