package facade

// Page is the facade for page calls.
type Page struct {
	*Base
}

var _ Facade = (*Page)(nil)

// NewPage wraps a page envelope.
func NewPage(obj map[string]any, opts ...Option) *Page {
	return &Page{Base: New(obj, opts...)}
}

// Type implements Facade.
func (p *Page) Type() Type { return TypePage }

// JSON implements Facade.
func (p *Page) JSON() map[string]any { return p.json(TypePage) }

// Category returns the page category, or "".
func (p *Page) Category() string {
	s, _ := p.obj["category"].(string)
	return s
}

// Name returns the page name, or "".
func (p *Page) Name() string {
	s, _ := p.obj["name"].(string)
	return s
}

// FullName joins category and name with a space. Without a name it is ""
// and without a category it is the bare name.
func (p *Page) FullName() string {
	name, category := p.Name(), p.Category()
	if name != "" && category != "" {
		return category + " " + name
	}
	return name
}

// Track converts the page into a track envelope named after name:
// "Viewed <name> Page", or "Loaded a Page" when name is empty.
func (p *Page) Track(name string) *Track {
	obj := p.json(TypeTrack)
	obj["event"] = PageEvent(name)
	obj["timestamp"] = p.Timestamp()
	obj["properties"] = p.Properties()
	return &Track{Base: New(obj)}
}

// PageEvent is the track event name for a page named name.
func PageEvent(name string) string {
	if name == "" {
		return "Loaded a Page"
	}
	return "Viewed " + name + " Page"
}
