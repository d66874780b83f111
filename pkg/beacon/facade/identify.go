package facade

import "strings"

// Identify is the facade for identify calls.
type Identify struct {
	*Base
}

var _ Facade = (*Identify)(nil)

// NewIdentify wraps an identify envelope.
func NewIdentify(obj map[string]any, opts ...Option) *Identify {
	return &Identify{Base: New(obj, opts...)}
}

// Type implements Facade.
func (i *Identify) Type() Type { return TypeIdentify }

// JSON implements Facade.
func (i *Identify) JSON() map[string]any { return i.json(TypeIdentify) }

// Traits returns the "traits" map, never nil.
func (i *Identify) Traits() map[string]any {
	return i.mapField("traits")
}

// Email returns the email trait, or the user id when it looks like an
// address.
func (i *Identify) Email() string {
	if email, ok := i.traitString("email"); ok {
		return email
	}
	if id := i.UserID(); strings.Contains(id, "@") {
		return id
	}
	return ""
}

// Name returns the name trait, or first and last name joined.
func (i *Identify) Name() string {
	if name, ok := i.traitString("name"); ok {
		return name
	}
	first, _ := i.traitString("firstName")
	last, _ := i.traitString("lastName")
	return strings.TrimSpace(first + " " + last)
}

func (i *Identify) traitString(key string) (string, bool) {
	traits, _ := i.obj["traits"].(map[string]any)
	s, ok := traits[key].(string)
	return s, ok && s != ""
}
