package identity

import "github.com/randalmurphal/beacon/pkg/beacon/storage"

// Group is the account/organisation entity. Its traits are stored under
// the group properties key.
type Group struct {
	*Entity
}

// NewGroup resolves a backend from candidates and returns the group entity.
func NewGroup(candidates []storage.Backend, opts ...Option) *Group {
	return &Group{Entity: newEntity(GroupDefaults, candidates, opts)}
}

// Properties is an alias of Traits.
func (g *Group) Properties() map[string]any {
	return g.Traits()
}

// SetProperties is an alias of SetTraits.
func (g *Group) SetProperties(props map[string]any) {
	g.SetTraits(props)
}
