// Package normalize turns a raw call payload with a loose options object
// into the canonical envelope handed to destinations.
//
// The options object may hold per-destination overrides keyed by
// destination name, a legacy providers object, the four toplevel fields
// (integrations, anonymousId, timestamp, context) and arbitrary context
// keys. Normalize sorts them into the envelope's integrations and context
// maps. The steps run in a fixed order and their precedence matters:
//
//  1. option keys naming a destination (case-insensitive) or the wildcard
//     "all" move into integrations; an existing entry wins
//  2. providers is dropped; its destination-named entries are copied into
//     integrations unless an object override exists there, or the entry is
//     already present and the provider value is a boolean
//  3. the remaining toplevel keys go on the envelope, the rest into context
//  4. the envelope keeps every message field except options
package normalize

import (
	"sort"

	"golang.org/x/text/cases"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
)

// Wildcard is the destination name that addresses every destination.
const Wildcard = "all"

// Envelope field names.
const (
	KeyOptions      = "options"
	KeyProviders    = "providers"
	KeyIntegrations = "integrations"
	KeyAnonymousID  = "anonymousId"
	KeyTimestamp    = "timestamp"
	KeyContext      = "context"
)

var toplevel = map[string]bool{
	KeyIntegrations: true,
	KeyAnonymousID:  true,
	KeyTimestamp:    true,
	KeyContext:      true,
}

// Normalize returns the envelope for msg given the registered destination
// names. msg and everything reachable from it are left untouched; the
// result shares no maps with the input.
//
// The result always carries integrations and context maps. When the
// options object supplies neither, the values already on msg are kept, so
// normalizing an envelope a second time returns it unchanged.
func Normalize(msg map[string]any, destinations []string) map[string]any {
	m := newMatcher(destinations)

	opts := asMap(msg[KeyOptions])
	integrations := firstMap(opts[KeyIntegrations], msg[KeyIntegrations])
	providers := asMap(opts[KeyProviders])
	context := firstMap(opts[KeyContext], msg[KeyContext])
	ret := make(map[string]any)

	for _, key := range sortedKeys(opts) {
		if !m.match(key) {
			continue
		}
		if _, ok := integrations[key]; !ok {
			integrations[key] = opts[key]
		}
		delete(opts, key)
	}

	delete(opts, KeyProviders)
	for _, key := range sortedKeys(providers) {
		if !m.match(key) {
			continue
		}
		if _, ok := integrations[key].(map[string]any); ok {
			continue
		}
		if _, present := integrations[key]; present {
			if _, isBool := providers[key].(bool); isBool {
				continue
			}
		}
		integrations[key] = providers[key]
	}

	for _, key := range sortedKeys(opts) {
		if toplevel[key] {
			ret[key] = opts[key]
		} else {
			context[key] = opts[key]
		}
	}

	out := config.CloneMap(msg)
	if out == nil {
		out = make(map[string]any)
	}
	delete(out, KeyOptions)
	for k, v := range ret {
		out[k] = v
	}
	out[KeyIntegrations] = integrations
	out[KeyContext] = context
	return out
}

// IsWildcard reports whether name is the "all" destination in any case.
func IsWildcard(name string) bool {
	return cases.Fold().String(name) == Wildcard
}

type matcher struct {
	exact  map[string]bool
	folded map[string]bool
	fold   cases.Caser
}

func newMatcher(destinations []string) *matcher {
	m := &matcher{
		exact:  make(map[string]bool, len(destinations)),
		folded: make(map[string]bool, len(destinations)+1),
		fold:   cases.Fold(),
	}
	m.folded[Wildcard] = true
	for _, d := range destinations {
		m.exact[d] = true
		m.folded[m.fold.String(d)] = true
	}
	return m
}

func (m *matcher) match(name string) bool {
	if m.exact[name] {
		return true
	}
	return m.folded[m.fold.String(name)]
}

// asMap returns a deep copy of v when it is a map, otherwise an empty map.
func asMap(v any) map[string]any {
	if mv, ok := v.(map[string]any); ok && mv != nil {
		return config.CloneMap(mv)
	}
	return make(map[string]any)
}

func firstMap(candidates ...any) map[string]any {
	for _, c := range candidates {
		if mv, ok := c.(map[string]any); ok && mv != nil {
			return config.CloneMap(mv)
		}
	}
	return make(map[string]any)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
