// Package identity holds the persisted user and group records that every
// outgoing message is enriched with.
//
// Identity access never fails: backend errors are logged at debug level
// and read as absent values.
package identity

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/storage"
)

// Entity is an id plus a traits map, persisted through the backend chosen
// by the storage chain. The empty string is the null id.
//
// Entity is safe for concurrent use.
type Entity struct {
	mu       sync.Mutex
	defaults Options
	opts     Options
	backend  storage.Backend
	logger   *slog.Logger

	// In-entity values used when Persist is false.
	id     string
	traits map[string]any

	// onSetID runs after every id write with the previous and new id.
	// Called with mu held.
	onSetID func(prev, next string)
}

// Option configures an entity at construction.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	opts       Options
	backend    storage.Backend
	onDegraded func()
}

// WithLogger sets the logger for storage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithOptions overrides the entity defaults.
func WithOptions(opts Options) Option {
	return func(s *settings) {
		s.opts = opts
	}
}

// WithBackend uses a backend that was already resolved, skipping the
// storage chain.
func WithBackend(b storage.Backend) Option {
	return func(s *settings) {
		s.backend = b
	}
}

// WithDegradedHook registers fn to run when the storage chain falls back
// to memory.
func WithDegradedHook(fn func()) Option {
	return func(s *settings) {
		s.onDegraded = fn
	}
}

func newEntity(defaults Options, candidates []storage.Backend, opts []Option) *Entity {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	backend := s.backend
	if backend == nil {
		var degraded bool
		backend, degraded = storage.Resolve(s.logger, candidates...)
		if degraded && s.onDegraded != nil {
			s.onDegraded()
		}
	}

	return &Entity{
		defaults: defaults,
		opts:     s.opts.withDefaults(defaults),
		backend:  backend,
		logger:   s.logger,
	}
}

// Storage returns the backend the entity resolved at construction.
func (e *Entity) Storage() storage.Backend {
	return e.backend
}

// Options returns the effective options.
func (e *Entity) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// SetOptions replaces the options; unset fields take the entity defaults.
func (e *Entity) SetOptions(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts.withDefaults(e.defaults)
}

// ID returns the entity id, or "" when none is set.
func (e *Entity) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getID()
}

// SetID sets the entity id. The empty string clears it.
func (e *Entity) SetID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setID(id)
}

// Traits returns a copy of the entity traits, never nil.
func (e *Entity) Traits() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getTraits()
}

// SetTraits replaces the entity traits. Nil stores an empty map.
func (e *Entity) SetTraits(traits map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setTraits(traits)
}

// Identify sets id and traits. When the current id is unset or equals id,
// traits merge over the stored ones (incoming wins); a different id
// replaces them. An empty id leaves the current id untouched.
func (e *Entity) Identify(id string, traits map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cur := e.getID(); cur == "" || id == "" || cur == id {
		traits = config.Merge(e.getTraits(), traits)
	} else {
		traits = config.CloneMap(traits)
	}
	if id != "" {
		e.setID(id)
	}
	e.setTraits(traits)
	e.save()
}

// Save writes the current id and traits through to storage.
// Returns false when persistence is off.
func (e *Entity) Save() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.save()
}

// Logout clears id and traits and removes their storage keys.
func (e *Entity) Logout() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logout()
}

// Reset logs out and returns the options to their defaults.
func (e *Entity) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logout()
	e.opts = e.defaults
}

// Load reads id and traits from storage into the entity.
func (e *Entity) Load() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.load()
}

func (e *Entity) load() {
	e.setID(asString(e.get(e.opts.IDKey)))
	traits, _ := e.get(e.opts.TraitsKey).(map[string]any)
	e.setTraits(traits)
}

func (e *Entity) logout() {
	e.setID("")
	e.setTraits(map[string]any{})
	e.remove(e.opts.IDKey)
	e.remove(e.opts.TraitsKey)
}

func (e *Entity) save() bool {
	if !e.opts.persist() {
		return false
	}
	e.set(e.opts.IDKey, nullable(e.getID()))
	e.set(e.opts.TraitsKey, e.getTraits())
	return true
}

func (e *Entity) getID() string {
	if !e.opts.persist() {
		return e.id
	}
	return asString(e.get(e.opts.IDKey))
}

func (e *Entity) setID(id string) {
	prev := e.getID()
	if e.opts.persist() {
		e.set(e.opts.IDKey, nullable(id))
	} else {
		e.id = id
	}
	if e.onSetID != nil {
		e.onSetID(prev, id)
	}
}

func (e *Entity) getTraits() map[string]any {
	var traits map[string]any
	if e.opts.persist() {
		traits, _ = e.get(e.opts.TraitsKey).(map[string]any)
	} else {
		traits = e.traits
	}
	if traits == nil {
		return map[string]any{}
	}
	return config.CloneMap(traits)
}

func (e *Entity) setTraits(traits map[string]any) {
	if traits == nil {
		traits = map[string]any{}
	}
	if e.opts.persist() {
		e.set(e.opts.TraitsKey, traits)
		return
	}
	e.traits = config.CloneMap(traits)
}

func (e *Entity) get(key string) any {
	v, err := e.backend.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.LogStorageError(e.logger, e.backend.Name(), "get", key, err)
		}
		return nil
	}
	return v
}

func (e *Entity) set(key string, value any) {
	if err := e.backend.Set(key, value); err != nil {
		observability.LogStorageError(e.logger, e.backend.Name(), "set", key, err)
	}
}

func (e *Entity) remove(key string) {
	if key == "" {
		return
	}
	if err := e.backend.Remove(key); err != nil {
		observability.LogStorageError(e.logger, e.backend.Name(), "remove", key, err)
	}
}

// nullable maps the empty id to a stored null.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// asString reads an id back from storage. Numeric ids come back from JSON
// backends as float64 and are formatted without an exponent.
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
