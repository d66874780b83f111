package identity

import (
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/beacon/pkg/beacon/storage"
)

// User is the visitor entity. On top of Entity it owns the anonymous id,
// which is regenerated whenever the id changes from one non-empty value to
// a different one.
type User struct {
	*Entity
}

// NewUser resolves a backend from candidates and returns the user entity.
func NewUser(candidates []storage.Backend, opts ...Option) *User {
	u := &User{Entity: newEntity(UserDefaults, candidates, opts)}
	u.onSetID = func(prev, next string) {
		if prev != "" && next != "" && prev != next {
			u.setAnonymousID("")
		}
	}
	return u
}

// AnonymousID returns the stored anonymous id. A legacy "_sio" value is
// migrated; when neither exists a UUID v4 is generated and stored.
func (u *User) AnonymousID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.anonymousID()
}

// SetAnonymousID stores id as the anonymous id. The empty string removes it.
func (u *User) SetAnonymousID(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setAnonymousID(id)
}

// Logout clears id, traits and the anonymous id.
func (u *User) Logout() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.logout()
	u.setAnonymousID("")
}

// Reset logs out and returns the options to their defaults.
func (u *User) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.logout()
	u.setAnonymousID("")
	u.opts = u.defaults
}

// Load migrates a legacy {id, traits} value if one exists, otherwise reads
// id and traits from storage.
func (u *User) Load() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.loadOldKey() {
		return
	}
	u.load()
}

func (u *User) loadOldKey() bool {
	if u.opts.OldKey == "" {
		return false
	}
	old, ok := u.get(u.opts.OldKey).(map[string]any)
	if !ok {
		return false
	}
	u.setID(asString(old["id"]))
	traits, _ := old["traits"].(map[string]any)
	u.setTraits(traits)
	u.remove(u.opts.OldKey)
	return true
}

func (u *User) anonymousID() string {
	if id := asString(u.get(AnonymousIDKey)); id != "" {
		return id
	}

	if legacy := asString(u.get(LegacyAnonymousIDKey)); legacy != "" {
		id, _, _ := strings.Cut(legacy, "----")
		u.set(AnonymousIDKey, id)
		u.remove(LegacyAnonymousIDKey)
		return id
	}

	id := uuid.NewString()
	u.set(AnonymousIDKey, id)
	if stored := asString(u.get(AnonymousIDKey)); stored != "" {
		return stored
	}
	return id
}

func (u *User) setAnonymousID(id string) {
	if id == "" {
		u.remove(AnonymousIDKey)
		return
	}
	u.set(AnonymousIDKey, id)
}
