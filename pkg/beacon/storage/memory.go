package storage

import (
	"sync"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
)

// MemoryStore is a process-lifetime backend. Data is lost when the process
// exits. Values are deep-copied on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]any
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]any)}
}

// Name implements Backend.
func (m *MemoryStore) Name() string { return "memory" }

// Get implements Backend.
func (m *MemoryStore) Get(key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return config.CloneValue(v), nil
}

// Set implements Backend. A nil value removes the key.
func (m *MemoryStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == nil {
		delete(m.data, key)
		return nil
	}
	m.data[key] = config.CloneValue(value)
	return nil
}

// Remove implements Backend.
func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
