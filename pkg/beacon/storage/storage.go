// Package storage provides the persistence backends identity records are
// written through, and the chain that probes them once and picks one.
package storage

import "errors"

// Backend is a uniform key-value capability. Values are JSON-like
// (maps, slices, strings, float64 numbers, bools, nil).
type Backend interface {
	// Name identifies the backend in logs ("cookie", "sqlite", "memory").
	Name() string

	// Get returns the value stored under key.
	// Returns ErrNotFound if the key is absent.
	Get(key string) (any, error)

	// Set stores value under key, overwriting any previous value.
	Set(key string, value any) error

	// Remove deletes key. Returns nil if the key does not exist.
	Remove(key string) error
}

// Prober is implemented by backends whose availability must be checked
// before use.
type Prober interface {
	// Probe reports whether the backend can currently store data.
	Probe() bool
}

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates a key doesn't exist.
	ErrNotFound = errors.New("key not found")

	// ErrStoreClosed indicates the backend has been closed.
	ErrStoreClosed = errors.New("storage closed")

	// ErrDisabled indicates the backend was disabled by its options.
	ErrDisabled = errors.New("storage disabled")
)
