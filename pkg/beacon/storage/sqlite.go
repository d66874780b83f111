package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteProbeKey = "__storejs__"

// SQLiteOptions configures SQLiteStore.
type SQLiteOptions struct {
	// Enabled turns the backend on. A disabled store fails its probe and
	// every operation returns ErrDisabled. Default: true.
	Enabled *bool `yaml:"enabled" json:"enabled"`
}

// DefaultSQLiteOptions enables the store.
var DefaultSQLiteOptions = SQLiteOptions{}

func (o SQLiteOptions) enabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// SQLiteStore is the durable key-value backend. Values are stored as JSON
// text, so numbers read back as float64.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	enabled bool
	closed  bool
}

var (
	_ Backend = (*SQLiteStore)(nil)
	_ Prober  = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) a key-value store at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string, opts SQLiteOptions) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db, enabled: opts.enabled()}, nil
}

// SetOptions applies options to an open store.
func (s *SQLiteStore) SetOptions(opts SQLiteOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = opts.enabled()
}

// Name implements Backend.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Get implements Backend.
func (s *SQLiteStore) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw, nil
	}
	return v, nil
}

// Set implements Backend. A nil value removes the key.
func (s *SQLiteStore) Set(key string, value any) error {
	if value == nil {
		return s.Remove(key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Remove implements Backend.
func (s *SQLiteStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Probe implements Prober with a write/read/delete round trip.
func (s *SQLiteStore) Probe() bool {
	if err := s.Set(sqliteProbeKey, sqliteProbeKey); err != nil {
		return false
	}
	v, err := s.Get(sqliteProbeKey)
	ok := err == nil && v == sqliteProbeKey
	_ = s.Remove(sqliteProbeKey)
	return ok
}

// Close implements io.Closer. Closing twice is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// usable must be called with s.mu held.
func (s *SQLiteStore) usable() error {
	if s.closed {
		return ErrStoreClosed
	}
	if !s.enabled {
		return ErrDisabled
	}
	return nil
}
