package beacon

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/beacon/pkg/beacon/identity"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/storage"
	"github.com/randalmurphal/beacon/pkg/beacon/tick"
)

// DefaultTimeout is the delay before completion callbacks run.
const DefaultTimeout = 300 * time.Millisecond

// settings holds construction-time configuration.
type settings struct {
	logger     *slog.Logger
	sched      tick.Scheduler
	candidates []storage.Backend
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	location   Location
	timeout    time.Duration
	now        func() time.Time
}

func defaultSettings() settings {
	return settings{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// Option configures an Analytics instance.
type Option func(*settings)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScheduler sets the scheduler that runs completion and post-ready
// callbacks. Default: a tick.Loop owned by the instance and stopped by
// Close.
func WithScheduler(sched tick.Scheduler) Option {
	return func(s *settings) {
		s.sched = sched
	}
}

// WithStorage sets the storage candidates, in preference order. The first
// one whose probe passes backs both the user and the group; when none
// does, identity lives in memory.
//
// Example:
//
//	jar, _ := storage.NewCookieJar()
//	cookies, _ := storage.NewCookieStore(jar, "https://app.example.com/", storage.CookieOptions{})
//	durable, _ := storage.NewSQLiteStore("beacon.db", storage.DefaultSQLiteOptions)
//	a := beacon.New(beacon.WithStorage(cookies, durable))
func WithStorage(candidates ...storage.Backend) Option {
	return func(s *settings) {
		s.candidates = candidates
	}
}

// WithMetrics enables OpenTelemetry metrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry call spans.
func WithTracing(spans observability.SpanManager) Option {
	return func(s *settings) {
		if spans != nil {
			s.spans = spans
		}
	}
}

// WithLocation sets the page the pipeline runs on.
func WithLocation(loc Location) Option {
	return func(s *settings) {
		s.location = loc
	}
}

// WithTimeout sets the completion-callback delay. Zero runs callbacks on
// the next scheduler tick. Default: 300ms.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithClock sets the clock used to timestamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// Options are passed to Initialize. Every field has a usable zero value.
type Options struct {
	// InitialPageview sends a page call as part of Initialize.
	// Destinations whose settings carry initialPageview: false skip it.
	InitialPageview bool `yaml:"initialPageview" json:"initialPageview"`

	// Plan is the tracking plan.
	Plan Plan `yaml:"plan" json:"plan"`

	// Cookie configures every cookie storage candidate.
	Cookie storage.CookieOptions `yaml:"cookie" json:"cookie"`

	// LocalStorage configures every SQLite storage candidate.
	LocalStorage storage.SQLiteOptions `yaml:"localStorage" json:"localStorage"`

	// User and Group configure the identity entities.
	User  identity.Options `yaml:"user" json:"user"`
	Group identity.Options `yaml:"group" json:"group"`
}

// Plan is a tracking plan: per-event dispatch policy.
type Plan struct {
	Track map[string]PlanEvent `yaml:"track" json:"track"`
}

// PlanEvent is the policy for one track event.
type PlanEvent struct {
	// Enabled false drops the event before dispatch. The completion
	// callback still runs.
	Enabled *bool `yaml:"enabled" json:"enabled"`

	// Integrations are defaults for the event's integrations map; the
	// message's own entries win.
	Integrations map[string]any `yaml:"integrations" json:"integrations"`
}

// LoadOptions parses Options from YAML or JSON.
func LoadOptions(data []byte) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse options: %w", err)
	}
	return opts, nil
}
