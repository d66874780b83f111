package beacon_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon"
	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/identity"
	"github.com/randalmurphal/beacon/pkg/beacon/integration"
	"github.com/randalmurphal/beacon/pkg/beacon/storage"
	"github.com/randalmurphal/beacon/pkg/beacon/tick"
)

var (
	fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	testLocation = beacon.Location{
		Href:     "https://shop.example.com/pricing?ref=ad#plans",
		Referrer: "https://search.example.org/",
		Title:    "Pricing",
	}
)

// delivery is one facade received by one destination.
type delivery struct {
	dest string
	f    facade.Facade
}

// sink collects what every spy destination receives.
type sink struct {
	mu         sync.Mutex
	deliveries []delivery
	spies      map[string]*spy
}

func newSink() *sink {
	return &sink{spies: make(map[string]*spy)}
}

func (s *sink) add(dest string, f facade.Facade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, delivery{dest: dest, f: f})
}

// to returns the facades delivered to dest.
func (s *sink) to(dest string) []facade.Facade {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []facade.Facade
	for _, d := range s.deliveries {
		if d.dest == dest {
			out = append(out, d.f)
		}
	}
	return out
}

// order returns "dest.type" for every delivery.
func (s *sink) order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		out = append(out, d.dest+"."+string(d.f.Type()))
	}
	return out
}

func (s *sink) spy(name string) *spy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spies[name]
}

// spy is a destination that records deliveries. With manual set it holds
// its ready callback until fireReady.
type spy struct {
	*integration.Base
	sink   *sink
	manual bool

	mu    sync.Mutex
	ready func()
}

func (s *sink) constructor(name string, manual bool) integration.Constructor {
	return func(settings config.Config) integration.Integration {
		sp := &spy{Base: integration.NewBase(name, settings), sink: s, manual: manual}
		s.mu.Lock()
		s.spies[name] = sp
		s.mu.Unlock()
		return sp
	}
}

func (sp *spy) Initialize(ready func()) {
	if !sp.manual {
		ready()
		return
	}
	sp.mu.Lock()
	sp.ready = ready
	sp.mu.Unlock()
}

func (sp *spy) fireReady() {
	sp.mu.Lock()
	ready := sp.ready
	sp.mu.Unlock()
	ready()
}

func (sp *spy) Identify(_ context.Context, f *facade.Identify) { sp.sink.add(sp.Name(), f) }
func (sp *spy) Track(_ context.Context, f *facade.Track)       { sp.sink.add(sp.Name(), f) }
func (sp *spy) Page(_ context.Context, f *facade.Page)         { sp.sink.add(sp.Name(), f) }

type harness struct {
	a     *beacon.Analytics
	sched *tick.Manual
	store *storage.MemoryStore
	sink  *sink
}

func newHarness(t *testing.T, opts ...beacon.Option) *harness {
	t.Helper()
	h := &harness{
		sched: tick.NewManual(),
		store: storage.NewMemoryStore(),
		sink:  newSink(),
	}
	base := []beacon.Option{
		beacon.WithScheduler(h.sched),
		beacon.WithStorage(h.store),
		beacon.WithLogger(slog.New(slog.DiscardHandler)),
		beacon.WithLocation(testLocation),
		beacon.WithClock(func() time.Time { return fixedNow }),
	}
	h.a = beacon.New(append(base, opts...)...)
	t.Cleanup(h.a.Close)
	return h
}

// register adds spy constructors for names, in order.
func (h *harness) register(t *testing.T, manual bool, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := h.a.AddIntegration(n, h.sink.constructor(n, manual)); err != nil {
			t.Fatalf("add integration %s: %v", n, err)
		}
	}
}

// settingsFor enables every name with empty settings.
func settingsFor(names ...string) map[string]any {
	s := make(map[string]any, len(names))
	for _, n := range names {
		s[n] = map[string]any{}
	}
	return s
}

func beaconUserOptions(idKey string) identity.Options {
	return identity.Options{IDKey: idKey}
}
