package integration_test

import (
	"context"
	"sync"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/facade"
	"github.com/randalmurphal/beacon/pkg/beacon/integration"
)

// recorder is a destination that records calls into a shared log.
type recorder struct {
	*integration.Base

	mu    sync.Mutex
	log   *[]string
	ready func()
}

func newRecorder(name string, log *[]string) *recorder {
	return &recorder{Base: integration.NewBase(name, config.New(nil)), log: log}
}

// Initialize keeps the ready callback for the test to fire.
func (r *recorder) Initialize(ready func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = ready
}

func (r *recorder) fireReady() {
	r.mu.Lock()
	ready := r.ready
	r.mu.Unlock()
	ready()
}

func (r *recorder) record(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, r.Name()+"."+method)
}

func (r *recorder) Identify(context.Context, *facade.Identify) { r.record("identify") }
func (r *recorder) Track(context.Context, *facade.Track)       { r.record("track") }
func (r *recorder) Page(context.Context, *facade.Page)         { r.record("page") }

func configNone() config.Config { return config.New(nil) }
