package beacon

import "sync"

// Events emitted by Analytics.
const (
	EventInitialize = "initialize"
	EventIdentify   = "identify"
	EventTrack      = "track"
	EventPage       = "page"
	EventInvoke     = "invoke"
	EventReady      = "ready"
)

// Listener receives the arguments of an emitted event:
//
//	initialize: settings map[string]any, options Options
//	identify:   userID string, traits, options map[string]any
//	track:      event string, properties, options map[string]any
//	page:       category, name string, properties, options map[string]any
//	invoke:     facade.Facade
//	ready:      no arguments
type Listener func(args ...any)

type emitter struct {
	mu        sync.Mutex
	seq       uint64
	listeners map[string][]listenerEntry
}

type listenerEntry struct {
	id   uint64
	fn   Listener
	once bool
}

func (e *emitter) on(event string, fn Listener, once bool) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]listenerEntry)
	}
	e.seq++
	id := e.seq
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn, once: once})
	return func() { e.off(event, id) }
}

func (e *emitter) off(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[event]
	for i, l := range list {
		if l.id == id {
			e.listeners[event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// emit calls the listeners registered for event, in registration order,
// without holding the lock.
func (e *emitter) emit(event string, args ...any) {
	e.mu.Lock()
	list := e.listeners[event]
	if len(list) == 0 {
		e.mu.Unlock()
		return
	}
	snapshot := make([]listenerEntry, len(list))
	copy(snapshot, list)
	kept := list[:0:0]
	for _, l := range list {
		if !l.once {
			kept = append(kept, l)
		}
	}
	e.listeners[event] = kept
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(args...)
	}
}
