package storage

import (
	"log/slog"

	"github.com/randalmurphal/beacon/pkg/beacon/observability"
)

// Resolve probes candidates in order and returns the first one available.
// Candidates that don't implement Prober are taken as available; nil
// candidates are skipped. When nothing is available a fresh MemoryStore is
// returned, a degraded-mode warning is logged, and degraded is true.
//
// Each candidate is probed at most once; callers keep the result for the
// lifetime of whatever it backs.
func Resolve(logger *slog.Logger, candidates ...Backend) (backend Backend, degraded bool) {
	tried := make([]string, 0, len(candidates))
	for _, b := range candidates {
		if b == nil {
			continue
		}
		if p, ok := b.(Prober); ok && !p.Probe() {
			tried = append(tried, b.Name())
			continue
		}
		observability.LogStorageSelected(logger, b.Name())
		return b, false
	}

	observability.LogStorageFallback(logger, tried)
	return NewMemoryStore(), true
}
