// Package observability provides structured logging, metrics, and tracing
// for the beacon pipeline.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Metrics and tracing are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds call context to a logger.
// Returns a new logger with method and anonymous_id fields.
func EnrichLogger(logger *slog.Logger, method, anonymousID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("method", method),
		slog.String("anonymous_id", anonymousID),
	)
}

// LogCall logs an accepted identify/track/page call.
func LogCall(logger *slog.Logger, method, name string) {
	if logger == nil {
		return
	}
	logger.Debug("call accepted",
		slog.String("method", method),
		slog.String("name", name),
	)
}

// LogPlanSkip logs an event dropped by the tracking plan.
func LogPlanSkip(logger *slog.Logger, event string) {
	if logger == nil {
		return
	}
	logger.Debug("event disabled by plan",
		slog.String("event", event),
	)
}

// LogDispatch logs delivery of a facade to one destination.
func LogDispatch(logger *slog.Logger, method, destination string) {
	if logger == nil {
		return
	}
	logger.Debug("dispatched",
		slog.String("method", method),
		slog.String("destination", destination),
	)
}

// LogDispatchSkipped logs a destination skipped for a facade.
func LogDispatchSkipped(logger *slog.Logger, method, destination, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch skipped",
		slog.String("method", method),
		slog.String("destination", destination),
		slog.String("reason", reason),
	)
}

// LogInitialize logs the start of an initialization cycle.
func LogInitialize(logger *slog.Logger, destinations []string, discarded []string) {
	if logger == nil {
		return
	}
	logger.Info("initializing destinations",
		slog.Any("destinations", destinations),
		slog.Any("discarded", discarded),
	)
}

// LogDestinationReady logs a single destination reporting ready.
func LogDestinationReady(logger *slog.Logger, destination string, readyCount, total int) {
	if logger == nil {
		return
	}
	logger.Debug("destination ready",
		slog.String("destination", destination),
		slog.Int("ready", readyCount),
		slog.Int("total", total),
	)
}

// LogReady logs the global ready transition.
func LogReady(logger *slog.Logger, destinationCount int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("all destinations ready",
		slog.Int("destinations", destinationCount),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStorageSelected logs the backend chosen by the storage chain.
func LogStorageSelected(logger *slog.Logger, backend string) {
	if logger == nil {
		return
	}
	logger.Debug("storage backend selected",
		slog.String("backend", backend),
	)
}

// LogStorageFallback logs the degraded in-memory fallback (non-fatal).
func LogStorageFallback(logger *slog.Logger, tried []string) {
	if logger == nil {
		return
	}
	logger.Warn("using memory storage, persistent backends unavailable",
		slog.Any("tried", tried),
	)
}

// LogStorageError logs a swallowed backend failure.
func LogStorageError(logger *slog.Logger, backend, op, key string, err error) {
	if logger == nil {
		return
	}
	logger.Debug("storage operation failed",
		slog.String("backend", backend),
		slog.String("operation", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
