package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordCall records an identify/track/page call.
	RecordCall(ctx context.Context, method string)

	// RecordDispatch records delivery of a facade to a destination.
	RecordDispatch(ctx context.Context, method, destination string)

	// RecordSkip records a destination skipped for a facade.
	RecordSkip(ctx context.Context, method, destination, reason string)

	// RecordReady records the global ready transition.
	RecordReady(ctx context.Context, destinations int, duration time.Duration)

	// RecordStorageFallback records the chain falling back to memory.
	RecordStorageFallback(ctx context.Context)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	calls            metric.Int64Counter
	dispatches       metric.Int64Counter
	skipped          metric.Int64Counter
	readyLatency     metric.Float64Histogram
	storageFallbacks metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("beacon")

	calls, err := meter.Int64Counter("beacon.calls",
		metric.WithDescription("Number of identify/track/page calls"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("beacon.dispatches",
		metric.WithDescription("Number of facades delivered to destinations"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter("beacon.dispatch.skipped",
		metric.WithDescription("Number of destinations skipped for a facade"),
	)
	if err != nil {
		return nil, err
	}

	readyLatency, err := meter.Float64Histogram("beacon.ready.latency_ms",
		metric.WithDescription("Time from initialize to all destinations ready"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	storageFallbacks, err := meter.Int64Counter("beacon.storage.fallbacks",
		metric.WithDescription("Number of storage chains that fell back to memory"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		calls:            calls,
		dispatches:       dispatches,
		skipped:          skipped,
		readyLatency:     readyLatency,
		storageFallbacks: storageFallbacks,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordCall records a call.
func (m *otelMetrics) RecordCall(ctx context.Context, method string) {
	m.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordDispatch records a delivery.
func (m *otelMetrics) RecordDispatch(ctx context.Context, method, destination string) {
	m.dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("destination", destination),
	))
}

// RecordSkip records a skipped destination.
func (m *otelMetrics) RecordSkip(ctx context.Context, method, destination, reason string) {
	m.skipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("destination", destination),
		attribute.String("reason", reason),
	))
}

// RecordReady records the ready transition.
func (m *otelMetrics) RecordReady(ctx context.Context, destinations int, duration time.Duration) {
	m.readyLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.Int("destinations", destinations),
	))
}

// RecordStorageFallback records a memory fallback.
func (m *otelMetrics) RecordStorageFallback(ctx context.Context) {
	m.storageFallbacks.Add(ctx, 1)
}
