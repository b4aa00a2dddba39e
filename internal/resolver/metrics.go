package resolver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the resolution instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	resolutions   metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	errorsHandled metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewMetrics creates the resolution instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	resolutions, err := meter.Int64Counter("resolver_resolutions_total",
		metric.WithDescription("Handler resolutions by outcome"))
	if err != nil {
		return nil, err
	}
	cacheHits, err := meter.Int64Counter("resolver_cache_hits_total",
		metric.WithDescription("Resolution cache hits"))
	if err != nil {
		return nil, err
	}
	cacheMisses, err := meter.Int64Counter("resolver_cache_misses_total",
		metric.WithDescription("Resolution cache misses"))
	if err != nil {
		return nil, err
	}
	errorsHandled, err := meter.Int64Counter("resolver_errors_handled_total",
		metric.WithDescription("Error handler invocations by flow"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("resolver_resolution_duration_seconds",
		metric.WithDescription("Handler resolution duration"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		resolutions:   resolutions,
		cacheHits:     cacheHits,
		cacheMisses:   cacheMisses,
		errorsHandled: errorsHandled,
		duration:      duration,
	}, nil
}

func (m *Metrics) recordResolution(ctx context.Context, outcome string, start time.Time) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.resolutions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func (m *Metrics) recordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

func (m *Metrics) recordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1)
}

func (m *Metrics) recordErrorHandled(ctx context.Context, flow string) {
	if m == nil {
		return
	}
	m.errorsHandled.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}
