// Package observe provides application-wide observability primitives for
// Verselate: OpenTelemetry metrics, tracing helpers, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Verselate metrics.
const meterName = "github.com/verselate/verselate"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks per-stage latency. Use with attribute:
	//   attribute.String("stage", "recognition"|"lyrics"|"translation")
	StageDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end pipeline latency per request.
	PipelineDuration metric.Float64Histogram

	// Confidence tracks the confidence score of completed pipeline runs.
	Confidence metric.Float64Histogram

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...)
	ProviderErrors metric.Int64Counter

	// RateLimitRejections counts dispatch attempts skipped because the
	// provider's window was exhausted. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("stage", ...)
	RateLimitRejections metric.Int64Counter

	// CacheHits counts result-cache lookups that returned a fresh entry.
	// Use with attribute: attribute.String("kind", "lyrics"|"translation")
	CacheHits metric.Int64Counter

	// ActiveBatches tracks the number of batch jobs currently running.
	ActiveBatches metric.Int64UpDownCounter

	// HTTPRequestDuration tracks status-server request processing time.
	// Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Provider
// round-trips run from tens of milliseconds to multi-second LLM calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// confidenceBuckets defines bucket boundaries for the [0, 1] confidence score.
var confidenceBuckets = []float64{
	0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("verselate.stage.duration",
		metric.WithDescription("Latency of a single pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("verselate.pipeline.duration",
		metric.WithDescription("End-to-end pipeline latency per request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Confidence, err = m.Float64Histogram("verselate.pipeline.confidence",
		metric.WithDescription("Confidence score of completed pipeline runs."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("verselate.provider.requests",
		metric.WithDescription("Total provider API calls by provider, stage, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("verselate.provider.errors",
		metric.WithDescription("Total provider errors by provider and stage."),
	); err != nil {
		return nil, err
	}
	if met.RateLimitRejections, err = m.Int64Counter("verselate.ratelimit.rejections",
		metric.WithDescription("Dispatch attempts skipped because the provider's rate-limit window was exhausted."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("verselate.cache.hits",
		metric.WithDescription("Result-cache lookups that returned a fresh entry."),
	); err != nil {
		return nil, err
	}

	if met.ActiveBatches, err = m.Int64UpDownCounter("verselate.active_batches",
		metric.WithDescription("Number of batch jobs currently running."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("verselate.http.request.duration",
		metric.WithDescription("Status-server HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records one stage pass: its duration histogram sample plus a
// provider request increment for the provider that served it.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, stage, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, stage string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
		),
	)
}

// RecordRateLimitRejection records a skipped dispatch attempt for an
// exhausted provider.
func (m *Metrics) RecordRateLimitRejection(ctx context.Context, provider, stage string) {
	m.RateLimitRejections.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage),
		),
	)
}

// RecordPipeline records a completed pipeline run: its end-to-end duration
// and the resulting confidence score.
func (m *Metrics) RecordPipeline(ctx context.Context, d time.Duration, confidence float64) {
	m.PipelineDuration.Record(ctx, d.Seconds())
	m.Confidence.Record(ctx, confidence)
}

// RecordCacheHit records a fresh result-cache lookup.
func (m *Metrics) RecordCacheHit(ctx context.Context, kind string) {
	m.CacheHits.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
