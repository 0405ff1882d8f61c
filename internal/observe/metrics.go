// Package observe provides application-wide observability primitives for
// touchline: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware for the optional ops endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics of long
// runs can be scraped via the standard /metrics endpoint. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
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

// meterName is the instrumentation scope name used for all touchline metrics.
const meterName = "github.com/MrWong99/touchline"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks the time spent in each cleaning stage. Use with
	// attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// EventDuration tracks the time taken to process one event end to end.
	EventDuration metric.Float64Histogram

	// SegmentsLoaded counts segments read from the dataset.
	SegmentsLoaded metric.Int64Counter

	// SegmentsRejected counts segments removed by the hallucination filter.
	// Use with attribute:
	//   attribute.String("reason", ...)
	SegmentsRejected metric.Int64Counter

	// SegmentsMerged counts segments folded into an earlier duplicate.
	SegmentsMerged metric.Int64Counter

	// SpansDetected counts candidate entity spans. Use with attribute:
	//   attribute.String("source", ...)
	SpansDetected metric.Int64Counter

	// Corrections counts applied name corrections. Use with attribute:
	//   attribute.String("method", ...): "learned" or "scored"
	Corrections metric.Int64Counter

	// DetectorErrors counts failed detector calls.
	DetectorErrors metric.Int64Counter

	// LearnedEntries tracks the size of the learned correction cache after
	// the most recent save.
	LearnedEntries metric.Int64Gauge

	// HTTPRequestDuration tracks ops endpoint request time. Use with
	// attributes:
	//   attribute.String("path", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// per-stage and per-event processing time.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("touchline.stage.duration",
		metric.WithDescription("Time spent in a cleaning stage by stage name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EventDuration, err = m.Float64Histogram("touchline.event.duration",
		metric.WithDescription("Time taken to clean one event."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsLoaded, err = m.Int64Counter("touchline.segments.loaded",
		metric.WithDescription("Total segments read from the dataset."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsRejected, err = m.Int64Counter("touchline.segments.rejected",
		metric.WithDescription("Total segments removed by the hallucination filter by reason."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsMerged, err = m.Int64Counter("touchline.segments.merged",
		metric.WithDescription("Total segments merged into an earlier duplicate."),
	); err != nil {
		return nil, err
	}
	if met.SpansDetected, err = m.Int64Counter("touchline.spans.detected",
		metric.WithDescription("Total candidate entity spans by detector source."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("touchline.corrections",
		metric.WithDescription("Total applied name corrections by method."),
	); err != nil {
		return nil, err
	}
	if met.DetectorErrors, err = m.Int64Counter("touchline.detector.errors",
		metric.WithDescription("Total failed span detector calls."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.LearnedEntries, err = m.Int64Gauge("touchline.learned.entries",
		metric.WithDescription("Number of entries in the learned correction cache."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("touchline.http.request.duration",
		metric.WithDescription("Ops endpoint request latency by method and path."),
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

// RecordStage records the duration of one stage run that began at start.
func (m *Metrics) RecordStage(ctx context.Context, stage string, start time.Time) {
	m.StageDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordRejection records a filter rejection with its reason tag.
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	m.SegmentsRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordSpans records n detected spans from source.
func (m *Metrics) RecordSpans(ctx context.Context, source string, n int) {
	if n <= 0 {
		return
	}
	m.SpansDetected.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordCorrection records one applied correction.
func (m *Metrics) RecordCorrection(ctx context.Context, method string) {
	m.Corrections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)),
	)
}
