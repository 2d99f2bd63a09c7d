// Package observe provides observability primitives for the soniclint
// pipeline: OpenTelemetry metrics, distributed tracing, and structured
// logging helpers.
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all soniclint metrics.
const meterName = "github.com/soniclint/soniclint"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// SegmentationDuration tracks the latency of one segmentation pass over
	// a drained stream buffer.
	SegmentationDuration metric.Float64Histogram

	// AnalysisDuration tracks per-analyzer latency. Use with attribute:
	//   attribute.String("analyzer", ...)
	AnalysisDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsProduced counts segments emitted by segmentation. Use with
	// attribute: attribute.String("segment_type", ...)
	SegmentsProduced metric.Int64Counter

	// SegmentsScored counts segments leaving the coordinator. Use with
	// attribute: attribute.String("outcome", ...), one of "persisted",
	// "skipped", or "failed".
	SegmentsScored metric.Int64Counter

	// DroppedNotifications counts segment-created notifications discarded
	// under the drop_newest backpressure policy.
	DroppedNotifications metric.Int64Counter

	// --- Error counters ---

	// PipelineErrors counts isolated pipeline failures. Use with attribute:
	//   attribute.String("stage", ...), one of "unknown_stream",
	//   "segmentation", "storage", "retrieval", "analysis".
	PipelineErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of notifications waiting in the scoring
	// queue. Pipeline health is inferred from this and PipelineErrors.
	QueueDepth metric.Int64UpDownCounter

	// ActiveStreams tracks the number of open telemetry streams.
	ActiveStreams metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// CPU-bound DSP passes over clips up to 30 s.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SegmentationDuration, err = m.Float64Histogram("soniclint.segmentation.duration",
		metric.WithDescription("Latency of one segmentation pass over a drained buffer."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("soniclint.analysis.duration",
		metric.WithDescription("Per-analyzer scoring latency by analyzer name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsProduced, err = m.Int64Counter("soniclint.segments.produced",
		metric.WithDescription("Total segments emitted by segmentation, by segment type."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsScored, err = m.Int64Counter("soniclint.segments.scored",
		metric.WithDescription("Total segments leaving the scoring coordinator, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.DroppedNotifications, err = m.Int64Counter("soniclint.notifications.dropped",
		metric.WithDescription("Segment-created notifications dropped under drop_newest backpressure."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.PipelineErrors, err = m.Int64Counter("soniclint.pipeline.errors",
		metric.WithDescription("Isolated pipeline failures by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("soniclint.queue.depth",
		metric.WithDescription("Notifications waiting in the scoring queue."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("soniclint.active_streams",
		metric.WithDescription("Number of open telemetry streams."),
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

// RecordSegmentProduced records one emitted segment of the given type.
func (m *Metrics) RecordSegmentProduced(ctx context.Context, segmentType string) {
	m.SegmentsProduced.Add(ctx, 1,
		metric.WithAttributes(attribute.String("segment_type", segmentType)),
	)
}

// RecordSegmentScored records one segment leaving the coordinator with the
// given outcome ("persisted", "skipped", "failed").
func (m *Metrics) RecordSegmentScored(ctx context.Context, outcome string) {
	m.SegmentsScored.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordPipelineError records one isolated failure at the given stage.
func (m *Metrics) RecordPipelineError(ctx context.Context, stage string) {
	m.PipelineErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordAnalysisDuration records one analyzer run's latency in seconds.
func (m *Metrics) RecordAnalysisDuration(ctx context.Context, analyzer string, seconds float64) {
	m.AnalysisDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("analyzer", analyzer)),
	)
}
