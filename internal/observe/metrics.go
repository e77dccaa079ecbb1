// Package observe provides the observability primitives for speechscore:
// OpenTelemetry metrics, tracing helpers, trace-aware logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so they can be scraped from
// the metrics endpoint. Tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/speechscore"

// Stage names used as the "stage" attribute.
const (
	StageTextMatrices = "text_matrices"
	StagePhonemes     = "phonemes"
	StagePause        = "pause"
	StageDenoise      = "denoise"
	StageRNNoise      = "rnnoise"
)

// Metrics holds the metric instruments of the service. All fields are safe
// for concurrent use.
type Metrics struct {
	// StageDuration tracks latency per processing stage. Attribute: stage.
	StageDuration metric.Float64Histogram

	// Requests counts stage invocations. Attributes: stage, status.
	Requests metric.Int64Counter

	// Errors counts stage failures. Attributes: stage, kind.
	Errors metric.Int64Counter

	// InFlight tracks stage invocations currently running. Attribute: stage.
	InFlight metric.Int64UpDownCounter

	// PhonemeAnomalies counts symbols the tokenizer could not place.
	PhonemeAnomalies metric.Int64Counter

	// SNRImprovement records finalSNR-initialSNR of each adaptive denoise.
	SNRImprovement metric.Float64Histogram

	// DenoiseRollbacks counts adaptive denoise runs whose changes were all
	// discarded.
	DenoiseRollbacks metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Attributes:
	// name, to.
	BreakerTransitions metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Text stages land in
// the first buckets; the external filter in the last.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

var snrBuckets = []float64{0, 0.5, 1, 2, 3, 5, 8, 12, 20}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("speechscore.stage.duration",
		metric.WithDescription("Latency of a processing stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Requests, err = m.Int64Counter("speechscore.requests",
		metric.WithDescription("Stage invocations by stage and status."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("speechscore.errors",
		metric.WithDescription("Stage failures by stage and error kind."),
	); err != nil {
		return nil, err
	}
	if met.InFlight, err = m.Int64UpDownCounter("speechscore.in_flight",
		metric.WithDescription("Stage invocations currently running."),
	); err != nil {
		return nil, err
	}
	if met.PhonemeAnomalies, err = m.Int64Counter("speechscore.phoneme.anomalies",
		metric.WithDescription("Transcription symbols outside the phoneme inventory."),
	); err != nil {
		return nil, err
	}
	if met.SNRImprovement, err = m.Float64Histogram("speechscore.denoise.snr_improvement",
		metric.WithDescription("SNR gained by adaptive denoising."),
		metric.WithUnit("dB"),
		metric.WithExplicitBucketBoundaries(snrBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DenoiseRollbacks, err = m.Int64Counter("speechscore.denoise.rollbacks",
		metric.WithDescription("Adaptive denoise runs that kept the original audio."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("speechscore.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by breaker and target state."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("speechscore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first use
// from [otel.GetMeterProvider]. Panics if instrument creation fails.
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// StartStage marks a stage as running and returns a function that records
// its outcome. errKind is "" on success.
//
//	done := m.StartStage(ctx, observe.StagePause)
//	defer func() { done(kindOf(err)) }()
func (m *Metrics) StartStage(ctx context.Context, stage string) func(errKind string) {
	start := time.Now()
	stageAttr := metric.WithAttributes(attribute.String("stage", stage))
	m.InFlight.Add(ctx, 1, stageAttr)

	return func(errKind string) {
		m.InFlight.Add(ctx, -1, stageAttr)
		m.StageDuration.Record(ctx, time.Since(start).Seconds(), stageAttr)
		status := "ok"
		if errKind != "" {
			status = "error"
			m.Errors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("stage", stage),
				attribute.String("kind", errKind),
			))
		}
		m.Requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		))
	}
}

// RecordAnomaly counts one out-of-inventory symbol.
func (m *Metrics) RecordAnomaly(ctx context.Context) {
	m.PhonemeAnomalies.Add(ctx, 1)
}

// RecordDenoise records the outcome of an adaptive denoise run.
func (m *Metrics) RecordDenoise(ctx context.Context, initialSNR, finalSNR float64, rolledBack bool) {
	m.SNRImprovement.Record(ctx, finalSNR-initialSNR)
	if rolledBack {
		m.DenoiseRollbacks.Add(ctx, 1)
	}
}

// RecordBreakerTransition counts a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("to", to),
	))
}
