package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/bordereaux/pkg/engine/runtime"
)

var (
	metricsOnce           sync.Once
	metricsInitErr        error
	stageExecutionCounter metric.Int64Counter
	stageAcceptedCounter  metric.Int64Counter
	stageExceptionCounter metric.Int64Counter
	stageFailureCounter   metric.Int64Counter
	stageLatencyHistogram metric.Float64Histogram
)

// StageMetrics captures the fields needed to record stage telemetry metrics.
type StageMetrics struct {
	RunID         string
	Stage         string
	Outcome       runtime.Outcome
	Duration      time.Duration
	InputRows     int
	AcceptedRows  int
	ExceptionRows int
}

// RecordStageMetrics emits counters and histograms that describe a stage
// invocation.
func RecordStageMetrics(ctx context.Context, metrics StageMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("stage.name", metrics.Stage),
		attribute.String("stage.outcome", string(metrics.Outcome)),
	}

	stageExecutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		stageLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	if metrics.AcceptedRows > 0 {
		stageAcceptedCounter.Add(ctx, int64(metrics.AcceptedRows), metric.WithAttributes(attrs...))
	}
	if metrics.ExceptionRows > 0 {
		stageExceptionCounter.Add(ctx, int64(metrics.ExceptionRows), metric.WithAttributes(attrs...))
	}

	if metrics.Outcome != runtime.OutcomeSuccess {
		stageFailureCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("bordereaux.pipeline")

		stageExecutionCounter, metricsInitErr = meter.Int64Counter(
			"bordereaux.stage.executions_total",
			metric.WithDescription("Stage invocations partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		stageAcceptedCounter, metricsInitErr = meter.Int64Counter(
			"bordereaux.stage.accepted_rows_total",
			metric.WithDescription("Rows routed to a stage's accepted output"),
			metric.WithUnit("{row}"),
		)
		if metricsInitErr != nil {
			return
		}

		stageExceptionCounter, metricsInitErr = meter.Int64Counter(
			"bordereaux.stage.exception_rows_total",
			metric.WithDescription("Rows routed to a stage's exceptions output"),
			metric.WithUnit("{row}"),
		)
		if metricsInitErr != nil {
			return
		}

		stageFailureCounter, metricsInitErr = meter.Int64Counter(
			"bordereaux.stage.failures_total",
			metric.WithDescription("Stage invocations that ended without writing outputs"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		stageLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"bordereaux.stage.duration_ms",
			metric.WithDescription("Observed stage execution latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}

// RecordExceptionEvent attaches per-reason exception counts to the span.
// Only reason codes are recorded, never row contents.
func RecordExceptionEvent(span trace.Span, stage string, reasons map[string]int) {
	if span == nil || !span.IsRecording() || len(reasons) == 0 {
		return
	}

	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := []attribute.KeyValue{attribute.String("stage.name", stage)}
	total := 0
	for _, k := range keys {
		attrs = append(attrs, attribute.Int("exceptions."+k, reasons[k]))
		total += reasons[k]
	}
	attrs = append(attrs, attribute.Int("exceptions.total", total))

	span.AddEvent("stage.exceptions", trace.WithAttributes(attrs...))
}
