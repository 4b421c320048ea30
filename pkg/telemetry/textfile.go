package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polisai/bordereaux/pkg/engine/runtime"
)

// RunMetrics collects one run's stage results into a private Prometheus
// registry that can be dumped to a node_exporter textfile.
type RunMetrics struct {
	registry      *prometheus.Registry
	rows          *prometheus.GaugeVec
	duration      *prometheus.GaugeVec
	success       *prometheus.GaugeVec
	lastCompleted prometheus.Gauge
}

// NewRunMetrics registers the run gauges on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bordereaux",
				Name:      "stage_rows",
				Help:      "Rows seen by the stage in the last run",
			},
			[]string{"stage", "disposition"}, // "input", "accepted", "exception"
		),
		duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bordereaux",
				Name:      "stage_duration_seconds",
				Help:      "Wall time of the stage in the last run",
			},
			[]string{"stage"},
		),
		success: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bordereaux",
				Name:      "stage_success",
				Help:      "1 when the stage wrote its outputs in the last run",
			},
			[]string{"stage"},
		),
		lastCompleted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bordereaux",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last stage finished",
			},
		),
	}

	m.registry.MustRegister(m.rows, m.duration, m.success, m.lastCompleted)
	return m
}

// Observe records a stage result.
func (m *RunMetrics) Observe(s StageMetrics) {
	m.rows.WithLabelValues(s.Stage, "input").Set(float64(s.InputRows))
	m.rows.WithLabelValues(s.Stage, "accepted").Set(float64(s.AcceptedRows))
	m.rows.WithLabelValues(s.Stage, "exception").Set(float64(s.ExceptionRows))
	m.duration.WithLabelValues(s.Stage).Set(s.Duration.Seconds())

	ok := 0.0
	if s.Outcome == runtime.OutcomeSuccess {
		ok = 1
	}
	m.success.WithLabelValues(s.Stage).Set(ok)
	m.lastCompleted.SetToCurrentTime()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the registry in Prometheus text format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
