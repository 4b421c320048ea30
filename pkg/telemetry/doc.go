// Package telemetry wires OpenTelemetry exporters and meters for pipeline
// runs.
//
// It centralises trace provider setup, records per-stage row and latency
// metrics, and can snapshot a run's metrics to a Prometheus textfile so batch
// runs are visible to a node_exporter collector.
package telemetry
