// Package telemetry provides OpenTelemetry integration: a metrics Recorder
// fed by engine callbacks, a Prometheus exporter for /metrics and a tracer
// provider for round spans.
package telemetry
