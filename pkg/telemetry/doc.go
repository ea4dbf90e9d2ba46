// Package telemetry provides observability for the arbiter service.
//
// The package is organized into four subpackages:
//
//   - logging: structured logging via log/slog with PHI redaction
//   - metrics: Prometheus metrics for decisions, evaluators, and the ledger
//   - tracing: OpenTelemetry tracing with OTLP export
//   - health: liveness and readiness endpoints
//
// Each subpackage is configured through the corresponding section of
// config.TelemetryConfig and can be used independently.
package telemetry
