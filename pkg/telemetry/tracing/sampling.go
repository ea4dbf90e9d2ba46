package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler strategy names accepted in telemetry.tracing.sampler.
const (
	// SamplerAlways records every evaluation run. Suited to development
	// and to low-volume pharmacies where the full trail is affordable.
	SamplerAlways = "always"

	// SamplerNever records nothing while keeping the tracer wired, so
	// sampling can be turned on without a restart path change.
	SamplerNever = "never"

	// SamplerRatio records a fixed fraction of runs, keyed off the
	// trace ID so the choice is stable across services.
	SamplerRatio = "ratio"
)

// createSampler maps a strategy name to an SDK sampler. The result is
// parent-based: when the pharmacy system upstream already started a
// trace, its decision wins, so an evaluation run is either traced end
// to end (intake, every evaluator span, the ledger append) or not at
// all. Only the root of a trace consults the configured strategy.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler
	switch strategy {
	case SamplerAlways:
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		root = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}
	return sdktrace.ParentBased(root), nil
}
