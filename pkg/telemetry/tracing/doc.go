// Package tracing provides OpenTelemetry distributed tracing for the
// arbiter.
//
// An evaluation run produces one trace: a root span for the run, one
// child span per evaluator, and a span for the ledger append. When the
// submitting system sends a W3C traceparent header, the TraceContext
// middleware adopts it and the run trace attaches to the caller's
// instead of starting a disconnected one.
//
// # Setup
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "orchestrator.run")
//	defer span.End()
//
// Spans export over OTLP gRPC to the collector named in
// telemetry.tracing.endpoint. With tracing disabled (the default) New
// returns a noop tracer and span creation costs almost nothing.
//
// # Attributes
//
// Span attributes use the arbiter.* namespace: case ID, evaluator
// identity, verdict outcome and reason code, decision outcome and
// escalation, ledger entry kind and sequence. Patient fields never
// appear on spans; the case ID is the only case-level correlation key.
//
// # Sampling
//
// Sampling is parent-based: if the submitting system sampled the trace,
// the arbiter samples its part too. Roots started here follow the
// configured strategy (always, never, or trace-ID ratio).
package tracing
