// Package metrics provides Prometheus instrumentation for the arbiter.
//
// All metrics are registered on a single Collector, created once at
// startup and threaded into the orchestrator, ledger, and refdata
// layers. The collector owns a private prometheus.Registry; nothing is
// registered on the global default registry.
//
// # Metric families
//
// Decision path:
//
//	arbiter_decisions_total{outcome, escalation}
//	arbiter_decision_duration_seconds{outcome}
//	arbiter_cases_rejected_total{reason}
//	arbiter_overrides_total{outcome}
//
// Evaluators:
//
//	arbiter_evaluator_runs_total{evaluator, outcome}
//	arbiter_evaluator_duration_seconds{evaluator}
//	arbiter_evaluator_failures_total{evaluator, class}
//	arbiter_evaluator_retries_total{evaluator}
//
// Audit ledger:
//
//	arbiter_ledger_appends_total{kind, status}
//	arbiter_ledger_append_duration_seconds{status}
//	arbiter_ledger_chain_intact
//	arbiter_ledger_chain_entries
//	arbiter_ledger_verifications_total{result}
//
// Reference data:
//
//	arbiter_refdata_lookups_total{dataset, status}
//	arbiter_refdata_lookup_duration_seconds{dataset}
//
// # Usage
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "arbiter"}
//	collector := metrics.NewCollector(cfg, nil)
//
//	collector.RecordDecision("DISPENSE", "none", 12*time.Millisecond)
//	collector.RecordEvaluatorRun("license", "PASS", 900*time.Microsecond)
//
//	http.Handle("/metrics", collector.Handler())
//
// Label values come from closed sets (verdict outcomes, registered
// evaluator IDs, entry kinds), so cardinality stays small. The
// CardinalityLimiter is a backstop against misbehaving callers, capping
// unique label sets at 10K and folding the overflow into "other".
package metrics
