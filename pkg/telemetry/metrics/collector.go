package metrics

import (
	"time"

	"rxsentinel/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the single registration point for all Prometheus metrics
// in the arbiter. It owns the registry and fans recordings out to the
// decision, evaluator, ledger, and refdata metric families.
//
// Every Record method is a no-op when metrics are disabled, so call
// sites never carry their own guard. Metric vectors are built once at
// construction; the decision path only touches pre-built instances.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics  *DecisionMetrics
	evaluatorMetrics *EvaluatorMetrics
	ledgerMetrics    *LedgerMetrics
	refdataMetrics   *RefdataMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector backed by the given registry.
// A nil registry gets a fresh private one, which keeps tests from
// tripping over duplicate registration.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "arbiter"
	}
	if len(cfg.DecisionDurationBuckets) == 0 {
		// Full evaluation runs: sub-millisecond rule checks up to the
		// 30s run deadline.
		cfg.DecisionDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0}
	}
	if len(cfg.EvaluatorDurationBuckets) == 0 {
		cfg.EvaluatorDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		decisionMetrics:    NewDecisionMetrics(cfg, registry),
		evaluatorMetrics:   NewEvaluatorMetrics(cfg, registry),
		ledgerMetrics:      NewLedgerMetrics(cfg, registry),
		refdataMetrics:     NewRefdataMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}
}

// RecordDecision records metrics for a completed evaluation run.
//
// Parameters:
//   - outcome: final outcome ("DISPENSE", "HOLD", "ESCALATE")
//   - escalation: escalation target ("none", "pharmacist-review", "tech-notify")
//   - duration: wall time of the full run, case intake to durable decision
//
// Example:
//
//	collector.RecordDecision("HOLD", "pharmacist-review", 220*time.Millisecond)
func (c *Collector) RecordDecision(outcome, escalation string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.RecordDecision(outcome, escalation, duration)
}

// RecordCaseRejected counts a case that failed structural validation and
// never reached the evaluators, labeled by rejection class ("malformed",
// "payload_too_large").
func (c *Collector) RecordCaseRejected(reason string) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.RecordRejection(reason)
}

// RecordOverride counts a pharmacist override of a held decision,
// labeled by the overriding outcome.
func (c *Collector) RecordOverride(outcome string) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.RecordOverride(outcome)
}

// RecordEvaluatorRun records metrics for one evaluator's run within an
// evaluation.
//
// Parameters:
//   - evaluator: evaluator identity (e.g. "license", "dosage")
//   - outcome: verdict outcome ("PASS", "WARN", "BLOCK") or "failed"
//   - duration: evaluator run duration
func (c *Collector) RecordEvaluatorRun(evaluator, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	// One series per evaluator and outcome. Past the cap the evaluator
	// label folds into "other" so a runaway registry cannot grow the
	// series set unbounded.
	key := "evaluator:" + evaluator + ":" + outcome
	if !c.cardinalityLimiter.Allow(key) {
		evaluator = "other"
	}

	c.evaluatorMetrics.RecordRun(evaluator, outcome, duration)
}

// RecordEvaluatorFailure counts an evaluator that produced no verdict,
// labeled by failure class ("timeout", "fault", "skipped").
func (c *Collector) RecordEvaluatorFailure(evaluator, class string) {
	if !c.config.Enabled {
		return
	}

	c.evaluatorMetrics.RecordFailure(evaluator, class)
}

// RecordEvaluatorRetry counts a transient-failure retry of an evaluator.
func (c *Collector) RecordEvaluatorRetry(evaluator string) {
	if !c.config.Enabled {
		return
	}

	c.evaluatorMetrics.RecordRetry(evaluator)
}

// RecordLedgerAppend records an append to the audit ledger.
//
// Parameters:
//   - kind: entry kind ("evaluation-run", "decision", "override", "evaluator-failure", "batch")
//   - status: "ok" or "error"
//   - duration: time from draft to durable entry
func (c *Collector) RecordLedgerAppend(kind, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.ledgerMetrics.RecordAppend(kind, status, duration)
}

// UpdateChainStatus updates the chain-integrity gauges after a
// verification sweep: whether the hash chain verified end to end, and
// how many entries the sweep covered.
func (c *Collector) UpdateChainStatus(intact bool, entries uint64) {
	if !c.config.Enabled {
		return
	}

	c.ledgerMetrics.UpdateChainStatus(intact, entries)
}

// RecordVerification counts a completed chain verification sweep,
// labeled "intact" or "broken".
func (c *Collector) RecordVerification(result string) {
	if !c.config.Enabled {
		return
	}

	c.ledgerMetrics.RecordVerification(result)
}

// RecordRefdataLookup records a reference-data lookup.
//
// Parameters:
//   - dataset: "license", "dea", or "state_rules"
//   - status: "ok", "not_found", or "error"
//   - duration: lookup duration
func (c *Collector) RecordRefdataLookup(dataset, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.refdataMetrics.RecordLookup(dataset, status, duration)
}

// Registry exposes the underlying Prometheus registry for mounting the
// metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
