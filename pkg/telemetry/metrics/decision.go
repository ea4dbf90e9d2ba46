package metrics

import (
	"time"

	"rxsentinel/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks metrics for completed evaluation runs.
//
// Metrics:
//   - arbiter_decisions_total: Decision count by outcome and escalation
//   - arbiter_decision_duration_seconds: Full-run duration histogram
//   - arbiter_cases_rejected_total: Cases rejected before evaluation
//   - arbiter_overrides_total: Pharmacist overrides by outcome
type DecisionMetrics struct {
	// Total decisions
	decisionsTotal *prometheus.CounterVec

	// Full-run duration histogram
	decisionDuration *prometheus.HistogramVec

	// Cases rejected at intake
	rejectedTotal *prometheus.CounterVec

	// Pharmacist overrides
	overridesTotal *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of dispensing decisions recorded",
			},
			[]string{"outcome", "escalation"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Duration of evaluation runs from intake to durable decision",
				Buckets:   cfg.DecisionDurationBuckets,
			},
			[]string{"outcome"},
		),

		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cases_rejected_total",
				Help:      "Total number of cases rejected before evaluation",
			},
			[]string{"reason"},
		),

		overridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "overrides_total",
				Help:      "Total number of pharmacist overrides recorded",
			},
			[]string{"outcome"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		dm.decisionsTotal,
		dm.decisionDuration,
		dm.rejectedTotal,
		dm.overridesTotal,
	)

	return dm
}

// RecordDecision records a completed evaluation run.
//
// Parameters:
//   - outcome: Final outcome ("DISPENSE", "HOLD", "ESCALATE")
//   - escalation: Escalation target ("none", "pharmacist-review", "tech-notify")
//   - duration: Full-run duration
func (dm *DecisionMetrics) RecordDecision(outcome, escalation string, duration time.Duration) {
	dm.decisionsTotal.WithLabelValues(outcome, escalation).Inc()
	dm.decisionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRejection records a case rejected at intake.
//
// Parameters:
//   - reason: Rejection class (e.g. "malformed")
func (dm *DecisionMetrics) RecordRejection(reason string) {
	dm.rejectedTotal.WithLabelValues(reason).Inc()
}

// RecordOverride records a pharmacist override.
//
// Parameters:
//   - outcome: The overriding outcome
func (dm *DecisionMetrics) RecordOverride(outcome string) {
	dm.overridesTotal.WithLabelValues(outcome).Inc()
}
