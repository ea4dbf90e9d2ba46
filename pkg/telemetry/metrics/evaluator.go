package metrics

import (
	"time"

	"rxsentinel/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluatorMetrics tracks per-evaluator run metrics.
//
// Metrics:
//   - arbiter_evaluator_runs_total: Runs by evaluator and verdict outcome
//   - arbiter_evaluator_duration_seconds: Per-evaluator run duration
//   - arbiter_evaluator_failures_total: Failures by evaluator and class
//   - arbiter_evaluator_retries_total: Transient-failure retries
type EvaluatorMetrics struct {
	// Runs by evaluator and outcome
	runsTotal *prometheus.CounterVec

	// Run duration histogram
	runDuration *prometheus.HistogramVec

	// Failures by class (timeout, fault, skipped)
	failuresTotal *prometheus.CounterVec

	// Retries after transient failures
	retriesTotal *prometheus.CounterVec
}

// NewEvaluatorMetrics creates and registers evaluator metrics with the provided registry.
func NewEvaluatorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluatorMetrics {
	em := &EvaluatorMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluator_runs_total",
				Help:      "Total number of evaluator runs by outcome",
			},
			[]string{"evaluator", "outcome"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluator_duration_seconds",
				Help:      "Duration of individual evaluator runs in seconds",
				Buckets:   cfg.EvaluatorDurationBuckets,
			},
			[]string{"evaluator"},
		),

		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluator_failures_total",
				Help:      "Total number of evaluator runs that produced no verdict",
			},
			[]string{"evaluator", "class"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluator_retries_total",
				Help:      "Total number of transient-failure retries",
			},
			[]string{"evaluator"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		em.runsTotal,
		em.runDuration,
		em.failuresTotal,
		em.retriesTotal,
	)

	return em
}

// RecordRun records one evaluator run.
//
// Parameters:
//   - evaluator: Evaluator identity
//   - outcome: "PASS", "WARN", "BLOCK", or "failed"
//   - duration: Run duration
//
// Example:
//
//	em.RecordRun("dosage", "WARN", 800*time.Microsecond)
func (em *EvaluatorMetrics) RecordRun(evaluator, outcome string, duration time.Duration) {
	em.runsTotal.WithLabelValues(evaluator, outcome).Inc()
	em.runDuration.WithLabelValues(evaluator).Observe(duration.Seconds())
}

// RecordFailure records an evaluator that produced no verdict.
//
// Parameters:
//   - evaluator: Evaluator identity
//   - class: Failure class ("timeout", "fault", "skipped")
func (em *EvaluatorMetrics) RecordFailure(evaluator, class string) {
	em.failuresTotal.WithLabelValues(evaluator, class).Inc()
}

// RecordRetry records a transient-failure retry.
//
// Parameters:
//   - evaluator: Evaluator identity
func (em *EvaluatorMetrics) RecordRetry(evaluator string) {
	em.retriesTotal.WithLabelValues(evaluator).Inc()
}
