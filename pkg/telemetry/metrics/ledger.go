package metrics

import (
	"time"

	"rxsentinel/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks audit-ledger metrics.
//
// Metrics:
//   - arbiter_ledger_appends_total: Appends by entry kind and status
//   - arbiter_ledger_append_duration_seconds: Append latency histogram
//   - arbiter_ledger_chain_intact: 1 if the last verification passed
//   - arbiter_ledger_chain_entries: Entries covered by the last verification
//   - arbiter_ledger_verifications_total: Verification sweeps by result
type LedgerMetrics struct {
	// Appends by kind and status
	appendsTotal *prometheus.CounterVec

	// Append latency
	appendDuration *prometheus.HistogramVec

	// Chain integrity gauge (1 = intact, 0 = broken)
	chainIntact prometheus.Gauge

	// Entries covered by the last verification sweep
	chainEntries prometheus.Gauge

	// Verification sweeps by result
	verificationsTotal *prometheus.CounterVec
}

// NewLedgerMetrics creates and registers ledger metrics with the provided registry.
func NewLedgerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LedgerMetrics {
	lm := &LedgerMetrics{
		appendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_appends_total",
				Help:      "Total number of ledger appends by entry kind",
			},
			[]string{"kind", "status"},
		),

		appendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_append_duration_seconds",
				Help:      "Duration of ledger appends in seconds",
				// Appends are local SQLite writes (100µs - 400ms)
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"status"},
		),

		chainIntact: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_chain_intact",
				Help:      "Whether the last hash-chain verification passed (1) or failed (0)",
			},
		),

		chainEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_chain_entries",
				Help:      "Number of entries covered by the last verification sweep",
			},
		),

		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_verifications_total",
				Help:      "Total number of chain verification sweeps by result",
			},
			[]string{"result"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		lm.appendsTotal,
		lm.appendDuration,
		lm.chainIntact,
		lm.chainEntries,
		lm.verificationsTotal,
	)

	return lm
}

// RecordAppend records one ledger append.
//
// Parameters:
//   - kind: Entry kind, or "batch" for multi-entry appends
//   - status: "ok" or "error"
//   - duration: Append latency
func (lm *LedgerMetrics) RecordAppend(kind, status string, duration time.Duration) {
	lm.appendsTotal.WithLabelValues(kind, status).Inc()
	lm.appendDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// UpdateChainStatus updates the chain gauges after a verification sweep.
//
// Parameters:
//   - intact: true if the chain verified end to end
//   - entries: Entries covered by the sweep
func (lm *LedgerMetrics) UpdateChainStatus(intact bool, entries uint64) {
	if intact {
		lm.chainIntact.Set(1)
	} else {
		lm.chainIntact.Set(0)
	}
	lm.chainEntries.Set(float64(entries))
}

// RecordVerification records a completed verification sweep.
//
// Parameters:
//   - result: "intact" or "broken"
func (lm *LedgerMetrics) RecordVerification(result string) {
	lm.verificationsTotal.WithLabelValues(result).Inc()
}
