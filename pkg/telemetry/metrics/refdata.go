package metrics

import (
	"time"

	"rxsentinel/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RefdataMetrics tracks reference-data lookup metrics.
//
// Metrics:
//   - arbiter_refdata_lookups_total: Lookups by dataset and status
//   - arbiter_refdata_lookup_duration_seconds: Lookup latency histogram
type RefdataMetrics struct {
	// Lookups by dataset and status
	lookupsTotal *prometheus.CounterVec

	// Lookup latency
	lookupDuration *prometheus.HistogramVec
}

// NewRefdataMetrics creates and registers refdata metrics with the provided registry.
func NewRefdataMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RefdataMetrics {
	rm := &RefdataMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "refdata_lookups_total",
				Help:      "Total number of reference-data lookups",
			},
			[]string{"dataset", "status"},
		),

		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "refdata_lookup_duration_seconds",
				Help:      "Duration of reference-data lookups in seconds",
				// Local backends: 10µs reads up to slow-disk outliers
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"dataset"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		rm.lookupsTotal,
		rm.lookupDuration,
	)

	return rm
}

// RecordLookup records one reference-data lookup.
//
// Parameters:
//   - dataset: "license", "dea", or "state_rules"
//   - status: "ok", "not_found", or "error"
//   - duration: Lookup latency
func (rm *RefdataMetrics) RecordLookup(dataset, status string, duration time.Duration) {
	rm.lookupsTotal.WithLabelValues(dataset, status).Inc()
	rm.lookupDuration.WithLabelValues(dataset).Observe(duration.Seconds())
}
