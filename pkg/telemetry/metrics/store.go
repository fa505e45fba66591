package metrics

import (
	"keystone-mrm/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks decision persistence and retention.
//
// Metrics:
//   - arbiter_rules_decision_store_operations_total: Storage operations by operation and status
//   - arbiter_rules_decision_store_duration_seconds: Storage operation duration
//   - arbiter_rules_decisions_pruned_total: Decisions removed by retention
//   - arbiter_rules_decision_recorder_pending: Decisions queued for async write
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	prunedTotal       prometheus.Counter
	pending           prometheus.Gauge
}

// NewStoreMetrics creates and registers decision store metrics.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_store_operations_total",
				Help:      "Total number of decision storage operations",
			},
			[]string{"operation", "status"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_store_duration_seconds",
				Help:      "Duration of decision storage operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"operation"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_pruned_total",
				Help:      "Total number of decisions removed by retention",
			},
		),

		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_recorder_pending",
				Help:      "Decisions queued for asynchronous write",
			},
		),
	}

	registry.MustRegister(
		sm.operationsTotal,
		sm.operationDuration,
		sm.prunedTotal,
		sm.pending,
	)

	return sm
}
