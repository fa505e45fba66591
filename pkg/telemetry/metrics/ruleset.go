package metrics

import (
	"keystone-mrm/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RulesetMetrics tracks ruleset loading.
//
// Metrics:
//   - arbiter_rules_ruleset_reloads_total: Reload attempts by status
//   - arbiter_rules_ruleset_reload_duration_seconds: Load and validate duration
//   - arbiter_rules_ruleset_info: 1 for the active ruleset, labelled by name, version and hash
//   - arbiter_rules_ruleset_rules: Rules in the active ruleset
//   - arbiter_rules_ruleset_last_reload_timestamp_seconds: Unix time of the last successful reload
type RulesetMetrics struct {
	reloadsTotal    *prometheus.CounterVec
	reloadDuration  prometheus.Histogram
	info            *prometheus.GaugeVec
	rules           prometheus.Gauge
	lastReloadEpoch prometheus.Gauge
}

// NewRulesetMetrics creates and registers ruleset metrics.
func NewRulesetMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RulesetMetrics {
	rm := &RulesetMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ruleset_reloads_total",
				Help:      "Total number of ruleset reload attempts",
			},
			[]string{"status"},
		),

		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ruleset_reload_duration_seconds",
				Help:      "Duration of ruleset load and validation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
		),

		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ruleset_info",
				Help:      "Active ruleset (value is always 1)",
			},
			[]string{"name", "version", "hash"},
		),

		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ruleset_rules",
				Help:      "Number of rules in the active ruleset",
			},
		),

		lastReloadEpoch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ruleset_last_reload_timestamp_seconds",
				Help:      "Unix time of the last successful ruleset reload",
			},
		),
	}

	registry.MustRegister(
		rm.reloadsTotal,
		rm.reloadDuration,
		rm.info,
		rm.rules,
		rm.lastReloadEpoch,
	)

	return rm
}
