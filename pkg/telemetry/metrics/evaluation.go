package metrics

import (
	"keystone-mrm/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks rules engine evaluations.
//
// Metrics:
//   - arbiter_rules_evaluations_total: Evaluations by tier and model determination
//   - arbiter_rules_evaluation_duration_seconds: Evaluation duration
//   - arbiter_rules_rule_triggers_total: Times each rule triggered
//   - arbiter_rules_missing_evidence_total: Missing artifacts reported
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	ruleTriggersTotal  *prometheus.CounterVec
	missingEvidence    *prometheus.CounterVec
	evaluationErrors   *prometheus.CounterVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of use-case evaluations",
			},
			[]string{"tier", "is_model"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of use-case evaluation in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
		),

		ruleTriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_triggers_total",
				Help:      "Total number of times a rule triggered",
			},
			[]string{"rule_id"},
		),

		missingEvidence: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "missing_evidence_total",
				Help:      "Total number of required artifacts reported missing",
			},
			[]string{"artifact_id"},
		),

		evaluationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Total number of evaluations that failed",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.ruleTriggersTotal,
		em.missingEvidence,
		em.evaluationErrors,
	)

	return em
}
