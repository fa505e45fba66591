package tracing

import (
	"keystone-mrm/arbiter/pkg/rules/engine"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Domain keys live under "arbiter.".
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"

	AttrRequestID       = "arbiter.request_id"
	AttrUseCaseID       = "arbiter.use_case.id"
	AttrDecisionID      = "arbiter.decision.id"
	AttrRulesetName     = "arbiter.ruleset.name"
	AttrRulesetVersion  = "arbiter.ruleset.version"
	AttrRulesetHash     = "arbiter.ruleset.hash"
	AttrTier            = "arbiter.tier"
	AttrIsModel         = "arbiter.is_model"
	AttrTriggeredRules  = "arbiter.triggered_rules"
	AttrMissingEvidence = "arbiter.missing_evidence"
)

// SetEvaluationAttributes records an evaluation outcome on span.
func SetEvaluationAttributes(span trace.Span, ev *engine.Evaluation) {
	if ev == nil || ev.Result == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrRulesetName, ev.RulesetName),
		attribute.String(AttrRulesetVersion, ev.RulesetVersion),
		attribute.String(AttrRulesetHash, ev.RulesetHash),
		attribute.String(AttrTier, ev.Result.Tier),
		attribute.String(AttrIsModel, string(ev.Result.IsModel)),
		attribute.StringSlice(AttrTriggeredRules, ev.Result.TriggeredRuleIDs()),
		attribute.Int(AttrMissingEvidence, len(ev.Result.MissingEvidence)),
	)
}

// SetHTTPAttributes records the matched route and response status on span.
func SetHTTPAttributes(span trace.Span, method, route string, status int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, status),
	)
}
