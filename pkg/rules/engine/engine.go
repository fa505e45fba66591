package engine

import (
	"context"
	"log/slog"
	"time"

	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// RulesetProvider supplies the current immutable ruleset snapshot.
type RulesetProvider interface {
	// Current returns the active ruleset, or nil if none is loaded.
	Current() *ast.Ruleset
}

// Observer receives every completed evaluation (e.g., for metrics).
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveEvaluation(ev *Evaluation)
}

// Engine evaluates records against whatever ruleset its provider currently
// holds. The snapshot is taken once per call, so a concurrent reload never
// changes the ruleset halfway through an evaluation.
type Engine struct {
	provider  RulesetProvider
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine backed by provider.
func NewEngine(provider RulesetProvider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider: provider,
		logger:   logger.With("component", "rules.engine"),
		now:      time.Now,
	}
}

// WithObserver registers an observer notified after every evaluation.
func (e *Engine) WithObserver(o Observer) *Engine {
	if o != nil {
		e.observers = append(e.observers, o)
	}
	return e
}

// Ruleset returns the provider's current ruleset.
func (e *Engine) Ruleset() *ast.Ruleset {
	if e.provider == nil {
		return nil
	}
	return e.provider.Current()
}

// Evaluate runs the pure evaluation against the current ruleset snapshot.
func (e *Engine) Evaluate(ctx context.Context, record *usecase.Record) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNilRecord
	}
	rs := e.Ruleset()
	if rs == nil {
		return nil, ErrNoRuleset
	}

	start := e.now()
	result := Evaluate(record, rs)
	ev := &Evaluation{
		Result:         result,
		RulesetName:    rs.Name,
		RulesetVersion: rs.Version,
		RulesetHash:    rs.Hash,
		EvaluatedAt:    start.UTC(),
		Duration:       e.now().Sub(start),
	}

	e.logger.Debug("evaluated use case",
		"tier", result.Tier,
		"is_model", result.IsModel,
		"triggered_rules", len(result.TriggeredRules),
		"missing_evidence", len(result.MissingEvidence),
		"duration", ev.Duration,
	)

	for _, o := range e.observers {
		o.ObserveEvaluation(ev)
	}
	return ev, nil
}

// Explain evaluates record and reports, for every rule and model criterion,
// whether it matched. Observers are not notified.
func (e *Engine) Explain(ctx context.Context, record *usecase.Record) (*Explanation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNilRecord
	}
	rs := e.Ruleset()
	if rs == nil {
		return nil, ErrNoRuleset
	}
	return Explain(record, rs), nil
}

// Explain is the pure form of Engine.Explain.
func Explain(record *usecase.Record, rs *ast.Ruleset) *Explanation {
	exp := &Explanation{
		Rules:    make([]RuleTrace, 0, len(rs.Rules)),
		Criteria: make([]CriterionTrace, 0, len(rs.Criteria)),
		Result:   Evaluate(record, rs),
	}
	for _, rule := range rs.Rules {
		fields := ast.CollectFields(rule.Conditions)
		if fields == nil {
			fields = []string{}
		}
		exp.Rules = append(exp.Rules, RuleTrace{
			ID:      rule.ID,
			Name:    rule.Name,
			Tier:    rule.Tier,
			Matched: EvaluateCondition(rule.Conditions, record),
			Fields:  fields,
		})
	}
	for _, c := range rs.Criteria {
		exp.Criteria = append(exp.Criteria, CriterionTrace{
			ID:      c.ID,
			Result:  c.Result,
			Matched: EvaluateCondition(c.Conditions, record),
		})
	}
	return exp
}
