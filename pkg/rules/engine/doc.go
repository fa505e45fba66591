// Package engine evaluates use-case records against a ruleset and produces a
// DecisionResult: risk tier, model determination, triggered rules, required
// artifacts, missing evidence, risk flags and a templated rationale.
//
// # Evaluation Flow
//
//	Record + Ruleset
//	       ↓
//	SelectTriggeredRules   every rule whose condition tree holds
//	       ↓
//	ResolveTier            highest severity, first rule wins ties
//	       ↓
//	DetermineIsModel       Yes short-circuits, Model-like is remembered
//	       ↓
//	CollectRiskFlags / CollectRequiredArtifacts
//	       ↓
//	DetectMissingEvidence  structural checks and attachment presence
//	       ↓
//	GenerateRationale
//
// Evaluate composes these steps. It is pure and total: malformed leaves,
// unknown operators and type mismatches evaluate to false instead of
// returning errors. Configuration problems are caught earlier by the
// validator package.
//
// # Engine
//
// Engine wraps the pure function for long-running services. It reads the
// current ruleset snapshot from a RulesetProvider once per call and reports
// each Evaluation to registered observers:
//
//	eng := engine.NewEngine(cache, logger).WithObserver(metrics)
//	ev, err := eng.Evaluate(ctx, &record)
//
// # Concurrency
//
// Evaluate shares no mutable state and may be called concurrently against
// the same ruleset. Rulesets must not be mutated after they are published.
package engine
