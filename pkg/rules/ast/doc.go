// Package ast defines the in-memory form of a tiering ruleset.
//
// A ruleset is parsed from YAML by package parser, checked by package
// validator, and then treated as an immutable value by the engine. All nodes
// keep their source Location for error reporting.
//
// # Core Types
//
// Ruleset: tiers, default tier, rules, model-definition criteria, artifacts
//
// Rule: condition tree plus effects (required artifacts, risk flags, criteria text)
//
// Condition: tagged union of Leaf (field operator value), All and Any
//
// Value: literal operand (string, number, boolean, list, null)
//
// TierDefinition, ArtifactDefinition, ModelCriterion: lookup tables
//
// # Building Conditions in Code
//
//	cond := ast.All(
//	    ast.Leaf("usageType", ast.OperatorEq, "Decisioning"),
//	    ast.Any(
//	        ast.Leaf("containsPii", ast.OperatorEq, true),
//	        ast.Leaf("containsNpi", ast.OperatorEq, true),
//	    ),
//	)
//
// # Traversal
//
// Walk and WalkCondition visit nodes depth-first; CollectFields is a small
// Visitor that lists the record fields a tree depends on.
package ast
