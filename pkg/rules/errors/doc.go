// Package errors provides the error types reported while loading and
// validating rulesets.
//
// Each error names the ruleset entry it concerns (a tier, rule, model
// definition criterion or artifact), its category, its source location,
// the surrounding source lines and, where possible, a hint:
//
//	semantic error in rule "automated-decisioning": unknown field "usageTyp"
//	  at rulesets/rules.yaml:14:18
//	   12 |   - id: automated-decisioning
//	   13 |     conditions:
//	-> 14 |       - field: usageTyp
//	      |                ^
//	   15 |         operator: eq
//	  hint: Did you mean 'usageType'?
//
// ErrorList accumulates errors across parser and validator passes so every
// problem in a ruleset is reported in a single run, ordered by position.
package errors
