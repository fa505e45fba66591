// Package validator checks a parsed ruleset before it is handed to the engine.
//
// The engine never fails at evaluation time: a leaf it cannot interpret just
// evaluates to false. That makes configuration mistakes silent, so they are
// caught here instead, once, at load time.
//
// # Structural Pass
//
// Required pieces are present: default tier, at least one tier, tier names,
// rule/criterion/artifact ids, rule tiers, conditions, leaf field and
// operator, artifact name and category, valid criterion results.
//
// # Semantic Pass
//
// References resolve and ids are unique: default tier and rule tiers are
// defined, artifacts named by rules exist, requiredForTiers are defined,
// severities are distinct. Every leaf names a field of usecase.Record, uses a
// known operator, and carries a value whose type can match the field.
//
// # Usage
//
//	rs, err := parser.NewParser().Parse("rulesets/default.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := validator.NewValidator().Validate(rs); err != nil {
//	    return err // *errors.ErrorList with locations and suggestions
//	}
package validator
