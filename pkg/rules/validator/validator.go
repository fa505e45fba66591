package validator

import (
	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

// Validator runs the structural and semantic passes over a parsed ruleset.
// A ruleset that passes can be evaluated without any lookup failing.
type Validator struct {
	structural *StructuralValidator
	semantic   *SemanticValidator
}

// NewValidator creates a validator with both passes.
func NewValidator() *Validator {
	return &Validator{
		structural: NewStructuralValidator(),
		semantic:   NewSemanticValidator(),
	}
}

// WithStrictMode makes stylistic problems (empty combinators, values on
// notEmpty leaves) errors instead of being accepted.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.structural.strict = strict
	v.semantic.strict = strict
	return v
}

// Validate runs all passes and returns every error found. The semantic pass
// only runs when the structural pass is clean, to avoid cascading errors.
func (v *Validator) Validate(rs *ast.Ruleset) error {
	errors := rulesErrors.NewErrorList()

	errors.Merge(v.structural.Validate(rs), rulesErrors.ErrorTypeStructural)

	if !errors.HasErrorType(rulesErrors.ErrorTypeStructural) {
		errors.Merge(v.semantic.Validate(rs), rulesErrors.ErrorTypeSemantic)
	}

	if errors.HasErrors() {
		errors.Sort()
		rulesErrors.AddContext(errors, nil)
	}
	return errors.ToError()
}

// ValidateStructural runs only the structural pass.
func (v *Validator) ValidateStructural(rs *ast.Ruleset) error {
	return v.structural.Validate(rs)
}

// ValidateSemantic runs only the semantic pass.
func (v *Validator) ValidateSemantic(rs *ast.Ruleset) error {
	return v.semantic.Validate(rs)
}
