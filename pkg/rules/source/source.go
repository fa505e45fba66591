package source

import (
	"context"
	"fmt"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

// Source produces a parsed and validated ruleset.
type Source interface {
	// Load returns a fresh ruleset. Implementations must not return a
	// ruleset that fails validation.
	Load(ctx context.Context) (*ast.Ruleset, error)
}

// LoadError indicates a ruleset could not be loaded from a source.
type LoadError struct {
	Path string
	Err  error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load ruleset: %v", e.Err)
	}
	return fmt.Sprintf("load ruleset %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}
