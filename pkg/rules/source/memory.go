package source

import (
	"context"
	"errors"
	"sync"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

// ErrEmptySource indicates a memory source holds no ruleset.
var ErrEmptySource = errors.New("memory source is empty")

// MemorySource serves a ruleset held in memory. It is used by tests and by
// callers that assemble rulesets in code.
type MemorySource struct {
	mu sync.RWMutex
	rs *ast.Ruleset
}

// NewMemorySource creates a source serving rs.
func NewMemorySource(rs *ast.Ruleset) *MemorySource {
	return &MemorySource{rs: rs}
}

// Set replaces the ruleset returned by subsequent loads.
func (s *MemorySource) Set(rs *ast.Ruleset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rs = rs
}

// Load returns the held ruleset.
func (s *MemorySource) Load(ctx context.Context) (*ast.Ruleset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rs == nil {
		return nil, &LoadError{Err: ErrEmptySource}
	}
	return s.rs, nil
}
