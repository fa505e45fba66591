package engine

import "errors"

var (
	// ErrNoRuleset indicates the provider has no ruleset loaded.
	ErrNoRuleset = errors.New("no ruleset loaded")

	// ErrNilRecord indicates Evaluate was called without a record.
	ErrNilRecord = errors.New("record cannot be nil")
)
