package decision

import (
	"context"
	"io"
	"time"

	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/usecase"
)

// Record is a persisted decision: the DecisionResult for one use case plus
// the provenance needed to trace it back to its input and ruleset.
type Record struct {
	// Identity
	ID        string `json:"id"`        // UUID v4
	UseCaseID string `json:"useCaseId"` // Caller-supplied use case identifier
	Title     string `json:"title,omitempty"`

	// Timestamps
	EvaluatedAt time.Time `json:"evaluatedAt"` // When the engine ran
	RecordedAt  time.Time `json:"recordedAt"`  // When the record was built

	// Ruleset provenance
	RulesetName    string `json:"rulesetName,omitempty"`
	RulesetVersion string `json:"rulesetVersion,omitempty"`
	RulesetHash    string `json:"rulesetHash,omitempty"`

	// Denormalized decision fields for filtering and export
	Tier              string            `json:"tier"`
	IsModel           ast.Determination `json:"isModel"`
	TriggeredRuleIDs  []string          `json:"triggeredRuleIds"`
	RequiredArtifacts []string          `json:"requiredArtifacts"`
	MissingEvidence   []string          `json:"missingEvidence"`
	RiskFlags         []string          `json:"riskFlags"`

	// Full input and output
	Input  *usecase.Record        `json:"input,omitempty"`
	Result *engine.DecisionResult `json:"result"`

	// Integrity
	InputHash  string `json:"inputHash"`  // SHA-256 of the canonical input JSON
	ResultHash string `json:"resultHash"` // SHA-256 of the canonical result JSON
}

// Query defines filter parameters for querying decision records.
type Query struct {
	// Time range over EvaluatedAt
	StartTime *time.Time `json:"startTime,omitempty"` // Inclusive
	EndTime   *time.Time `json:"endTime,omitempty"`   // Inclusive

	// Filters
	IDs         []string          `json:"ids,omitempty"` // Any of these record IDs
	UseCaseID   string            `json:"useCaseId,omitempty"`
	Tier        string            `json:"tier,omitempty"`
	IsModel     ast.Determination `json:"isModel,omitempty"`
	RuleID      string            `json:"ruleId,omitempty"` // Triggered rule
	RulesetHash string            `json:"rulesetHash,omitempty"`

	// HasMissingEvidence filters on whether any required artifact is missing.
	HasMissingEvidence *bool `json:"hasMissingEvidence,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sortBy,omitempty"`    // "evaluated_at", "recorded_at", "tier"
	SortOrder string `json:"sortOrder,omitempty"` // "asc", "desc"
}

// Storage defines the interface for decision storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a decision record. Storing an existing ID fails.
	Store(ctx context.Context, record *Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query retrieves records matching the query filters. It returns an
	// empty slice if nothing matches.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream delivers matching records on a channel for large exports.
	// Both channels are closed when the query completes; errCh carries at
	// most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how
	// many were deleted. Pagination fields are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes decision records in some format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
