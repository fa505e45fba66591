package decision

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// DefaultLimit is the number of records returned when Limit is 0.
	DefaultLimit = 100

	// MaxLimit caps the number of records returned by a single query.
	MaxLimit = 10000
)

// SortFields maps accepted sort keys to storage column names.
var SortFields = map[string]string{
	"evaluated_at": "evaluated_at",
	"recorded_at":  "recorded_at",
	"tier":         "tier",
}

// Validate reports the first invalid parameter of q.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if _, ok := SortFields[q.SortBy]; q.SortBy != "" && !ok {
		return NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && q.SortOrder != "asc" && q.SortOrder != "desc" {
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, errors.New("startTime must be before endTime"))
	}
	if q.IsModel != "" && !q.IsModel.IsValid() {
		return NewQueryError(q, fmt.Errorf("invalid isModel: %s (must be 'Yes', 'No' or 'Model-like')", q.IsModel))
	}
	return nil
}

// ApplyDefaults fills in the default limit and sort.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "evaluated_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// Matches reports whether r satisfies the filters of q. Pagination and
// sorting are ignored. In-memory backends use it directly; it also defines
// the semantics SQL backends must reproduce.
func (q *Query) Matches(r *Record) bool {
	if q.StartTime != nil && r.EvaluatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.EvaluatedAt.After(*q.EndTime) {
		return false
	}
	if len(q.IDs) > 0 && !containsString(q.IDs, r.ID) {
		return false
	}
	if q.UseCaseID != "" && r.UseCaseID != q.UseCaseID {
		return false
	}
	if q.Tier != "" && r.Tier != q.Tier {
		return false
	}
	if q.IsModel != "" && r.IsModel != q.IsModel {
		return false
	}
	if q.RulesetHash != "" && r.RulesetHash != q.RulesetHash {
		return false
	}
	if q.RuleID != "" && !containsString(r.TriggeredRuleIDs, q.RuleID) {
		return false
	}
	if q.HasMissingEvidence != nil && (len(r.MissingEvidence) > 0) != *q.HasMissingEvidence {
		return false
	}
	return true
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

// SortRecords orders records in place by the given sort key and order. Ties
// are broken by ID in the same direction, matching the SQL backends.
func SortRecords(records []*Record, sortBy, sortOrder string) {
	desc := sortOrder != "asc"
	less := func(a, b *Record) int {
		switch sortBy {
		case "recorded_at":
			return a.RecordedAt.Compare(b.RecordedAt)
		case "tier":
			return strings.Compare(a.Tier, b.Tier)
		default:
			return a.EvaluatedAt.Compare(b.EvaluatedAt)
		}
	}
	slices.SortStableFunc(records, func(a, b *Record) int {
		c := less(a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			c = -c
		}
		return c
	})
}
