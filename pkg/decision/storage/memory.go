package storage

import (
	"context"
	"fmt"
	"sync"

	"keystone-mrm/arbiter/pkg/decision"
)

// MemoryStorage keeps decision records in a map. Records are lost on
// restart; it backs tests, the CLI and single-shot deployments.
type MemoryStorage struct {
	records map[string]*decision.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*decision.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *decision.Record) error {
	if err := ctx.Err(); err != nil {
		return decision.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return decision.NewStorageError("memory", "store", fmt.Errorf("duplicate id %q", record.ID))
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, decision.ErrNotFound
	}
	return cloneRecord(record), nil
}

// Query retrieves records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *decision.Query) ([]*decision.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, decision.NewStorageError("memory", "query", err)
	}
	return s.selectRecords(query), nil
}

// QueryStream streams records matching the query filters.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *decision.Query) (<-chan *decision.Record, <-chan error, error) {
	recordsCh := make(chan *decision.Record, 100)
	errCh := make(chan error, 1)

	records := s.selectRecords(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *decision.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *decision.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, decision.NewStorageError("memory", "delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if query.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*decision.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// selectRecords filters, sorts and pages a snapshot of the stored records.
func (s *MemoryStorage) selectRecords(query *decision.Query) []*decision.Record {
	s.mu.RLock()
	results := make([]*decision.Record, 0)
	for _, record := range s.records {
		if query.Matches(record) {
			results = append(results, cloneRecord(record))
		}
	}
	s.mu.RUnlock()

	decision.SortRecords(results, query.SortBy, query.SortOrder)

	limit := query.Limit
	if limit == 0 {
		limit = decision.DefaultLimit
	}
	if query.Offset >= len(results) {
		return []*decision.Record{}
	}
	results = results[query.Offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// cloneRecord copies the record and its slices. Input and Result are shared;
// they are treated as immutable once recorded.
func cloneRecord(r *decision.Record) *decision.Record {
	c := *r
	c.TriggeredRuleIDs = cloneStrings(r.TriggeredRuleIDs)
	c.RequiredArtifacts = cloneStrings(r.RequiredArtifacts)
	c.MissingEvidence = cloneStrings(r.MissingEvidence)
	c.RiskFlags = cloneStrings(r.RiskFlags)
	return &c
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
