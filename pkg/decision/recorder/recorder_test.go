package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/storage"
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/usecase"
)

func testEvaluation() *engine.Evaluation {
	return &engine.Evaluation{
		Result: &engine.DecisionResult{
			IsModel: ast.DeterminationYes,
			Tier:    "T3",
			TriggeredRules: []engine.TriggeredRule{
				{ID: "customer_decisioning", Name: "Customer decisioning", Tier: "T3"},
				{ID: "pii", Name: "PII", Tier: "T2"},
			},
			RationaleSummary:  "summary",
			RequiredArtifacts: []string{"model_card", "validation_report"},
			MissingEvidence:   []string{"validation_report"},
			RiskFlags:         []string{"customer-impact"},
		},
		RulesetName:    "default",
		RulesetVersion: "1.0",
		RulesetHash:    "abc123",
		EvaluatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testInput() *usecase.Record {
	r := usecase.New(usecase.Record{Title: "Credit line increase", UsageType: "Decisioning"}, nil)
	return &r
}

type countingObserver struct {
	mu     sync.Mutex
	stores int
	errors int
}

func (o *countingObserver) ObserveStore(operation string, err error, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stores++
	if err != nil {
		o.errors++
	}
}

type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) Store(ctx context.Context, record *decision.Record) error {
	return errors.New("disk full")
}

func TestRecorder_Build(t *testing.T) {
	rec := NewRecorder(storage.NewMemoryStorage(), nil)
	defer rec.Close()

	ev := testEvaluation()
	record, err := rec.Build(ev, "uc-1", testInput())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if record.ID == "" {
		t.Error("Build() did not assign an ID")
	}
	if record.UseCaseID != "uc-1" || record.Title != "Credit line increase" {
		t.Errorf("identity = %q/%q", record.UseCaseID, record.Title)
	}
	if record.Tier != "T3" || record.IsModel != ast.DeterminationYes {
		t.Errorf("decision = %s/%s, want T3/Yes", record.Tier, record.IsModel)
	}
	if len(record.TriggeredRuleIDs) != 2 || record.TriggeredRuleIDs[1] != "pii" {
		t.Errorf("TriggeredRuleIDs = %v", record.TriggeredRuleIDs)
	}
	if record.RulesetHash != "abc123" || record.RulesetVersion != "1.0" {
		t.Errorf("ruleset provenance = %q/%q", record.RulesetHash, record.RulesetVersion)
	}
	if !record.EvaluatedAt.Equal(ev.EvaluatedAt) {
		t.Errorf("EvaluatedAt = %v, want %v", record.EvaluatedAt, ev.EvaluatedAt)
	}
	if len(record.InputHash) != 64 || len(record.ResultHash) != 64 {
		t.Errorf("hashes = %q/%q, want 64 hex chars", record.InputHash, record.ResultHash)
	}
	if record.Input == nil {
		t.Error("Input dropped with StoreInput enabled")
	}

	again, _ := rec.Build(ev, "uc-1", testInput())
	if again.ID == record.ID {
		t.Error("Build() reused an ID")
	}
	if again.ResultHash != record.ResultHash || again.InputHash != record.InputHash {
		t.Error("hashes differ for identical evaluations")
	}
}

func TestRecorder_BuildWithoutStoredInput(t *testing.T) {
	config := DefaultConfig()
	config.StoreInput = false
	rec := NewRecorder(storage.NewMemoryStorage(), config)
	defer rec.Close()

	record, err := rec.Build(testEvaluation(), "uc-1", testInput())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if record.Input != nil {
		t.Error("Input kept with StoreInput disabled")
	}
	if record.InputHash == "" {
		t.Error("InputHash should still be computed")
	}
}

func TestRecorder_BuildRejectsEmptyEvaluation(t *testing.T) {
	rec := NewRecorder(storage.NewMemoryStorage(), nil)
	defer rec.Close()

	for _, ev := range []*engine.Evaluation{nil, {}} {
		_, err := rec.Build(ev, "uc", nil)
		var recErr *decision.RecorderError
		if !errors.As(err, &recErr) {
			t.Errorf("Build(%v) error = %v, want *RecorderError", ev, err)
		}
	}
}

func TestRecorder_RecordSync(t *testing.T) {
	store := storage.NewMemoryStorage()
	obs := &countingObserver{}
	rec := NewRecorder(store, nil).WithObserver(obs)
	defer rec.Close()

	ctx := context.Background()
	record, err := rec.Record(ctx, testEvaluation(), "uc-1", testInput())
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Tier != "T3" {
		t.Errorf("stored Tier = %q, want T3", got.Tier)
	}
	if obs.stores != 1 || obs.errors != 0 {
		t.Errorf("observer saw %d stores, %d errors; want 1, 0", obs.stores, obs.errors)
	}
}

func TestRecorder_RecordSyncStorageError(t *testing.T) {
	obs := &countingObserver{}
	rec := NewRecorder(failingStorage{storage.NewMemoryStorage()}, nil).WithObserver(obs)
	defer rec.Close()

	_, err := rec.Record(context.Background(), testEvaluation(), "uc-1", nil)
	var recErr *decision.RecorderError
	if !errors.As(err, &recErr) {
		t.Fatalf("Record() error = %v, want *RecorderError", err)
	}
	if obs.errors != 1 {
		t.Errorf("observer errors = %d, want 1", obs.errors)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Enabled = false
	rec := NewRecorder(store, config)
	defer rec.Close()

	ctx := context.Background()
	if _, err := rec.Record(ctx, testEvaluation(), "uc-1", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := rec.RecordAsync(ctx, testEvaluation(), "uc-2", nil); err != nil {
		t.Fatalf("RecordAsync() error = %v", err)
	}
	rec.Close()

	if store.Size() != 0 {
		t.Errorf("disabled recorder stored %d records", store.Size())
	}
}

func TestRecorder_AsyncDrainsOnClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.AsyncBuffer = 100
	rec := NewRecorder(store, config)

	ctx := context.Background()
	const n = 50
	for i := 0; i < n; i++ {
		if _, err := rec.RecordAsync(ctx, testEvaluation(), "uc", testInput()); err != nil {
			t.Fatalf("RecordAsync() error = %v", err)
		}
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.Size() != n {
		t.Errorf("stored %d records after Close(), want %d", store.Size(), n)
	}
	if rec.Pending() != 0 {
		t.Errorf("Pending() = %d after Close()", rec.Pending())
	}
}

func TestRecorder_AsyncAfterClose(t *testing.T) {
	rec := NewRecorder(storage.NewMemoryStorage(), nil)
	rec.Close()

	_, err := rec.RecordAsync(context.Background(), testEvaluation(), "uc", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RecordAsync() after Close() error = %v, want context.Canceled", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestRecorder_ConcurrentAsync(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := rec.RecordAsync(context.Background(), testEvaluation(), "uc", nil); err != nil {
					t.Errorf("RecordAsync() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()
	rec.Close()

	if store.Size() != 200 {
		t.Errorf("stored %d records, want 200", store.Size())
	}
}
