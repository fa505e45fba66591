package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

type staticProvider struct {
	rs *ast.Ruleset
}

func (p *staticProvider) Current() *ast.Ruleset { return p.rs }

type recordingObserver struct {
	mu    sync.Mutex
	tiers []string
}

func (o *recordingObserver) ObserveEvaluation(ev *Evaluation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tiers = append(o.tiers, ev.Result.Tier)
}

func TestEngine_Evaluate(t *testing.T) {
	obs := &recordingObserver{}
	eng := NewEngine(&staticProvider{rs: testRuleset()}, nil).WithObserver(obs)

	ev, err := eng.Evaluate(context.Background(), newRecord(usecase.Record{VendorInvolved: true}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if ev.Result.Tier != "T2" {
		t.Errorf("Tier = %q, want T2", ev.Result.Tier)
	}
	if ev.RulesetName != "test" || ev.RulesetVersion != "1.0" || ev.RulesetHash != "sha256:test" {
		t.Errorf("ruleset metadata = %q %q %q", ev.RulesetName, ev.RulesetVersion, ev.RulesetHash)
	}
	if ev.EvaluatedAt.IsZero() {
		t.Error("EvaluatedAt is zero")
	}
	if len(obs.tiers) != 1 || obs.tiers[0] != "T2" {
		t.Errorf("observer saw %v, want [T2]", obs.tiers)
	}
}

func TestEngine_Errors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		provider RulesetProvider
		ctx      context.Context
		record   *usecase.Record
		wantErr  error
	}{
		{"no ruleset", &staticProvider{}, context.Background(), newRecord(usecase.Record{}), ErrNoRuleset},
		{"nil provider", nil, context.Background(), newRecord(usecase.Record{}), ErrNoRuleset},
		{"nil record", &staticProvider{rs: testRuleset()}, context.Background(), nil, ErrNilRecord},
		{"cancelled", &staticProvider{rs: testRuleset()}, cancelled, newRecord(usecase.Record{}), context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine(tt.provider, nil)
			if _, err := eng.Evaluate(tt.ctx, tt.record); !errors.Is(err, tt.wantErr) {
				t.Errorf("Evaluate() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := eng.Explain(tt.ctx, tt.record); !errors.Is(err, tt.wantErr) {
				t.Errorf("Explain() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_Explain(t *testing.T) {
	eng := NewEngine(&staticProvider{rs: testRuleset()}, nil)
	exp, err := eng.Explain(context.Background(), newRecord(usecase.Record{AIType: "GenAI", ModelDefinitionTrigger: true}))
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}

	if len(exp.Rules) != 4 {
		t.Fatalf("len(Rules) = %d, want 4", len(exp.Rules))
	}
	matched := map[string]bool{}
	for _, r := range exp.Rules {
		matched[r.ID] = r.Matched
	}
	if !matched["genai"] || matched["third-party"] {
		t.Errorf("rule traces = %+v", exp.Rules)
	}
	if fields := exp.Rules[0].Fields; len(fields) != 3 || fields[0] != "usageType" {
		t.Errorf("Rules[0].Fields = %v", fields)
	}

	wantCriteria := []bool{true, true, false}
	for i, c := range exp.Criteria {
		if c.Matched != wantCriteria[i] {
			t.Errorf("Criteria[%d] (%s) matched = %v, want %v", i, c.ID, c.Matched, wantCriteria[i])
		}
	}
	if exp.Result.IsModel != ast.DeterminationYes {
		t.Errorf("Result.IsModel = %q, want Yes", exp.Result.IsModel)
	}
}

func TestEngine_ConcurrentEvaluate(t *testing.T) {
	obs := &recordingObserver{}
	eng := NewEngine(&staticProvider{rs: testRuleset()}, nil).WithObserver(obs)
	record := newRecord(usecase.Record{UsageType: "Decisioning", CustomerImpact: "Direct", HumanInLoop: "None"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev, err := eng.Evaluate(context.Background(), record)
			if err != nil || ev.Result.Tier != "T3" {
				t.Errorf("Evaluate() = %v, %v", ev, err)
			}
		}()
	}
	wg.Wait()

	if len(obs.tiers) != 20 {
		t.Errorf("observer saw %d evaluations, want 20", len(obs.tiers))
	}
}
