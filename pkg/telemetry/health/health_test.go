package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"keystone-mrm/arbiter/pkg/decision/storage"
	"keystone-mrm/arbiter/pkg/rules/ast"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default timeout", 0, DefaultCheckTimeout},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).checkTimeout; got != tt.want {
				t.Errorf("checkTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegisterAndListChecks(t *testing.T) {
	checker := New(time.Second)
	ok := func(context.Context) error { return nil }

	checker.RegisterCheck("storage", ok)
	checker.RegisterCheck("ruleset", ok)
	checker.RegisterCheck("backlog", ok)
	checker.UnregisterCheck("backlog")

	if got, want := checker.ListChecks(), []string{"ruleset", "storage"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListChecks() = %v, want %v", got, want)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return errors.New("down") },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"b"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(20 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(status.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if status.Checks[name].Status != StatusUnhealthy {
					t.Errorf("Checks[%q] = %+v, want unhealthy", name, status.Checks[name])
				}
			}
		})
	}
}

type staticProvider struct{ rs *ast.Ruleset }

func (p staticProvider) Current() *ast.Ruleset { return p.rs }

func TestRulesetCheck(t *testing.T) {
	if err := RulesetCheck(staticProvider{})(context.Background()); err == nil {
		t.Error("RulesetCheck() with no ruleset = nil, want error")
	}
	if err := RulesetCheck(staticProvider{rs: &ast.Ruleset{}})(context.Background()); err != nil {
		t.Errorf("RulesetCheck() = %v, want nil", err)
	}
}

func TestStorageCheck(t *testing.T) {
	store := storage.NewMemoryStorage()
	if err := StorageCheck(store)(context.Background()); err != nil {
		t.Errorf("StorageCheck(memory) = %v, want nil", err)
	}
}

func TestBacklogCheck(t *testing.T) {
	pending := 5
	check := BacklogCheck(func() int { return pending }, 10)
	if err := check(context.Background()); err != nil {
		t.Errorf("BacklogCheck() = %v, want nil under limit", err)
	}
	pending = 11
	if err := check(context.Background()); err == nil {
		t.Error("BacklogCheck() = nil, want error over limit")
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		check    CheckFunc
		wantCode int
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK},
		{"degraded", func(context.Context) error { return errors.New("no ruleset loaded") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			checker.RegisterCheck("ruleset", tt.check)

			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if _, ok := body.Checks["ruleset"]; !ok {
				t.Errorf("body.Checks missing ruleset: %+v", body)
			}
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("broken", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 regardless of readiness", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.0", "abc123", "2026-01-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("VersionInfo = %+v", info)
	}
}
