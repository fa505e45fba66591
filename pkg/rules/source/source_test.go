package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

const tiersYAML = `
version: "1.0"
name: split
defaultTier: T1
tiers:
  T1: {name: Low, severity: 1}
  T2: {name: High, severity: 2}
`

const rulesYAML = `
rules:
  - id: vendor
    name: Vendor
    tier: T2
    conditions: {field: vendorInvolved, operator: eq, value: true}
    effects:
      addRequiredArtifacts: [VendorDueDiligence]
`

const artifactsYAML = `
artifacts:
  - id: VendorDueDiligence
    name: Vendor due diligence
    category: Third party
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "10-tiers.yaml"), tiersYAML)
	writeFile(t, filepath.Join(dir, "20-rules.yml"), rulesYAML)
	writeFile(t, filepath.Join(dir, "nested", "30-artifacts.yaml"), artifactsYAML)
	writeFile(t, filepath.Join(dir, "README.md"), "not yaml")
	writeFile(t, filepath.Join(dir, ".hidden", "broken.yaml"), "rules: [")
	writeFile(t, filepath.Join(dir, ".swap.yaml"), "rules: [")

	src := NewFileSource(dir, nil)
	files, err := src.Files()
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	if len(files) != 3 {
		t.Errorf("Files() = %v, want 3 files", files)
	}

	rs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rs.Name != "split" || len(rs.Rules) != 1 || len(rs.Artifacts) != 1 {
		t.Errorf("ruleset = %+v", rs)
	}
	if !strings.HasPrefix(rs.Hash, "sha256:") {
		t.Errorf("Hash = %q", rs.Hash)
	}
}

func TestFileSource_LoadSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	writeFile(t, path, tiersYAML+rulesYAML+artifactsYAML)

	rs, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := rs.Rule("vendor"); !ok {
		t.Error("rule vendor not loaded")
	}
}

func TestFileSource_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(dir string) string
		wantErr func(error) bool
	}{
		{
			name:    "missing path",
			setup:   func(dir string) string { return filepath.Join(dir, "nope") },
			wantErr: func(err error) bool { return errors.Is(err, os.ErrNotExist) },
		},
		{
			name:    "empty directory",
			setup:   func(dir string) string { return dir },
			wantErr: func(err error) bool { return errors.Is(err, ErrNoRulesetFiles) },
		},
		{
			name: "validation failure",
			setup: func(dir string) string {
				writeFile(t, filepath.Join(dir, "r.yaml"), tiersYAML+rulesYAML)
				return dir
			},
			wantErr: func(err error) bool {
				var el *rulesErrors.ErrorList
				return errors.As(err, &el) && el.HasErrorType(rulesErrors.ErrorTypeSemantic)
			},
		},
		{
			name: "syntax failure",
			setup: func(dir string) string {
				writeFile(t, filepath.Join(dir, "r.yaml"), "rules: [")
				return dir
			},
			wantErr: func(err error) bool {
				var e *rulesErrors.Error
				return errors.As(err, &e) && e.Type == rulesErrors.ErrorTypeSyntax
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t.TempDir())
			_, err := NewFileSource(path, nil).Load(context.Background())
			if err == nil {
				t.Fatal("Load() expected error")
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) || loadErr.Path != path {
				t.Errorf("error = %v, want *LoadError for %s", err, path)
			}
			if !tt.wantErr(err) {
				t.Errorf("error = %v does not match expectation", err)
			}
		})
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(nil)
	if _, err := src.Load(context.Background()); !errors.Is(err, ErrEmptySource) {
		t.Errorf("Load() error = %v, want ErrEmptySource", err)
	}

	rs := &ast.Ruleset{Name: "mem"}
	src.Set(rs)
	got, err := src.Load(context.Background())
	if err != nil || got != rs {
		t.Errorf("Load() = %v, %v", got, err)
	}
}

type recordingReloads struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (r *recordingReloads) ObserveReload(_ *ast.Ruleset, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func TestCache_ReloadKeepsPreviousOnFailure(t *testing.T) {
	first := &ast.Ruleset{Name: "first", Hash: "sha256:1"}
	src := NewMemorySource(first)
	obs := &recordingReloads{}
	cache := NewCache(src, nil).WithObserver(obs)

	if cache.Current() != nil {
		t.Fatal("Current() before Load should be nil")
	}
	if st := cache.Status(); st.Loaded {
		t.Errorf("Status().Loaded = true before Load")
	}

	var published []string
	cache.OnReload(func(rs *ast.Ruleset) { published = append(published, rs.Name) })

	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cache.Current() != first {
		t.Fatalf("Current() = %v, want first", cache.Current())
	}

	src.Set(nil)
	if err := cache.Reload(context.Background()); err == nil {
		t.Fatal("Reload() expected error")
	}
	if cache.Current() != first {
		t.Errorf("Current() after failed reload = %v, want first", cache.Current())
	}
	st := cache.Status()
	if !st.Loaded || st.Failures != 1 || st.LastError == "" || st.Hash != "sha256:1" {
		t.Errorf("Status() = %+v", st)
	}

	second := &ast.Ruleset{Name: "second", Hash: "sha256:2"}
	src.Set(second)
	if err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if cache.Current() != second {
		t.Errorf("Current() = %v, want second", cache.Current())
	}
	if st := cache.Status(); st.LastError != "" || st.Reloads != 2 {
		t.Errorf("Status() after recovery = %+v", st)
	}

	if strings.Join(published, ",") != "first,second" {
		t.Errorf("OnReload saw %v, want [first second]", published)
	}
	if obs.ok != 2 || obs.failed != 1 {
		t.Errorf("observer ok=%d failed=%d, want 2 and 1", obs.ok, obs.failed)
	}
}

func TestCache_ConcurrentReadsDuringReload(t *testing.T) {
	src := NewMemorySource(&ast.Ruleset{Name: "a"})
	cache := NewCache(src, nil)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if cache.Current() == nil {
					t.Error("Current() returned nil during reload")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		src.Set(&ast.Ruleset{Name: "b"})
		_ = cache.Reload(context.Background())
	}
	cancel()
	wg.Wait()
}
