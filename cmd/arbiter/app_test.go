package main

import (
	"context"
	"path/filepath"
	"testing"

	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/decision"
)

func TestOpenStorage(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		driver  string
		wantErr bool
	}{
		{name: "memory", backend: "memory"},
		{name: "sqlite pure go", backend: "sqlite", driver: "sqlite"},
		{name: "unknown", backend: "postgres", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig().Decisions
			cfg.Backend = tt.backend
			if tt.driver != "" {
				cfg.SQLite.Driver = tt.driver
			}
			cfg.SQLite.Path = filepath.Join(t.TempDir(), "decisions.db")

			store, err := openStorage(&cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("openStorage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer store.Close()

			if _, err := store.Count(context.Background(), &decision.Query{}); err != nil {
				t.Errorf("Count() error = %v", err)
			}
		})
	}
}

func TestLoadRulesetCache(t *testing.T) {
	cfg := config.NewDefaultConfig().Rules
	cfg.Path = defaultRuleset

	cache, err := loadRulesetCache(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("loadRulesetCache() error = %v", err)
	}
	if rs := cache.Current(); rs == nil || rs.Name != "default-tiering" {
		t.Errorf("Current() = %+v", rs)
	}

	cfg.Path = filepath.Join(t.TempDir(), "missing")
	if _, err := loadRulesetCache(context.Background(), &cfg, nil); err == nil {
		t.Error("loadRulesetCache() error = nil for a missing path")
	}
}

func TestLoadRulesetCache_ParserLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.RulesConfig)
	}{
		{"file size", func(cfg *config.RulesConfig) { cfg.MaxFileSize = 64 }},
		{"condition depth", func(cfg *config.RulesConfig) { cfg.MaxConditionDepth = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig().Rules
			cfg.Path = defaultRuleset
			tt.mutate(&cfg)

			if _, err := loadRulesetCache(context.Background(), &cfg, nil); err == nil {
				t.Error("loadRulesetCache() error = nil, want limit error")
			}
		})
	}
}

func TestRetentionConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().Retention
	cfg.MaxRecords = 500
	got := retentionConfig(&cfg)
	if got.RetentionDays != cfg.Days || got.MaxRecords != 500 || got.PruneSchedule != cfg.PruneSchedule {
		t.Errorf("retentionConfig() = %+v", got)
	}
}
