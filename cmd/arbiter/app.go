package main

import (
	"context"
	"fmt"
	"log/slog"

	"keystone-mrm/arbiter/pkg/config"
	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/recorder"
	"keystone-mrm/arbiter/pkg/decision/retention"
	"keystone-mrm/arbiter/pkg/decision/storage"
	"keystone-mrm/arbiter/pkg/rules/parser"
	"keystone-mrm/arbiter/pkg/rules/source"
	"keystone-mrm/arbiter/pkg/rules/validator"
)

// openStorage opens the configured decision store.
func openStorage(cfg *config.DecisionsConfig) (decision.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open decision store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported decision backend: %s", cfg.Backend)
	}
}

// newRulesetSource builds the file source for the configured rules path.
func newRulesetSource(cfg *config.RulesConfig, logger *slog.Logger) *source.FileSource {
	p := parser.NewParser()
	if cfg.MaxFileSize > 0 {
		p.WithMaxFileSize(cfg.MaxFileSize)
	}
	if cfg.MaxConditionDepth > 0 {
		p.WithMaxDepth(cfg.MaxConditionDepth)
	}
	return source.NewFileSource(cfg.Path, logger).
		WithParser(p).
		WithValidator(validator.NewValidator().WithStrictMode(cfg.Strict))
}

// loadRulesetCache loads the configured ruleset into a cache. The first load
// must succeed.
func loadRulesetCache(ctx context.Context, cfg *config.RulesConfig, logger *slog.Logger) (*source.Cache, error) {
	cache := source.NewCache(newRulesetSource(cfg, logger), logger)
	if err := cache.Load(ctx); err != nil {
		return nil, err
	}
	return cache, nil
}

func newRecorder(store decision.Storage, cfg *config.RecorderConfig) *recorder.Recorder {
	return recorder.NewRecorder(store, &recorder.Config{
		Enabled:      true,
		AsyncBuffer:  cfg.AsyncBuffer,
		WriteTimeout: cfg.WriteTimeout,
		StoreInput:   cfg.StoreInput,
	})
}

func retentionConfig(cfg *config.RetentionConfig) *retention.Config {
	return &retention.Config{
		RetentionDays:       cfg.Days,
		PruneSchedule:       cfg.PruneSchedule,
		ArchiveBeforeDelete: cfg.ArchiveBeforeDelete,
		ArchivePath:         cfg.ArchivePath,
		MaxRecords:          cfg.MaxRecords,
	}
}
