package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/decision/export"
)

// pruneBatchSize bounds how many records one batched delete touches.
const pruneBatchSize = 500

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain decisions.
	// 0 keeps decisions forever.
	RetentionDays int

	// PruneSchedule is a standard 5-field cron expression.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete writes pruned decisions to a JSON file first.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory archives are written to.
	ArchivePath string

	// MaxRecords caps the number of stored decisions. 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives/",
	}
}

// PruneObserver is notified after every Prune call.
type PruneObserver interface {
	ObservePrune(deleted int64, err error)
}

// Pruner enforces retention on stored decisions.
type Pruner struct {
	storage   decision.Storage
	config    *Config
	now       func() time.Time
	logger    *slog.Logger
	scheduler *Scheduler
	observers []PruneObserver
}

// NewPruner creates a new retention pruner.
func NewPruner(storage decision.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		now:     time.Now,
		logger:  slog.Default().With("component", "decision.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// WithObserver registers an observer notified after every prune.
func (p *Pruner) WithObserver(o PruneObserver) *Pruner {
	if o != nil {
		p.observers = append(p.observers, o)
	}
	return p
}

// Prune deletes decisions evaluated before the retention window, then the
// oldest decisions beyond MaxRecords. It returns the total deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	deleted, err := p.prune(ctx)
	for _, o := range p.observers {
		o.ObservePrune(deleted, err)
	}
	return deleted, err
}

func (p *Pruner) prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned decisions by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned decisions by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no decisions pruned")
	}
	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	// EndTime is inclusive; step back one nanosecond so a decision exactly
	// RetentionDays old is kept.
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays).Add(-time.Nanosecond)

	if !p.config.ArchiveBeforeDelete {
		deleted, err := p.storage.Delete(ctx, &decision.Query{EndTime: &cutoff})
		if err != nil {
			return 0, decision.NewRetentionError(p.config.RetentionDays, err)
		}
		return deleted, nil
	}

	// Archived pruning goes batch by batch so every deleted decision has
	// been written to an archive first.
	var deleted int64
	for batch := 0; ; batch++ {
		expired, err := p.storage.Query(ctx, &decision.Query{
			EndTime:   &cutoff,
			Limit:     pruneBatchSize,
			SortBy:    "evaluated_at",
			SortOrder: "asc",
		})
		if err != nil {
			return deleted, decision.NewRetentionError(p.config.RetentionDays, err)
		}
		if len(expired) == 0 {
			return deleted, nil
		}

		n, err := p.archiveAndDelete(ctx, "age", batch, expired)
		if err != nil {
			return deleted, decision.NewRetentionError(p.config.RetentionDays, err)
		}
		deleted += n
		if n == 0 {
			return deleted, nil
		}
	}
}

// pruneByCount deletes exactly the oldest decisions over the cap, by ID,
// so decisions sharing a timestamp with the cutoff survive.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &decision.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("decision count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	var deleted int64
	for batch := 0; deleted < toDelete; batch++ {
		oldest, err := p.storage.Query(ctx, &decision.Query{
			Limit:     int(min(toDelete-deleted, pruneBatchSize)),
			SortBy:    "evaluated_at",
			SortOrder: "asc",
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to query decisions: %w", err)
		}
		if len(oldest) == 0 {
			break
		}

		n, err := p.archiveAndDelete(ctx, "count", batch, oldest)
		if err != nil {
			return deleted, err
		}
		deleted += n
		if n == 0 {
			break
		}
	}
	return deleted, nil
}

// archiveAndDelete archives records when configured, then deletes them by ID.
// Nothing is deleted if the archive cannot be written.
func (p *Pruner) archiveAndDelete(ctx context.Context, reason string, batch int, records []*decision.Record) (int64, error) {
	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, reason, batch, records); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	n, err := p.storage.Delete(ctx, &decision.Query{IDs: ids})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return n, nil
}

// archive writes records to a timestamped JSON file under ArchivePath. The
// file is synced and closed before archive returns.
func (p *Pruner) archive(ctx context.Context, reason string, batch int, records []*decision.Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	first := records[0].ID
	name := fmt.Sprintf("decisions-%s-%s-%04d-%s.json", reason, p.now().UTC().Format("20060102-150405"), batch, first[:min(8, len(first))])
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	f, err := os.OpenFile(archiveFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive file: %w", cerr)
		}
	}()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export decisions to archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive file: %w", err)
	}

	p.logger.Info("decisions archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start starts the pruning schedule.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning schedule and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled pruning time, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
