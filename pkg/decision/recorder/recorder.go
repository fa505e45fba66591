package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/usecase"
)

// Config contains configuration for the decision recorder.
type Config struct {
	// Enabled enables decision recording. A disabled recorder still builds
	// records but never stores them.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write and how long RecordAsync waits
	// on a full buffer.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// StoreInput keeps the evaluated use-case record on the decision.
	// Default: true
	StoreInput bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
		StoreInput:   true,
	}
}

// StoreObserver is notified after every storage write.
type StoreObserver interface {
	ObserveStore(operation string, err error, duration time.Duration)
}

// Recorder turns evaluations into decision records and writes them to a
// storage backend, either inline or through a buffered background worker.
type Recorder struct {
	storage    decision.Storage
	config     *Config
	recordChan chan *decision.Record
	done       chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	observers  []StoreObserver
	now        func() time.Time
	logger     *slog.Logger
}

// NewRecorder creates a recorder writing to storage and starts its worker.
func NewRecorder(storage decision.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *decision.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		now:        time.Now,
		logger:     slog.Default().With("component", "decision.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("decision recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// WithObserver registers an observer for storage writes. It must be called
// before the recorder is used.
func (r *Recorder) WithObserver(o StoreObserver) *Recorder {
	r.observers = append(r.observers, o)
	return r
}

// Build creates a decision record for an evaluation without storing it.
func (r *Recorder) Build(ev *engine.Evaluation, useCaseID string, input *usecase.Record) (*decision.Record, error) {
	if ev == nil || ev.Result == nil {
		return nil, decision.NewRecorderError("", errors.New("evaluation has no result"))
	}

	result := ev.Result
	record := &decision.Record{
		ID:                uuid.New().String(),
		UseCaseID:         useCaseID,
		EvaluatedAt:       ev.EvaluatedAt.UTC(),
		RecordedAt:        r.now().UTC(),
		RulesetName:       ev.RulesetName,
		RulesetVersion:    ev.RulesetVersion,
		RulesetHash:       ev.RulesetHash,
		Tier:              result.Tier,
		IsModel:           result.IsModel,
		TriggeredRuleIDs:  result.TriggeredRuleIDs(),
		RequiredArtifacts: cloneStrings(result.RequiredArtifacts),
		MissingEvidence:   cloneStrings(result.MissingEvidence),
		RiskFlags:         cloneStrings(result.RiskFlags),
		Result:            result,
	}

	if input != nil {
		record.Title = input.Title
		inputHash, err := HashJSON(input)
		if err != nil {
			return nil, decision.NewRecorderError(record.ID, err)
		}
		record.InputHash = inputHash
		if r.config.StoreInput {
			record.Input = input
		}
	}

	resultHash, err := HashJSON(result)
	if err != nil {
		return nil, decision.NewRecorderError(record.ID, err)
	}
	record.ResultHash = resultHash

	return record, nil
}

// Record builds a decision record and stores it before returning.
func (r *Recorder) Record(ctx context.Context, ev *engine.Evaluation, useCaseID string, input *usecase.Record) (*decision.Record, error) {
	record, err := r.Build(ev, useCaseID, input)
	if err != nil {
		return nil, err
	}
	if !r.config.Enabled {
		return record, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()

	if err := r.store(ctx, record); err != nil {
		return nil, decision.NewRecorderError(record.ID, err)
	}
	return record, nil
}

// RecordAsync builds a decision record and enqueues it for the background
// worker. The returned record carries the ID it will be stored under.
func (r *Recorder) RecordAsync(ctx context.Context, ev *engine.Evaluation, useCaseID string, input *usecase.Record) (*decision.Record, error) {
	record, err := r.Build(ev, useCaseID, input)
	if err != nil {
		return nil, err
	}
	if !r.config.Enabled {
		return record, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, decision.NewRecorderError(record.ID, context.Canceled)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.logger.Debug("decision record enqueued",
			"record_id", record.ID,
			"use_case_id", record.UseCaseID,
		)
		return record, nil
	case <-timer.C:
		r.logger.Error("decision channel full, dropping record",
			"record_id", record.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return nil, decision.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, decision.NewRecorderError(record.ID, ctx.Err())
	}
}

// Pending returns the number of records waiting for the worker.
func (r *Recorder) Pending() int {
	return len(r.recordChan)
}

// Close stops accepting async records, drains the buffer and waits for the
// worker to exit. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.logger.Info("shutting down decision recorder")
	r.wg.Wait()
	r.logger.Info("decision recorder shut down complete")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining decision channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *decision.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store(ctx, record); err != nil {
		r.logger.Error("failed to store decision record",
			"record_id", record.ID,
			"use_case_id", record.UseCaseID,
			"error", err,
		)
	}
}

func (r *Recorder) store(ctx context.Context, record *decision.Record) error {
	start := time.Now()
	err := r.storage.Store(ctx, record)
	duration := time.Since(start)

	for _, o := range r.observers {
		o.ObserveStore("store", err, duration)
	}
	if err != nil {
		return err
	}

	r.logger.Info("decision recorded",
		"record_id", record.ID,
		"use_case_id", record.UseCaseID,
		"tier", record.Tier,
		"is_model", record.IsModel,
		"missing_evidence", len(record.MissingEvidence),
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow decision write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
	return nil
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
