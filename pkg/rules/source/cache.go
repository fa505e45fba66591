package source

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keystone-mrm/arbiter/pkg/rules/ast"
)

// ReloadObserver is notified of every load attempt, successful or not.
type ReloadObserver interface {
	ObserveReload(rs *ast.Ruleset, err error, duration time.Duration)
}

// Status summarizes the cache state for health checks and the ruleset API.
type Status struct {
	Loaded     bool      `json:"loaded"`
	Name       string    `json:"name,omitempty"`
	Version    string    `json:"version,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	Rules      int       `json:"rules"`
	LoadedAt   time.Time `json:"loadedAt,omitzero"`
	Reloads    int64     `json:"reloads"`
	Failures   int64     `json:"failures"`
	LastError  string    `json:"lastError,omitempty"`
	LastFailed time.Time `json:"lastFailedAt,omitzero"`
}

// Cache holds the current ruleset snapshot. Readers never block: Current is
// a single atomic load, and a published snapshot is never mutated. Reloads
// are serialized, and a failed reload keeps serving the previous snapshot.
type Cache struct {
	source  Source
	logger  *slog.Logger
	current atomic.Pointer[ast.Ruleset]

	reloadMu  sync.Mutex
	mu        sync.RWMutex
	loadedAt  time.Time
	lastErr   error
	lastFail  time.Time
	reloads   int64
	failures  int64
	callbacks []func(*ast.Ruleset)
	observers []ReloadObserver
}

// NewCache creates an empty cache backed by source. Call Load before use.
func NewCache(source Source, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		logger: logger.With("component", "rules.cache"),
	}
}

// WithObserver registers an observer for load attempts.
func (c *Cache) WithObserver(o ReloadObserver) *Cache {
	if o != nil {
		c.observers = append(c.observers, o)
	}
	return c
}

// OnReload registers a callback run after every successful load with the
// new snapshot. Callbacks run synchronously on the reloading goroutine.
func (c *Cache) OnReload(fn func(*ast.Ruleset)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// Load performs the initial load. It is equivalent to Reload.
func (c *Cache) Load(ctx context.Context) error {
	return c.Reload(ctx)
}

// Reload loads a fresh ruleset from the source and publishes it. On error the
// previously published snapshot stays current.
func (c *Cache) Reload(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	start := time.Now()
	rs, err := c.source.Load(ctx)
	duration := time.Since(start)

	for _, o := range c.observers {
		o.ObserveReload(rs, err, duration)
	}

	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.lastFail = time.Now()
		c.failures++
		c.mu.Unlock()

		if prev := c.current.Load(); prev != nil {
			c.logger.Error("ruleset reload failed, keeping previous ruleset",
				"error", err,
				"current_hash", prev.Hash,
			)
		} else {
			c.logger.Error("ruleset load failed", "error", err)
		}
		return err
	}

	prev := c.current.Swap(rs)

	c.mu.Lock()
	c.loadedAt = time.Now()
	c.lastErr = nil
	c.reloads++
	callbacks := append([]func(*ast.Ruleset){}, c.callbacks...)
	c.mu.Unlock()

	if prev == nil || prev.Hash != rs.Hash {
		c.logger.Info("ruleset published",
			"ruleset", rs.Name,
			"version", rs.Version,
			"hash", rs.Hash,
			"rules", len(rs.Rules),
			"duration", duration,
		)
	} else {
		c.logger.Debug("ruleset reloaded without changes", "hash", rs.Hash)
	}

	for _, fn := range callbacks {
		fn(rs)
	}
	return nil
}

// Current returns the published ruleset, or nil before the first successful
// load. It implements engine.RulesetProvider.
func (c *Cache) Current() *ast.Ruleset {
	return c.current.Load()
}

// Status reports the cache state.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		LoadedAt:   c.loadedAt,
		Reloads:    c.reloads,
		Failures:   c.failures,
		LastFailed: c.lastFail,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if rs := c.current.Load(); rs != nil {
		st.Loaded = true
		st.Name = rs.Name
		st.Version = rs.Version
		st.Hash = rs.Hash
		st.Rules = len(rs.Rules)
	}
	return st
}
