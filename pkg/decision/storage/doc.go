// Package storage provides decision.Storage backends.
//
// # Backends
//
//   - MemoryStorage: map-backed, for tests, the CLI and single-shot runs
//   - SQLiteStorage: durable single-node storage
//
// # SQLite Drivers
//
// SQLiteStorage works with either registered driver. DriverCGO
// (github.com/mattn/go-sqlite3) is the default; DriverPureGo
// (modernc.org/sqlite) serves CGO_ENABLED=0 builds. Pragmas are encoded in
// each driver's DSN syntax so every pooled connection receives them.
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/decisions.db",
//	    Driver:      storage.DriverPureGo,
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Schema
//
// Timestamps are INTEGER Unix nanoseconds. Decision lists are JSON arrays;
// the triggered-rule filter uses json_each, and missing_count backs the
// hasMissingEvidence filter without parsing JSON.
package storage
