package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/rules/engine"
	"keystone-mrm/arbiter/pkg/usecase"
)

const (
	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverPureGo selects modernc.org/sqlite, for builds without cgo.
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is the database/sql driver name: DriverCGO or DriverPureGo.
	// Default: DriverCGO
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging so readers do not block the writer.
	// Default: true
	WALMode bool

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/decisions.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements decision.Storage on SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	getStmt    *sql.Stmt
	logger     *slog.Logger
}

// NewSQLiteStorage opens the database, applies connection pragmas and
// creates the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, decision.NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}

	logger := slog.Default().With("component", "decision.storage.sqlite")

	dsn, err := buildDSN(config)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "open", err)
	}

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)
	return s, nil
}

// buildDSN encodes the pragmas in the driver's DSN syntax so every pooled
// connection gets them, not just the first.
func buildDSN(config *SQLiteConfig) (string, error) {
	busy := config.BusyTimeout.Milliseconds()
	switch config.Driver {
	case DriverCGO:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", config.Path, busy)
		if config.WALMode {
			dsn += "&_journal_mode=WAL"
		}
		return dsn, nil
	case DriverPureGo:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, busy)
		if config.WALMode {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported driver %q (use %q or %q)", config.Driver, DriverCGO, DriverPureGo)
	}
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return decision.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return decision.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return decision.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return decision.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	if s.insertStmt, err = s.db.Prepare(insertDecision); err != nil {
		return decision.NewStorageError("sqlite", "prepare", err)
	}
	if s.getStmt, err = s.db.Prepare(selectDecisionByID); err != nil {
		return decision.NewStorageError("sqlite", "prepare", err)
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a decision record.
func (s *SQLiteStorage) Store(ctx context.Context, record *decision.Record) error {
	var input sql.NullString
	if record.Input != nil {
		data, err := json.Marshal(record.Input)
		if err != nil {
			return decision.NewStorageError("sqlite", "store", err)
		}
		input = sql.NullString{String: string(data), Valid: true}
	}
	result, err := json.Marshal(record.Result)
	if err != nil {
		return decision.NewStorageError("sqlite", "store", err)
	}

	_, err = s.insertStmt.ExecContext(ctx,
		record.ID, record.UseCaseID, record.Title,
		record.EvaluatedAt.UnixNano(), record.RecordedAt.UnixNano(),
		record.RulesetName, record.RulesetVersion, record.RulesetHash,
		record.Tier, string(record.IsModel),
		jsonList(record.TriggeredRuleIDs), jsonList(record.RequiredArtifacts),
		jsonList(record.MissingEvidence), len(record.MissingEvidence), jsonList(record.RiskFlags),
		input, string(result),
		record.InputHash, record.ResultHash,
	)
	if err != nil {
		return decision.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*decision.Record, error) {
	record, err := scanRecord(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, decision.ErrNotFound
	}
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "get", err)
	}
	return record, nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *decision.Query) ([]*decision.Record, error) {
	sqlQuery, args := s.buildSelect(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, decision.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*decision.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, decision.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, decision.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream streams records matching the query filters.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *decision.Query) (<-chan *decision.Record, <-chan error, error) {
	recordsCh := make(chan *decision.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelect(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- decision.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- decision.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- decision.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *decision.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decisions"+where, args...).Scan(&count)
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *decision.Query) (int64, error) {
	where, args := buildWhereClause(query)

	result, err := s.db.ExecContext(ctx, "DELETE FROM decisions"+where, args...)
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, decision.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return decision.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases the prepared statements and the database handle.
func (s *SQLiteStorage) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return decision.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) buildSelect(query *decision.Query) (string, []any) {
	where, args := buildWhereClause(query)

	sortBy := "evaluated_at"
	if col, ok := decision.SortFields[query.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if query.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	limit := decision.DefaultLimit
	if query.Limit > 0 {
		limit = query.Limit
	}

	sqlQuery := fmt.Sprintf("SELECT %s FROM decisions%s ORDER BY %s %s, id %s LIMIT %d",
		decisionColumns, where, sortBy, sortOrder, sortOrder, limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return sqlQuery, args
}

// buildWhereClause mirrors decision.Query.Matches in SQL. The returned
// clause includes the leading " WHERE" when non-empty.
func buildWhereClause(query *decision.Query) (string, []any) {
	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "evaluated_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "evaluated_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if len(query.IDs) > 0 {
		conditions = append(conditions, "id IN (?"+strings.Repeat(", ?", len(query.IDs)-1)+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}
	if query.UseCaseID != "" {
		conditions = append(conditions, "use_case_id = ?")
		args = append(args, query.UseCaseID)
	}
	if query.Tier != "" {
		conditions = append(conditions, "tier = ?")
		args = append(args, query.Tier)
	}
	if query.IsModel != "" {
		conditions = append(conditions, "is_model = ?")
		args = append(args, string(query.IsModel))
	}
	if query.RulesetHash != "" {
		conditions = append(conditions, "ruleset_hash = ?")
		args = append(args, query.RulesetHash)
	}
	if query.RuleID != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM json_each(decisions.triggered_rule_ids) WHERE json_each.value = ?)")
		args = append(args, query.RuleID)
	}
	if query.HasMissingEvidence != nil {
		if *query.HasMissingEvidence {
			conditions = append(conditions, "missing_count > 0")
		} else {
			conditions = append(conditions, "missing_count = 0")
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*decision.Record, error) {
	var (
		record                                decision.Record
		evaluatedAt, recordedAt, missingCount int64
		isModel                               string
		triggered, required, missing, flags   string
		input                                 sql.NullString
		result                                string
	)

	err := row.Scan(
		&record.ID, &record.UseCaseID, &record.Title, &evaluatedAt, &recordedAt,
		&record.RulesetName, &record.RulesetVersion, &record.RulesetHash,
		&record.Tier, &isModel, &triggered, &required, &missing, &missingCount, &flags,
		&input, &result, &record.InputHash, &record.ResultHash,
	)
	if err != nil {
		return nil, err
	}

	record.EvaluatedAt = time.Unix(0, evaluatedAt).UTC()
	record.RecordedAt = time.Unix(0, recordedAt).UTC()
	record.IsModel = ast.Determination(isModel)

	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{triggered, &record.TriggeredRuleIDs},
		{required, &record.RequiredArtifacts},
		{missing, &record.MissingEvidence},
		{flags, &record.RiskFlags},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode list column: %w", err)
		}
		if *f.dst == nil {
			*f.dst = []string{}
		}
	}

	if input.Valid {
		record.Input = &usecase.Record{}
		if err := json.Unmarshal([]byte(input.String), record.Input); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
	}
	record.Result = &engine.DecisionResult{}
	if err := json.Unmarshal([]byte(result), record.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return &record, nil
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}
