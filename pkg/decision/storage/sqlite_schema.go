package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the decision tables. Timestamps are stored as Unix
// nanoseconds so both SQLite drivers round-trip them identically; list
// fields are JSON arrays.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    use_case_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',

    -- Timestamps (unix nanoseconds)
    evaluated_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,

    -- Ruleset provenance
    ruleset_name TEXT NOT NULL DEFAULT '',
    ruleset_version TEXT NOT NULL DEFAULT '',
    ruleset_hash TEXT NOT NULL DEFAULT '',

    -- Decision
    tier TEXT NOT NULL,
    is_model TEXT NOT NULL,
    triggered_rule_ids TEXT NOT NULL,
    required_artifacts TEXT NOT NULL,
    missing_evidence TEXT NOT NULL,
    missing_count INTEGER NOT NULL,
    risk_flags TEXT NOT NULL,

    -- Full payloads
    input TEXT,
    result TEXT NOT NULL,

    -- Integrity
    input_hash TEXT NOT NULL DEFAULT '',
    result_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_evaluated_at ON decisions(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_decisions_use_case_id ON decisions(use_case_id);
CREATE INDEX IF NOT EXISTS idx_decisions_tier ON decisions(tier);
CREATE INDEX IF NOT EXISTS idx_decisions_is_model ON decisions(is_model);
CREATE INDEX IF NOT EXISTS idx_decisions_ruleset_hash ON decisions(ruleset_hash);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const decisionColumns = `id, use_case_id, title, evaluated_at, recorded_at,
    ruleset_name, ruleset_version, ruleset_hash,
    tier, is_model, triggered_rule_ids, required_artifacts, missing_evidence, missing_count, risk_flags,
    input, result, input_hash, result_hash`

const insertDecision = `INSERT INTO decisions (` + decisionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectDecisionByID = `SELECT ` + decisionColumns + ` FROM decisions WHERE id = ?`
