// Package decision persists evaluated decisions so they can be queried,
// exported and pruned later.
//
// The rules engine itself owns no storage. A Record couples a DecisionResult
// with its input snapshot, ruleset hash and content hashes, which lets a
// reviewer confirm which ruleset produced a tier long after the ruleset has
// changed.
//
// # Subpackages
//
//   - storage: in-memory and SQLite Storage backends
//   - recorder: builds Records from evaluations, synchronously or through an
//     async buffered worker
//   - export: JSON, CSV and per-decision artifact checklists
//   - retention: age and count based pruning on a cron schedule
package decision
