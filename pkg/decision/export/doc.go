// Package export writes decision records for audit and review.
//
// JSONExporter and CSVExporter serialize records; both offer ExportStream to
// pair with Storage.QueryStream. ChecklistExporter turns each decision into
// its per-artifact checklist (name, category, owner role, what good looks
// like, and whether evidence is missing), which is what a reviewer works
// through before approving a use case.
package export
