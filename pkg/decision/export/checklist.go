package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/rules/ast"
)

// Checklist item statuses.
const (
	StatusMissing  = "missing"
	StatusProvided = "provided"
)

// ChecklistItem is one required artifact of a decision.
type ChecklistItem struct {
	DecisionID        string `json:"decisionId"`
	ArtifactID        string `json:"artifactId"`
	Name              string `json:"name"`
	Category          string `json:"category,omitempty"`
	OwnerRole         string `json:"ownerRole,omitempty"`
	WhatGoodLooksLike string `json:"whatGoodLooksLike,omitempty"`
	Status            string `json:"status"`
}

// BuildChecklist lists the required artifacts of record in order, joined with
// their definitions from rs. Artifacts rs does not define keep their ID as
// name. A nil rs yields IDs only.
func BuildChecklist(record *decision.Record, rs *ast.Ruleset) []ChecklistItem {
	missing := make(map[string]bool, len(record.MissingEvidence))
	for _, id := range record.MissingEvidence {
		missing[id] = true
	}

	items := make([]ChecklistItem, 0, len(record.RequiredArtifacts))
	for _, id := range record.RequiredArtifacts {
		item := ChecklistItem{
			DecisionID: record.ID,
			ArtifactID: id,
			Name:       id,
			Status:     StatusProvided,
		}
		if missing[id] {
			item.Status = StatusMissing
		}
		if rs != nil {
			if def, ok := rs.Artifact(id); ok {
				if def.Name != "" {
					item.Name = def.Name
				}
				item.Category = def.Category
				item.OwnerRole = def.OwnerRole
				item.WhatGoodLooksLike = def.WhatGoodLooksLike
			}
		}
		items = append(items, item)
	}
	return items
}

// ChecklistExporter writes the artifact checklist of each record.
type ChecklistExporter struct {
	// Format is "csv" or "json".
	Format string

	// Ruleset supplies artifact names, owners and guidance.
	Ruleset *ast.Ruleset
}

// NewChecklistExporter creates a checklist exporter.
func NewChecklistExporter(format string, rs *ast.Ruleset) *ChecklistExporter {
	return &ChecklistExporter{Format: format, Ruleset: rs}
}

// Export writes one checklist row per required artifact per record.
func (e *ChecklistExporter) Export(ctx context.Context, records []*decision.Record, w io.Writer) error {
	var items []ChecklistItem
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		items = append(items, BuildChecklist(record, e.Ruleset)...)
	}

	switch e.Format {
	case FormatJSON:
		if items == nil {
			items = []ChecklistItem{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return decision.NewExportError("checklist-json", len(records), err)
		}
		return nil

	case FormatCSV, "":
		writer := csv.NewWriter(w)
		header := []string{"decision_id", "artifact_id", "name", "category", "owner_role", "what_good_looks_like", "status"}
		if err := writer.Write(header); err != nil {
			return decision.NewExportError("checklist-csv", len(records), err)
		}
		for _, item := range items {
			row := []string{item.DecisionID, item.ArtifactID, item.Name, item.Category, item.OwnerRole, item.WhatGoodLooksLike, item.Status}
			if err := writer.Write(row); err != nil {
				return decision.NewExportError("checklist-csv", len(records), err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return decision.NewExportError("checklist-csv", len(records), err)
		}
		return nil

	default:
		return decision.NewExportError(e.Format, len(records), fmt.Errorf("unsupported checklist format %q", e.Format))
	}
}
