package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"keystone-mrm/arbiter/pkg/decision"
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/rules/engine"
)

func testRecord(id string) *decision.Record {
	return &decision.Record{
		ID:                id,
		UseCaseID:         "uc-" + id,
		Title:             "Credit line increase",
		EvaluatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RecordedAt:        time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		RulesetVersion:    "1.0",
		RulesetHash:       "sha256:abc",
		Tier:              "T3",
		IsModel:           ast.DeterminationYes,
		TriggeredRuleIDs:  []string{"customer_decisioning", "pii"},
		RequiredArtifacts: []string{"model_card", "vendor_due_diligence", "unlisted"},
		MissingEvidence:   []string{"vendor_due_diligence"},
		RiskFlags:         []string{"customer-impact"},
		Result:            &engine.DecisionResult{Tier: "T3", RationaleSummary: "Risk tier: T3 (High)."},
	}
}

func testRuleset() *ast.Ruleset {
	return &ast.Ruleset{
		Artifacts: []*ast.ArtifactDefinition{
			{ID: "model_card", Name: "Model card", Category: "Documentation", OwnerRole: "Model owner", WhatGoodLooksLike: "Purpose, data, limits."},
			{ID: "vendor_due_diligence", Name: "Vendor due diligence", Category: "Third party", OwnerRole: "Procurement"},
		},
	}
}

func streamOf(records ...*decision.Record) <-chan *decision.Record {
	ch := make(chan *decision.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		records []*decision.Record
		want    int
	}{
		{"nil", nil, 0},
		{"single record is still an array", []*decision.Record{testRecord("a")}, 1},
		{"multiple", []*decision.Record{testRecord("a"), testRecord("b")}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONExporter(true).Export(context.Background(), tt.records, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			var decoded []decision.Record
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
			}
			if len(decoded) != tt.want {
				t.Errorf("decoded %d records, want %d", len(decoded), tt.want)
			}
		})
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		err := NewJSONExporter(pretty).ExportStream(context.Background(), streamOf(testRecord("a"), testRecord("b"), testRecord("c")), &buf)
		if err != nil {
			t.Fatalf("ExportStream(pretty=%v) error = %v", pretty, err)
		}

		var decoded []decision.Record
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("ExportStream(pretty=%v) produced invalid JSON: %v", pretty, err)
		}
		if len(decoded) != 3 || decoded[2].ID != "c" {
			t.Errorf("ExportStream(pretty=%v) decoded %+v", pretty, decoded)
		}
	}
}

func TestCSVExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), []*decision.Record{testRecord("a")}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}

	header, row := rows[0], rows[1]
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %q", name)
		return ""
	}

	checks := map[string]string{
		"id":              "a",
		"tier":            "T3",
		"is_model":        "Yes",
		"triggered_rules": "customer_decisioning;pii",
		"missing_count":   "1",
		"evaluated_at":    "2026-03-01T12:00:00Z",
		"rationale":       "Risk tier: T3 (High).",
	}
	for name, want := range checks {
		if got := col(name); got != want {
			t.Errorf("column %s = %q, want %q", name, got, want)
		}
	}
}

func TestCSVExporter_ExportStream(t *testing.T) {
	records := make([]*decision.Record, 0, 250)
	for i := 0; i < 250; i++ {
		records = append(records, testRecord("r"))
	}

	var buf bytes.Buffer
	if err := NewCSVExporter(false).ExportStream(context.Background(), streamOf(records...), &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 250 {
		t.Errorf("got %d lines, want 250", lines)
	}
}

func TestExportStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan *decision.Record)
	if err := NewCSVExporter(true).ExportStream(ctx, block, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("CSV ExportStream() error = %v, want context.Canceled", err)
	}
	if err := NewJSONExporter(false).ExportStream(ctx, block, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("JSON ExportStream() error = %v, want context.Canceled", err)
	}
}

func TestBuildChecklist(t *testing.T) {
	items := BuildChecklist(testRecord("a"), testRuleset())
	if len(items) != 3 {
		t.Fatalf("BuildChecklist() returned %d items, want 3", len(items))
	}

	tests := []struct {
		idx        int
		wantID     string
		wantName   string
		wantOwner  string
		wantStatus string
	}{
		{0, "model_card", "Model card", "Model owner", StatusProvided},
		{1, "vendor_due_diligence", "Vendor due diligence", "Procurement", StatusMissing},
		{2, "unlisted", "unlisted", "", StatusProvided},
	}
	for _, tt := range tests {
		got := items[tt.idx]
		if got.ArtifactID != tt.wantID || got.Name != tt.wantName || got.OwnerRole != tt.wantOwner || got.Status != tt.wantStatus {
			t.Errorf("items[%d] = %+v", tt.idx, got)
		}
		if got.DecisionID != "a" {
			t.Errorf("items[%d].DecisionID = %q, want a", tt.idx, got.DecisionID)
		}
	}

	if items := BuildChecklist(testRecord("a"), nil); items[0].Name != "model_card" {
		t.Errorf("nil ruleset Name = %q, want artifact id", items[0].Name)
	}
}

func TestChecklistExporter(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewChecklistExporter(FormatCSV, testRuleset()).Export(context.Background(), []*decision.Record{testRecord("a")}, &buf)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("got %d rows, want header + 3", len(rows))
		}
		if rows[2][6] != StatusMissing {
			t.Errorf("vendor_due_diligence status = %q, want missing", rows[2][6])
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewChecklistExporter(FormatJSON, testRuleset()).Export(context.Background(), nil, &buf)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != "[]" {
			t.Errorf("empty checklist = %q, want []", got)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		err := NewChecklistExporter("xml", nil).Export(context.Background(), nil, &bytes.Buffer{})
		var exportErr *decision.ExportError
		if !errors.As(err, &exportErr) {
			t.Errorf("Export() error = %v, want *ExportError", err)
		}
	})
}

func TestNew(t *testing.T) {
	if _, err := New(FormatJSON, false); err != nil {
		t.Errorf("New(json) error = %v", err)
	}
	if _, err := New(FormatCSV, false); err != nil {
		t.Errorf("New(csv) error = %v", err)
	}
	if _, err := New("xml", false); err == nil {
		t.Error("New(xml) expected error")
	}
}
