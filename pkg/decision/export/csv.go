package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"keystone-mrm/arbiter/pkg/decision"
)

// ListSeparator joins list values inside a single CSV cell.
const ListSeparator = ";"

// CSVExporter exports decision records as flat CSV rows. List fields are
// joined with ListSeparator; the full input and result payloads are omitted.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*decision.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return decision.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(e.recordToRow(record)); err != nil {
			return decision.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return decision.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel in CSV format, flushing every
// 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *decision.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return decision.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return decision.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(e.recordToRow(record)); err != nil {
				return decision.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return decision.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func (e *CSVExporter) getHeaderRow() []string {
	return []string{
		"id", "use_case_id", "title",
		"evaluated_at", "recorded_at",
		"ruleset_name", "ruleset_version", "ruleset_hash",
		"tier", "is_model",
		"triggered_rules", "required_artifacts", "missing_evidence", "missing_count", "risk_flags",
		"rationale",
		"input_hash", "result_hash",
	}
}

func (e *CSVExporter) recordToRow(record *decision.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}

	rationale := ""
	if record.Result != nil {
		rationale = record.Result.RationaleSummary
	}

	return []string{
		record.ID,
		record.UseCaseID,
		record.Title,
		formatTime(record.EvaluatedAt),
		formatTime(record.RecordedAt),
		record.RulesetName,
		record.RulesetVersion,
		record.RulesetHash,
		record.Tier,
		string(record.IsModel),
		strings.Join(record.TriggeredRuleIDs, ListSeparator),
		strings.Join(record.RequiredArtifacts, ListSeparator),
		strings.Join(record.MissingEvidence, ListSeparator),
		strconv.Itoa(len(record.MissingEvidence)),
		strings.Join(record.RiskFlags, ListSeparator),
		rationale,
		record.InputHash,
		record.ResultHash,
	}
}
