package export

import (
	"context"
	"encoding/json"
	"io"

	"keystone-mrm/arbiter/pkg/decision"
)

// JSONExporter exports decision records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as a JSON array. An empty slice produces "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*decision.Record, w io.Writer) error {
	if records == nil {
		records = []*decision.Record{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return decision.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return decision.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as a JSON array without
// holding the full result set in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *decision.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return decision.NewExportError("json", 0, err)
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return decision.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if recordCount > 0 {
				sep := ","
				if e.Pretty {
					sep = ",\n"
				}
				if _, err := io.WriteString(w, sep); err != nil {
					return decision.NewExportError("json", recordCount, err)
				}
			}

			data, err := e.serializeRecord(record)
			if err != nil {
				return decision.NewExportError("json", recordCount, err)
			}
			if _, err := w.Write(data); err != nil {
				return decision.NewExportError("json", recordCount, err)
			}
			recordCount++
		}
	}
}

func (e *JSONExporter) serializeRecord(record *decision.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
