package export

import (
	"context"
	"fmt"
	"io"

	"keystone-mrm/arbiter/pkg/decision"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the decision exporter for format.
func New(format string, pretty bool) (decision.Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(pretty), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, decision.NewExportError(format, 0, fmt.Errorf("unsupported format %q (use %q or %q)", format, FormatJSON, FormatCSV))
	}
}

// StreamExporter writes records as they arrive on a channel. The JSON and
// CSV exporters implement it.
type StreamExporter interface {
	decision.Exporter
	ExportStream(ctx context.Context, recordsCh <-chan *decision.Record, w io.Writer) error
}
