package errors

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// ExtractContext renders the lines around the error location with line numbers
// and a caret under the error column. src is the ruleset source; when it is
// nil the file named by the location is read.
func ExtractContext(err *Error, src []byte, contextLines int) string {
	loc := err.Location
	if loc.Line <= 0 {
		return ""
	}

	if src == nil {
		if loc.File == "" {
			return ""
		}
		data, readErr := os.ReadFile(loc.File)
		if readErr != nil {
			return ""
		}
		src = data
	}

	lines := strings.Split(string(bytes.TrimRight(src, "\n")), "\n")
	errorLine := loc.Line - 1
	if errorLine >= len(lines) {
		return ""
	}

	startLine := max(errorLine-contextLines, 0)
	endLine := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))

		if i == errorLine && loc.Column > 0 {
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", loc.Column-1)))
		}
	}

	return sb.String()
}

// AddContext fills in the Context of every error in the list that does not
// already carry one, showing two lines on either side.
func AddContext(el *ErrorList, src []byte) {
	for _, e := range el.Errors {
		if e.Context == "" {
			e.Context = ExtractContext(e, src, 2)
		}
	}
}
