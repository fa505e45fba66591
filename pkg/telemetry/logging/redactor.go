package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces the value of a redacted key.
const Redacted = "[REDACTED]"

var emailPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-])[a-zA-Z0-9._%+-]*@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// Redactor masks personal data in log attributes. Use-case contacts and
// vendor contacts are free text and often hold email addresses.
type Redactor struct {
	maskEmails bool
	keys       map[string]bool
}

// NewRedactor creates a redactor. Keys are matched case-insensitively.
func NewRedactor(maskEmails bool, keys []string) *Redactor {
	r := &Redactor{
		maskEmails: maskEmails,
		keys:       make(map[string]bool, len(keys)),
	}
	for _, k := range keys {
		r.keys[strings.ToLower(k)] = true
	}
	return r
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if r.keys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	if r.maskEmails && a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); strings.Contains(s, "@") {
			return slog.String(a.Key, r.RedactString(s))
		}
	}
	return a
}

// RedactString masks email addresses in s as "j***@example.com".
func (r *Redactor) RedactString(s string) string {
	return emailPattern.ReplaceAllString(s, "$1***@$2")
}
