package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

// AttributeError reports an attribute that could not be mapped onto Record.
type AttributeError struct {
	Name       string
	Message    string
	Suggestion string
}

func (e *AttributeError) Error() string {
	msg := fmt.Sprintf("attribute %q: %s", e.Name, e.Message)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

// FromAttributes builds a Record from a loosely typed attribute map, the shape
// use-case data arrives in from storage layers and JSON payloads. Values are
// coerced to the field's type ("true", 1 and true are all accepted for
// booleans; sets accept lists or comma-separated strings). Nil values leave the
// field at its zero value. Unknown and derived attribute names are rejected;
// derived fields are computed from attachments.
func FromAttributes(attrs map[string]any, attachments []Attachment) (Record, error) {
	var r Record

	// Deterministic error order for callers that surface the first failure.
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := attrs[name]
		f, ok := fields[name]
		if !ok {
			return Record{}, &AttributeError{
				Name:       name,
				Message:    "unknown attribute",
				Suggestion: rulesErrors.SuggestFieldName(name, FieldNames()),
			}
		}
		if f.set == nil {
			return Record{}, &AttributeError{
				Name:    name,
				Message: "derived from attachments and cannot be set directly",
			}
		}
		if v == nil {
			continue
		}
		if err := f.set(&r, v); err != nil {
			return Record{}, &AttributeError{
				Name:    name,
				Message: fmt.Sprintf("cannot use %v as %s: %v", v, f.Type, err),
			}
		}
	}

	return New(r, attachments), nil
}

// toStringSet converts list-like values into a trimmed, deduplicated string
// slice in first-seen order.
func toStringSet(v any) ([]string, error) {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	default:
		items, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, err
		}
		raw = items
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out, nil
}
