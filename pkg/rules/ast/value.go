package ast

import (
	"fmt"
	"strings"
)

// ValueType is the type of a literal in a leaf condition.
type ValueType string

const (
	ValueTypeString ValueType = "string"
	ValueTypeNumber ValueType = "number"
	ValueTypeBool   ValueType = "boolean"
	ValueTypeList   ValueType = "list"
	ValueTypeNull   ValueType = "null"
)

// Value is a literal operand. Raw holds string, float64, bool, []any or nil;
// integers are normalized to float64 so numeric comparison never depends on
// how the number was written.
type Value struct {
	Type     ValueType
	Raw      any
	Location Location
}

// NewValue wraps a Go literal, normalizing numbers and lists. Unsupported
// shapes are kept as strings of their formatted value.
func NewValue(v any) *Value {
	switch t := v.(type) {
	case nil:
		return &Value{Type: ValueTypeNull}
	case string:
		return &Value{Type: ValueTypeString, Raw: t}
	case bool:
		return &Value{Type: ValueTypeBool, Raw: t}
	case int:
		return &Value{Type: ValueTypeNumber, Raw: float64(t)}
	case int64:
		return &Value{Type: ValueTypeNumber, Raw: float64(t)}
	case float32:
		return &Value{Type: ValueTypeNumber, Raw: float64(t)}
	case float64:
		return &Value{Type: ValueTypeNumber, Raw: t}
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return &Value{Type: ValueTypeList, Raw: items}
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = NewValue(item).Raw
		}
		return &Value{Type: ValueTypeList, Raw: items}
	default:
		return &Value{Type: ValueTypeString, Raw: fmt.Sprintf("%v", t)}
	}
}

// List returns the elements of a list value.
func (v *Value) List() ([]any, bool) {
	if v == nil || v.Type != ValueTypeList {
		return nil, false
	}
	items, ok := v.Raw.([]any)
	return items, ok
}

// String renders the value the way it would be written in a ruleset.
func (v *Value) String() string {
	if v == nil || v.Type == ValueTypeNull {
		return "null"
	}
	switch v.Type {
	case ValueTypeString:
		return fmt.Sprintf("%q", v.Raw)
	case ValueTypeList:
		items, _ := v.List()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = NewValue(item).String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v.Raw)
	}
}
