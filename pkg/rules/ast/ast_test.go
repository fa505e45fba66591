package ast

import (
	"reflect"
	"testing"
)

func TestNewValue(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		wantType ValueType
		wantRaw  any
	}{
		{"nil", nil, ValueTypeNull, nil},
		{"string", "Direct", ValueTypeString, "Direct"},
		{"bool", true, ValueTypeBool, true},
		{"int normalized", 3, ValueTypeNumber, float64(3)},
		{"int64 normalized", int64(7), ValueTypeNumber, float64(7)},
		{"float", 1.5, ValueTypeNumber, 1.5},
		{"string slice", []string{"a", "b"}, ValueTypeList, []any{"a", "b"}},
		{"mixed list", []any{"a", 2}, ValueTypeList, []any{"a", float64(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValue(tt.in)
			if v.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", v.Type, tt.wantType)
			}
			if !reflect.DeepEqual(v.Raw, tt.wantRaw) {
				t.Errorf("Raw = %#v, want %#v", v.Raw, tt.wantRaw)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    *Value
		want string
	}{
		{nil, "null"},
		{NewValue("x"), `"x"`},
		{NewValue(2), "2"},
		{NewValue(false), "false"},
		{NewValue([]any{"a", 1}), `["a", 1]`},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestConditionDepth(t *testing.T) {
	leaf := Leaf("containsPii", OperatorEq, true)
	tests := []struct {
		name string
		cond *Condition
		want int
	}{
		{"nil", nil, 0},
		{"leaf", leaf, 1},
		{"empty all", All(), 1},
		{"nested", All(leaf, Any(leaf, All(leaf))), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Depth(); got != tt.want {
				t.Errorf("Depth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOperatorHelpers(t *testing.T) {
	if !OperatorNotIn.IsKnown() || Operator("==").IsKnown() {
		t.Error("IsKnown() misclassified operators")
	}
	if !OperatorGte.IsNumeric() || OperatorEq.IsNumeric() {
		t.Error("IsNumeric() misclassified operators")
	}
}

func TestCollectFields(t *testing.T) {
	cond := All(
		Leaf("usageType", OperatorEq, "Decisioning"),
		Any(Leaf("containsPii", OperatorEq, true), Leaf("usageType", OperatorNeq, "x")),
		&Condition{Kind: ConditionLeaf},
	)
	want := []string{"usageType", "containsPii"}
	if got := CollectFields(cond); !reflect.DeepEqual(got, want) {
		t.Errorf("CollectFields() = %v, want %v", got, want)
	}
}

func TestRulesetLookups(t *testing.T) {
	rs := &Ruleset{
		Tiers: []*TierDefinition{{ID: "T1", Severity: 1}, {ID: "T3", Severity: 3}},
		Artifacts: []*ArtifactDefinition{
			{ID: "ModelCard", RequiredForTiers: []string{"T3"}},
		},
		Rules: []*Rule{{ID: "r1"}},
	}

	if sev, ok := rs.Severity("T3"); !ok || sev != 3 {
		t.Errorf("Severity(T3) = %d, %v", sev, ok)
	}
	if _, ok := rs.Severity("T9"); ok {
		t.Error("Severity(T9) should not be found")
	}
	a, ok := rs.Artifact("ModelCard")
	if !ok || !a.RequiredFor("T3") || a.RequiredFor("T1") {
		t.Errorf("Artifact(ModelCard) = %+v, %v", a, ok)
	}
	if _, ok := rs.Rule("r1"); !ok {
		t.Error("Rule(r1) not found")
	}
	if got := rs.TierIDs(); !reflect.DeepEqual(got, []string{"T1", "T3"}) {
		t.Errorf("TierIDs() = %v", got)
	}
	if !DeterminationModelLike.IsValid() || Determination("Maybe").IsValid() {
		t.Error("Determination.IsValid() misclassified values")
	}
}
