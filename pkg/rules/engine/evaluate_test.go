package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

func rule(id, tier string, cond *ast.Condition) *ast.Rule {
	return &ast.Rule{ID: id, Name: id, Tier: tier, Conditions: cond}
}

func TestSelectTriggeredRules_KeepsOrder(t *testing.T) {
	always := ast.All()
	never := ast.Any()
	rules := []*ast.Rule{
		rule("c", "T1", always),
		rule("a", "T1", never),
		rule("b", "T1", always),
		rule("d", "T1", nil),
	}

	got := SelectTriggeredRules(newRecord(usecase.Record{}), rules)
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if want := []string{"c", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("SelectTriggeredRules() = %v, want %v", ids, want)
	}
}

func TestResolveTier(t *testing.T) {
	rs := testRuleset()
	tests := []struct {
		name        string
		triggered   []*ast.Rule
		defaultTier string
		want        string
	}{
		{"no rules keeps default", nil, "T1", "T1"},
		{"highest severity wins", []*ast.Rule{rule("a", "T2", nil), rule("b", "T3", nil), rule("c", "T2", nil)}, "T1", "T3"},
		{"never below default", []*ast.Rule{rule("a", "T1", nil)}, "T2", "T2"},
		{"equal to default does not override", []*ast.Rule{rule("a", "T2", nil)}, "T2", "T2"},
		{"unknown rule tier skipped", []*ast.Rule{rule("a", "T9", nil), rule("b", "T2", nil)}, "T1", "T2"},
		{"undefined default adopts first known", []*ast.Rule{rule("a", "T1", nil)}, "T0", "T1"},
		{"undefined default with no rules", nil, "T0", "T0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTier(tt.triggered, tt.defaultTier, rs); got != tt.want {
				t.Errorf("ResolveTier() = %q, want %q", got, tt.want)
			}
		})
	}
}

// twinTiers has two distinct tier ids sharing the top severity.
type twinTiers map[string]int

func (t twinTiers) Severity(id string) (int, bool) {
	s, ok := t[id]
	return s, ok
}

func TestResolveTier_FirstRuleWinsTies(t *testing.T) {
	tiers := twinTiers{"T1": 1, "T3a": 3, "T3b": 3}
	triggered := []*ast.Rule{rule("a", "T3b", nil), rule("b", "T3a", nil)}
	if got := ResolveTier(triggered, "T1", tiers); got != "T3b" {
		t.Errorf("ResolveTier() = %q, want %q", got, "T3b")
	}
	reversed := []*ast.Rule{triggered[1], triggered[0]}
	if got := ResolveTier(reversed, "T1", tiers); got != "T3a" {
		t.Errorf("ResolveTier() reversed = %q, want %q", got, "T3a")
	}
}

func TestDetermineIsModel(t *testing.T) {
	criteria := testRuleset().Criteria
	tests := []struct {
		name   string
		record usecase.Record
		want   ast.Determination
	}{
		{"nothing matches", usecase.Record{AIType: "Traditional ML"}, ast.DeterminationNo},
		{"model-like only", usecase.Record{AIType: "GenAI"}, ast.DeterminationModelLike},
		{"yes after model-like", usecase.Record{AIType: "GenAI", ModelDefinitionTrigger: true}, ast.DeterminationYes},
		{"yes before model-like", usecase.Record{AIType: "Rules", ModelDefinitionTrigger: true}, ast.DeterminationYes},
		{"yes alone", usecase.Record{ModelDefinitionTrigger: true}, ast.DeterminationYes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineIsModel(newRecord(tt.record), criteria); got != tt.want {
				t.Errorf("DetermineIsModel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetermineIsModel_NoCriterionDowngradesYes(t *testing.T) {
	criteria := []*ast.ModelCriterion{
		{ID: "yes", Conditions: ast.All(), Result: ast.DeterminationYes},
		{ID: "no", Conditions: ast.All(), Result: ast.DeterminationNo},
		{ID: "like", Conditions: ast.All(), Result: ast.DeterminationModelLike},
	}
	if got := DetermineIsModel(newRecord(usecase.Record{}), criteria); got != ast.DeterminationYes {
		t.Errorf("DetermineIsModel() = %q, want Yes", got)
	}
}

func TestCollectRequiredArtifacts(t *testing.T) {
	rs := testRuleset()
	triggered := []*ast.Rule{
		{ID: "a", Effects: ast.Effects{AddRequiredArtifacts: []string{"FallbackPlan", "ValidationPlan"}}},
		{ID: "b", Effects: ast.Effects{AddRequiredArtifacts: []string{"FallbackPlan", "UseCaseSummary"}}},
	}

	got := CollectRequiredArtifacts(triggered, "T3", rs.Artifacts)
	want := []string{"FallbackPlan", "ValidationPlan", "UseCaseSummary", "MonitoringPlan", "RetentionPolicy", "AccessControlMatrix"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectRequiredArtifacts() = %v, want %v", got, want)
	}

	if got := CollectRequiredArtifacts(nil, "T9", rs.Artifacts); got == nil || len(got) != 0 {
		t.Errorf("CollectRequiredArtifacts() for unknown tier = %#v, want empty non-nil", got)
	}
}

func TestCollectRiskFlags(t *testing.T) {
	triggered := []*ast.Rule{
		{Effects: ast.Effects{AddRiskFlags: []string{"B", "A"}}},
		{Effects: ast.Effects{AddRiskFlags: []string{"A", "", "C"}}},
	}
	if got, want := CollectRiskFlags(triggered), []string{"B", "A", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("CollectRiskFlags() = %v, want %v", got, want)
	}
}

func TestDetectMissingEvidence(t *testing.T) {
	rs := testRuleset()
	tests := []struct {
		name        string
		record      *usecase.Record
		required    []string
		wantMissing []string
	}{
		{
			name:        "structural checks fail",
			record:      newRecord(usecase.Record{MonitoringCadence: "None"}),
			required:    []string{"RetentionPolicy", "AccessControlMatrix", "FallbackPlan", "MonitoringPlan", "UseCaseSummary"},
			wantMissing: []string{"RetentionPolicy", "AccessControlMatrix", "FallbackPlan", "MonitoringPlan"},
		},
		{
			name: "structural checks pass",
			record: newRecord(usecase.Record{
				MonitoringCadence:      "Quarterly",
				RetentionPolicyDefined: true,
				AccessControlsDefined:  true,
				FallbackPlanDefined:    true,
			}),
			required:    []string{"RetentionPolicy", "AccessControlMatrix", "FallbackPlan", "MonitoringPlan"},
			wantMissing: []string{},
		},
		{
			name:        "blank cadence",
			record:      newRecord(usecase.Record{MonitoringCadence: "  "}),
			required:    []string{"MonitoringPlan"},
			wantMissing: []string{"MonitoringPlan"},
		},
		{
			name:        "cadence sentinel is case sensitive",
			record:      newRecord(usecase.Record{MonitoringCadence: "none"}),
			required:    []string{"MonitoringPlan"},
			wantMissing: []string{},
		},
		{
			name:        "padded sentinel cadence",
			record:      newRecord(usecase.Record{MonitoringCadence: " None "}),
			required:    []string{"MonitoringPlan"},
			wantMissing: []string{"MonitoringPlan"},
		},
		{
			name:        "vendor without vendor doc",
			record:      newRecord(usecase.Record{VendorInvolved: true}, "Model card"),
			required:    []string{"VendorDueDiligence"},
			wantMissing: []string{"VendorDueDiligence"},
		},
		{
			name:        "vendor with vendor doc",
			record:      newRecord(usecase.Record{VendorInvolved: true}, "Vendor doc"),
			required:    []string{"VendorDueDiligence"},
			wantMissing: []string{},
		},
		{
			name:        "no vendor",
			record:      newRecord(usecase.Record{}),
			required:    []string{"VendorDueDiligence"},
			wantMissing: []string{},
		},
		{
			name:        "attachment-backed without attachments",
			record:      newRecord(usecase.Record{}),
			required:    []string{"ValidationPlan", "HallucinationTestResults", "UseCaseSummary"},
			wantMissing: []string{"ValidationPlan", "HallucinationTestResults"},
		},
		{
			name:        "any attachment satisfies attachment-backed",
			record:      newRecord(usecase.Record{}, "Other"),
			required:    []string{"ValidationPlan", "HallucinationTestResults"},
			wantMissing: []string{},
		},
		{
			name:        "duplicates in required",
			record:      newRecord(usecase.Record{}),
			required:    []string{"ModelCard", "ModelCard"},
			wantMissing: []string{"ModelCard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectMissingEvidence(tt.record, tt.required, rs)
			if !reflect.DeepEqual(got, tt.wantMissing) {
				t.Errorf("DetectMissingEvidence() = %v, want %v", got, tt.wantMissing)
			}
		})
	}
}

func TestDetectMissingEvidence_MatchAttachmentTypes(t *testing.T) {
	rs := testRuleset()
	rs.Artifacts = append(rs.Artifacts, &ast.ArtifactDefinition{
		ID:                      "DataLineage",
		Name:                    "Data lineage",
		Category:                "Data",
		EvidenceAttachmentTypes: []string{"Lineage diagram", "Data dictionary"},
	})
	record := newRecord(usecase.Record{}, "Model card")

	if got := DetectMissingEvidence(record, []string{"DataLineage"}, rs); len(got) != 0 {
		t.Errorf("lenient mode: DetectMissingEvidence() = %v, want empty", got)
	}

	rs.Evidence.MatchAttachmentTypes = true
	if got := DetectMissingEvidence(record, []string{"DataLineage", "ValidationPlan"}, rs); !reflect.DeepEqual(got, []string{"DataLineage"}) {
		t.Errorf("strict mode: DetectMissingEvidence() = %v, want [DataLineage]", got)
	}

	matching := newRecord(usecase.Record{}, "Data dictionary")
	if got := DetectMissingEvidence(matching, []string{"DataLineage"}, rs); len(got) != 0 {
		t.Errorf("strict mode with matching type: DetectMissingEvidence() = %v, want empty", got)
	}

	if got := DetectMissingEvidence(newRecord(usecase.Record{}), []string{"DataLineage"}, rs); !reflect.DeepEqual(got, []string{"DataLineage"}) {
		t.Errorf("no attachments: DetectMissingEvidence() = %v, want [DataLineage]", got)
	}
}

func TestGenerateRationale(t *testing.T) {
	rs := testRuleset()
	triggered := []*ast.Rule{rs.Rules[0], rs.Rules[1]}

	got := GenerateRationale("T3", ast.DeterminationYes, triggered, []string{"No human oversight", "Regulatory exposure"}, rs)
	want := strings.Join([]string{
		"This use case qualifies as a model under the model definition.",
		"Risk tier: T3 (High) - Material customer impact.",
		"Triggered criteria:",
		"- Fully automated decisions directly affect customers.",
		"- Regulated domain",
		"Risk flags: No human oversight, Regulatory exposure.",
	}, "\n")
	if got != want {
		t.Errorf("GenerateRationale() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateRationale_Defaults(t *testing.T) {
	rs := testRuleset()
	tests := []struct {
		name     string
		tier     string
		isModel  ast.Determination
		rs       *ast.Ruleset
		contains []string
		excludes []string
	}{
		{
			name:     "no rules",
			tier:     "T1",
			isModel:  ast.DeterminationNo,
			rs:       rs,
			contains: []string{"does not meet the model definition", "Risk tier: T1 (Low) - Limited impact.", "No risk rules were triggered"},
			excludes: []string{"Risk flags"},
		},
		{
			name:     "model-like",
			tier:     "T2",
			isModel:  ast.DeterminationModelLike,
			rs:       rs,
			contains: []string{"model-like characteristics"},
		},
		{
			name:     "unknown tier",
			tier:     "T9",
			isModel:  ast.DeterminationNo,
			rs:       rs,
			contains: []string{"Risk tier: T9."},
		},
		{
			name:     "nil ruleset",
			tier:     "T1",
			isModel:  ast.DeterminationNo,
			contains: []string{"Risk tier: T1."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRationale(tt.tier, tt.isModel, nil, nil, tt.rs)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("GenerateRationale() = %q, want it to contain %q", got, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("GenerateRationale() = %q, should not contain %q", got, s)
				}
			}
		})
	}
}

func TestEvaluate_AutomatedDirectDecisioning(t *testing.T) {
	record := newRecord(usecase.Record{
		UsageType:      "Decisioning",
		CustomerImpact: "Direct",
		HumanInLoop:    "None",
	})

	got := Evaluate(record, testRuleset())
	if got.Tier != "T3" {
		t.Errorf("Tier = %q, want T3", got.Tier)
	}
	if ids := got.TriggeredRuleIDs(); !reflect.DeepEqual(ids, []string{"automated-direct-decisioning"}) {
		t.Errorf("TriggeredRuleIDs() = %v", ids)
	}
	if !reflect.DeepEqual(got.RiskFlags, []string{"No human oversight"}) {
		t.Errorf("RiskFlags = %v", got.RiskFlags)
	}
	if !got.IsMissing("ValidationPlan") || !got.IsMissing("FallbackPlan") {
		t.Errorf("MissingEvidence = %v, want ValidationPlan and FallbackPlan", got.MissingEvidence)
	}
}

func TestEvaluate_WellDocumentedLowRisk(t *testing.T) {
	record := newRecord(usecase.Record{
		UsageType:              "Informational",
		MonitoringCadence:      "Monthly",
		RetentionPolicyDefined: true,
		AccessControlsDefined:  true,
		FallbackPlanDefined:    true,
	}, "Model card")

	got := Evaluate(record, testRuleset())
	if got.Tier != "T1" {
		t.Errorf("Tier = %q, want T1", got.Tier)
	}
	if want := []string{"UseCaseSummary", "MonitoringPlan", "RetentionPolicy"}; !reflect.DeepEqual(got.RequiredArtifacts, want) {
		t.Errorf("RequiredArtifacts = %v, want %v", got.RequiredArtifacts, want)
	}
	if len(got.MissingEvidence) != 0 {
		t.Errorf("MissingEvidence = %v, want empty", got.MissingEvidence)
	}
	if got.IsModel != ast.DeterminationNo {
		t.Errorf("IsModel = %q, want No", got.IsModel)
	}
}

func TestEvaluate_VendorWithoutVendorDoc(t *testing.T) {
	record := newRecord(usecase.Record{VendorInvolved: true}, "Model card")
	got := Evaluate(record, testRuleset())
	if got.Tier != "T2" {
		t.Errorf("Tier = %q, want T2", got.Tier)
	}
	if !got.IsMissing("VendorDueDiligence") {
		t.Errorf("MissingEvidence = %v, want VendorDueDiligence", got.MissingEvidence)
	}
	if want := []string{"Regulatory exposure", "Vendor dependency"}; !reflect.DeepEqual(got.RiskFlags, want) {
		t.Errorf("RiskFlags = %v, want %v", got.RiskFlags, want)
	}
}

func TestEvaluate_GenAIWithoutAttachments(t *testing.T) {
	record := newRecord(usecase.Record{AIType: "GenAI"})
	got := Evaluate(record, testRuleset())
	for _, id := range []string{"HallucinationTestResults", "PromptInjectionTestResults"} {
		if !got.IsMissing(id) {
			t.Errorf("MissingEvidence = %v, want %s", got.MissingEvidence, id)
		}
	}
	if got.IsModel != ast.DeterminationModelLike {
		t.Errorf("IsModel = %q, want Model-like", got.IsModel)
	}
}

func TestEvaluate_Invariants(t *testing.T) {
	rs := testRuleset()
	records := []*usecase.Record{
		newRecord(usecase.Record{}),
		newRecord(usecase.Record{AIType: "GenAI", VendorInvolved: true, RegulatoryDomains: []string{"Privacy"}}),
		newRecord(usecase.Record{UsageType: "Decisioning", CustomerImpact: "Direct", HumanInLoop: "None", VendorInvolved: true}, "Vendor doc"),
		newRecord(usecase.Record{ModelDefinitionTrigger: true, AIType: "Rules", RegulatoryDomains: []string{"Fair Lending", "Privacy"}}),
	}

	for i, record := range records {
		first := Evaluate(record, rs)
		second := Evaluate(record, rs)

		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		if string(a) != string(b) {
			t.Errorf("record %d: Evaluate() not deterministic:\n%s\n%s", i, a, b)
		}

		if sev, _ := rs.Severity(first.Tier); sev < 1 {
			t.Errorf("record %d: tier %q below default", i, first.Tier)
		}

		assertUnique(t, "RequiredArtifacts", first.RequiredArtifacts)
		assertUnique(t, "RiskFlags", first.RiskFlags)

		required := make(map[string]bool)
		for _, id := range first.RequiredArtifacts {
			required[id] = true
		}
		for _, id := range first.MissingEvidence {
			if !required[id] {
				t.Errorf("record %d: missing %q not in RequiredArtifacts", i, id)
			}
		}
	}
}

func assertUnique(t *testing.T, name string, items []string) {
	t.Helper()
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item] {
			t.Errorf("%s contains duplicate %q: %v", name, item, items)
		}
		seen[item] = true
	}
}

func TestEvaluate_NilRuleset(t *testing.T) {
	got := Evaluate(newRecord(usecase.Record{}), nil)
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"isModel":"No","tier":"","triggeredRules":[],"rationaleSummary":"","requiredArtifacts":[],"missingEvidence":[],"riskFlags":[]}`
	if string(data) != want {
		t.Errorf("Evaluate(nil) = %s, want %s", data, want)
	}
}

func TestEvaluate_DoesNotMutateInputs(t *testing.T) {
	rs := testRuleset()
	record := newRecord(usecase.Record{VendorInvolved: true, RegulatoryDomains: []string{"Privacy"}})
	before := *record
	beforeDomains := append([]string(nil), record.RegulatoryDomains...)

	got := Evaluate(record, rs)
	got.RiskFlags = append(got.RiskFlags, "extra")
	got.RequiredArtifacts[0] = "changed"

	if !reflect.DeepEqual(record.RegulatoryDomains, beforeDomains) || record.VendorInvolved != before.VendorInvolved {
		t.Errorf("record mutated: %+v", record)
	}
	if rs.Rules[2].Effects.AddRequiredArtifacts[0] != "VendorDueDiligence" {
		t.Errorf("ruleset effects mutated: %v", rs.Rules[2].Effects.AddRequiredArtifacts)
	}
}
