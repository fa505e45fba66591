package main

import (
	"encoding/json"
	"strings"
	"testing"

	"keystone-mrm/arbiter/pkg/usecase"
)

func resetEvaluateFlags(t *testing.T) {
	t.Helper()
	orig := evaluateFlags
	evaluateFlags.set = nil
	evaluateFlags.attachments = nil
	evaluateFlags.useCaseID = ""
	evaluateFlags.explain = false
	evaluateFlags.persist = false
	evaluateFlags.output = "json"
	t.Cleanup(func() { evaluateFlags = orig })
}

func TestReadUseCaseInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, rec *usecase.Record, in *useCaseInput)
		wantErr bool
	}{
		{
			name: "yaml attributes",
			input: `
useCaseId: uc-1
attributes:
  usageType: Decisioning
  containsPii: true
  regulatoryDomains: [Fair Lending, Privacy]
attachments:
  - type: Model card
`,
			check: func(t *testing.T, rec *usecase.Record, in *useCaseInput) {
				if in.UseCaseID != "uc-1" {
					t.Errorf("UseCaseID = %q, want uc-1", in.UseCaseID)
				}
				if rec.UsageType != "Decisioning" || !rec.ContainsPII {
					t.Errorf("record = %+v", rec)
				}
				if len(rec.RegulatoryDomains) != 2 {
					t.Errorf("RegulatoryDomains = %v", rec.RegulatoryDomains)
				}
				if !rec.HasAttachments || rec.AttachmentCount != 1 {
					t.Errorf("attachments not derived: %+v", rec)
				}
			},
		},
		{
			name:  "json record",
			input: `{"useCaseId": "uc-2", "record": {"aiType": "GenAI", "vendorInvolved": true}}`,
			check: func(t *testing.T, rec *usecase.Record, in *useCaseInput) {
				if rec.AIType != "GenAI" || !rec.VendorInvolved {
					t.Errorf("record = %+v", rec)
				}
			},
		},
		{
			name:  "empty input",
			input: "",
			check: func(t *testing.T, rec *usecase.Record, in *useCaseInput) {
				if rec.HasAttachments {
					t.Errorf("record = %+v, want empty", rec)
				}
			},
		},
		{
			name:    "unknown key",
			input:   "usecase: x\n",
			wantErr: true,
		},
		{
			name:    "record and attributes",
			input:   "record: {aiType: ML}\nattributes: {usageType: Decisioning}\n",
			wantErr: true,
		},
		{
			name:    "unknown attribute",
			input:   "attributes: {usageTyp: Decisioning}\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := readUseCaseInput(strings.NewReader(tt.input))
			var rec *usecase.Record
			if err == nil {
				rec, err = in.useCase()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, rec, in)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	in := &useCaseInput{Attributes: map[string]any{"usageType": "Reporting"}}
	err := in.applyFlags([]string{"usageType=Decisioning", " containsPii =true"}, []string{"Vendor doc"}, "uc-9")
	if err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	if in.Attributes["usageType"] != "Decisioning" || in.Attributes["containsPii"] != "true" {
		t.Errorf("Attributes = %v", in.Attributes)
	}
	if len(in.Attachments) != 1 || in.Attachments[0].Type != "Vendor doc" {
		t.Errorf("Attachments = %v", in.Attachments)
	}
	if in.UseCaseID != "uc-9" {
		t.Errorf("UseCaseID = %q, want uc-9", in.UseCaseID)
	}

	if err := (&useCaseInput{}).applyFlags([]string{"novalue"}, nil, ""); err == nil {
		t.Error("applyFlags() accepted a --set without '='")
	}
	typed := &useCaseInput{Record: &usecase.Record{}}
	if err := typed.applyFlags([]string{"aiType=ML"}, nil, ""); err == nil {
		t.Error("applyFlags() accepted --set with a typed record")
	}
}

func TestRunEvaluate(t *testing.T) {
	useGlobals(t, "", defaultRuleset)
	dir := t.TempDir()
	file := writeFile(t, dir, "usecase.yaml", `
useCaseId: uc-42
attributes:
  usageType: Decisioning
  customerImpact: Direct
  humanInLoop: None
`)

	t.Run("json", func(t *testing.T) {
		resetEvaluateFlags(t)
		cmd, out := newTestCommand()
		if err := runEvaluate(cmd, []string{file}); err != nil {
			t.Fatalf("runEvaluate() error = %v", err)
		}

		var got struct {
			Result struct {
				Tier      string   `json:"tier"`
				RiskFlags []string `json:"riskFlags"`
			} `json:"result"`
			RulesetName string `json:"rulesetName"`
			DecisionID  string `json:"decisionId"`
		}
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out.String())
		}
		if got.Result.Tier != "T3" {
			t.Errorf("tier = %q, want T3", got.Result.Tier)
		}
		if got.RulesetName != "default-tiering" {
			t.Errorf("rulesetName = %q", got.RulesetName)
		}
		if got.DecisionID != "" {
			t.Errorf("decisionId = %q without --persist", got.DecisionID)
		}
	})

	t.Run("persist", func(t *testing.T) {
		resetEvaluateFlags(t)
		evaluateFlags.persist = true
		cmd, out := newTestCommand()
		if err := runEvaluate(cmd, []string{file}); err != nil {
			t.Fatalf("runEvaluate() error = %v", err)
		}
		var got evaluationView
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.DecisionID == "" {
			t.Error("decisionId empty with --persist")
		}
	})

	t.Run("text from flags", func(t *testing.T) {
		resetEvaluateFlags(t)
		evaluateFlags.output = "text"
		evaluateFlags.set = []string{"vendorInvolved=true"}
		cmd, out := newTestCommand()
		if err := runEvaluate(cmd, nil); err != nil {
			t.Fatalf("runEvaluate() error = %v", err)
		}
		for _, want := range []string{"Tier:      T2", "third-party", "VendorDueDiligence", "Rationale:"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("explain", func(t *testing.T) {
		resetEvaluateFlags(t)
		evaluateFlags.output = "text"
		evaluateFlags.explain = true
		cmd, out := newTestCommand()
		if err := runEvaluate(cmd, []string{file}); err != nil {
			t.Fatalf("runEvaluate() error = %v", err)
		}
		if !strings.Contains(out.String(), "[x] automated-direct-decisioning") {
			t.Errorf("explain output:\n%s", out.String())
		}
	})

	t.Run("csv rejected", func(t *testing.T) {
		resetEvaluateFlags(t)
		evaluateFlags.output = "csv"
		cmd, _ := newTestCommand()
		if err := runEvaluate(cmd, []string{file}); err == nil {
			t.Error("runEvaluate() accepted csv output")
		}
	})

	t.Run("missing ruleset", func(t *testing.T) {
		useGlobals(t, "", dir+"/none")
		resetEvaluateFlags(t)
		cmd, _ := newTestCommand()
		if err := runEvaluate(cmd, []string{file}); err == nil {
			t.Error("runEvaluate() error = nil, want ruleset load failure")
		}
	})
}
