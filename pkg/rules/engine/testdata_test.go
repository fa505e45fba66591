package engine

import (
	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// testRuleset is a small three-tier ruleset shaped like the shipped default.
func testRuleset() *ast.Ruleset {
	return &ast.Ruleset{
		Version:     "1.0",
		Name:        "test",
		DefaultTier: "T1",
		Hash:        "sha256:test",
		Tiers: []*ast.TierDefinition{
			{ID: "T1", Name: "Low", Description: "Limited impact.", Severity: 1},
			{ID: "T2", Name: "Medium", Description: "Moderate impact", Severity: 2},
			{ID: "T3", Name: "High", Description: "Material customer impact", Severity: 3},
		},
		Rules: []*ast.Rule{
			{
				ID:   "automated-direct-decisioning",
				Name: "Automated decisioning with direct customer impact",
				Tier: "T3",
				Conditions: ast.All(
					ast.Leaf("usageType", ast.OperatorEq, "Decisioning"),
					ast.Leaf("customerImpact", ast.OperatorEq, "Direct"),
					ast.Leaf("humanInLoop", ast.OperatorEq, "None"),
				),
				Effects: ast.Effects{
					AddRequiredArtifacts: []string{"ValidationPlan", "FallbackPlan"},
					AddRiskFlags:         []string{"No human oversight"},
					TriggeredCriteria:    "Fully automated decisions directly affect customers.",
				},
			},
			{
				ID:   "regulated-domain",
				Name: "Regulated domain",
				Tier: "T2",
				Conditions: ast.Any(
					ast.Leaf("regulatoryDomains", ast.OperatorContains, "Fair Lending"),
					ast.Leaf("regulatoryDomains", ast.OperatorContains, "Privacy"),
				),
				Effects: ast.Effects{
					AddRequiredArtifacts: []string{"FairnessAssessment"},
					AddRiskFlags:         []string{"Regulatory exposure"},
				},
			},
			{
				ID:         "third-party",
				Name:       "Third-party vendor",
				Tier:       "T2",
				Conditions: ast.Leaf("vendorInvolved", ast.OperatorEq, true),
				Effects: ast.Effects{
					AddRequiredArtifacts: []string{"VendorDueDiligence"},
					AddRiskFlags:         []string{"Regulatory exposure", "Vendor dependency"},
					TriggeredCriteria:    "A third-party vendor supplies the model.",
				},
			},
			{
				ID:         "genai",
				Name:       "Generative AI",
				Tier:       "T2",
				Conditions: ast.Leaf("aiType", ast.OperatorEq, "GenAI"),
				Effects: ast.Effects{
					AddRequiredArtifacts: []string{"HallucinationTestResults", "PromptInjectionTestResults"},
				},
			},
		},
		Criteria: []*ast.ModelCriterion{
			{ID: "genai-like", Conditions: ast.Leaf("aiType", ast.OperatorEq, "GenAI"), Result: ast.DeterminationModelLike},
			{ID: "owner-asserted", Conditions: ast.Leaf("modelDefinitionTrigger", ast.OperatorEq, true), Result: ast.DeterminationYes},
			{ID: "rules-based", Conditions: ast.Leaf("aiType", ast.OperatorEq, "Rules"), Result: ast.DeterminationModelLike},
		},
		Artifacts: []*ast.ArtifactDefinition{
			{ID: "UseCaseSummary", Name: "Use case summary", Category: "Governance", RequiredForTiers: []string{"T1", "T2", "T3"}},
			{ID: "MonitoringPlan", Name: "Monitoring plan", Category: "Operations", RequiredForTiers: []string{"T1", "T2", "T3"}},
			{ID: "RetentionPolicy", Name: "Retention policy", Category: "Data", RequiredForTiers: []string{"T1", "T2", "T3"}},
			{ID: "AccessControlMatrix", Name: "Access control matrix", Category: "Security", RequiredForTiers: []string{"T2", "T3"}},
			{ID: "ValidationPlan", Name: "Validation plan", Category: "Validation", RequiredForTiers: []string{"T3"}},
			{ID: "FallbackPlan", Name: "Fallback plan", Category: "Operations"},
			{ID: "FairnessAssessment", Name: "Fairness assessment", Category: "Validation"},
			{ID: "VendorDueDiligence", Name: "Vendor due diligence", Category: "Third party"},
			{ID: "HallucinationTestResults", Name: "Hallucination tests", Category: "Validation"},
			{ID: "PromptInjectionTestResults", Name: "Prompt injection tests", Category: "Validation"},
		},
	}
}

func newRecord(base usecase.Record, attachmentTypes ...string) *usecase.Record {
	attachments := make([]usecase.Attachment, len(attachmentTypes))
	for i, t := range attachmentTypes {
		attachments[i] = usecase.Attachment{Type: t}
	}
	r := usecase.New(base, attachments)
	return &r
}
