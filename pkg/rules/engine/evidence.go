package engine

import (
	"strings"

	"keystone-mrm/arbiter/pkg/rules/ast"
	"keystone-mrm/arbiter/pkg/usecase"
)

// VendorDocAttachmentType is the attachment type that evidences vendor due diligence.
const VendorDocAttachmentType = "Vendor doc"

// NoMonitoringCadence is the cadence value that means no monitoring is
// planned. It is matched exactly.
const NoMonitoringCadence = "None"

// evidenceCheck reports whether a record structurally satisfies an artifact.
type evidenceCheck func(r *usecase.Record) bool

// structuralChecks are the named per-artifact checks against record fields.
var structuralChecks = map[string]evidenceCheck{
	"RetentionPolicy":     func(r *usecase.Record) bool { return r.RetentionPolicyDefined },
	"AccessControlMatrix": func(r *usecase.Record) bool { return r.AccessControlsDefined },
	"FallbackPlan":        func(r *usecase.Record) bool { return r.FallbackPlanDefined },
	"MonitoringPlan": func(r *usecase.Record) bool {
		cadence := strings.TrimSpace(r.MonitoringCadence)
		return cadence != "" && cadence != NoMonitoringCadence
	},
	"VendorDueDiligence": func(r *usecase.Record) bool {
		return !r.VendorInvolved || r.HasAttachmentType(VendorDocAttachmentType)
	},
}

// attachmentBacked lists artifacts that can only be evidenced by an attached
// document.
var attachmentBacked = map[string]bool{
	"ValidationPlan":             true,
	"ModelCard":                  true,
	"FairnessAssessment":         true,
	"BiasTestingResults":         true,
	"GenAIEvaluationReport":      true,
	"GuardrailTestResults":       true,
	"HallucinationTestResults":   true,
	"PromptInjectionTestResults": true,
}

// HasStructuralCheck reports whether artifactID is checked against record fields.
func HasStructuralCheck(artifactID string) bool {
	_, ok := structuralChecks[artifactID]
	return ok
}

// IsAttachmentBacked reports whether artifactID needs an attached document,
// either because it is on the built-in list or because its definition names
// evidence attachment types.
func IsAttachmentBacked(artifactID string, def *ast.ArtifactDefinition) bool {
	if attachmentBacked[artifactID] {
		return true
	}
	return def != nil && len(def.EvidenceAttachmentTypes) > 0
}

// DetectMissingEvidence returns the required artifacts that the record does
// not evidence, in the order of required. An artifact is missing when its
// structural check fails, or when it is attachment-backed and the record has
// no attachments. With Evidence.MatchAttachmentTypes set, an artifact that
// declares evidence attachment types also needs an attachment of one of
// those types. rs may be nil.
func DetectMissingEvidence(record *usecase.Record, required []string, rs *ast.Ruleset) []string {
	missing := newOrderedSet()
	if record == nil {
		record = &usecase.Record{}
	}

	for _, id := range required {
		if check, ok := structuralChecks[id]; ok && !check(record) {
			missing.add(id)
			continue
		}

		var def *ast.ArtifactDefinition
		if rs != nil {
			def, _ = rs.Artifact(id)
		}
		if !IsAttachmentBacked(id, def) {
			continue
		}
		if !record.HasAttachments {
			missing.add(id)
			continue
		}
		if rs != nil && rs.Evidence.MatchAttachmentTypes && def != nil && len(def.EvidenceAttachmentTypes) > 0 {
			if !hasAnyAttachmentType(record, def.EvidenceAttachmentTypes) {
				missing.add(id)
			}
		}
	}

	return missing.items
}

func hasAnyAttachmentType(record *usecase.Record, types []string) bool {
	for _, t := range types {
		if record.HasAttachmentType(t) {
			return true
		}
	}
	return false
}
