package ast

// Determination is the outcome of the model-definition test.
type Determination string

const (
	DeterminationYes       Determination = "Yes"
	DeterminationNo        Determination = "No"
	DeterminationModelLike Determination = "Model-like"
)

// IsValid reports whether d is one of the three determinations.
func (d Determination) IsValid() bool {
	switch d {
	case DeterminationYes, DeterminationNo, DeterminationModelLike:
		return true
	}
	return false
}

// Ruleset is the complete, immutable evaluation configuration: tiers, rules,
// model-definition criteria and the artifact table. A Ruleset must not be
// mutated once it has been handed to the engine.
type Ruleset struct {
	Version     string
	Name        string
	Description string
	DefaultTier string
	Tiers       []*TierDefinition // Declaration order
	Rules       []*Rule           // Evaluation order
	Criteria    []*ModelCriterion // Evaluation order
	Artifacts   []*ArtifactDefinition
	Evidence    EvidenceSettings

	SourceFiles []string // Files the ruleset was assembled from
	Hash        string   // sha256 of the source bytes ("sha256:<hex>")
	Location    Location
}

// TierDefinition is an ordinal risk tier. Severity totally orders tiers.
type TierDefinition struct {
	ID          string
	Name        string
	Description string
	Severity    int
	Location    Location
}

// Rule maps a condition tree to a tier and effects.
type Rule struct {
	ID          string
	Name        string
	Description string
	Tier        string
	Conditions  *Condition
	Effects     Effects
	Location    Location
}

// Effects are applied when a rule triggers.
type Effects struct {
	AddRequiredArtifacts []string
	AddRiskFlags         []string
	TriggeredCriteria    string
}

// ArtifactDefinition describes a documentation or evidence item.
type ArtifactDefinition struct {
	ID                string
	Name              string
	Category          string
	Description       string
	OwnerRole         string
	WhatGoodLooksLike string
	RequiredForTiers  []string

	// EvidenceAttachmentTypes lists attachment types that evidence this
	// artifact. Declaring any makes the artifact attachment-backed.
	EvidenceAttachmentTypes []string

	Location Location
}

// RequiredFor reports whether the artifact is required for the given tier.
func (a *ArtifactDefinition) RequiredFor(tier string) bool {
	for _, t := range a.RequiredForTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// ModelCriterion is one entry of the model-definition test.
type ModelCriterion struct {
	ID          string
	Description string
	Conditions  *Condition
	Result      Determination
	Location    Location
}

// EvidenceSettings tunes missing-evidence detection.
type EvidenceSettings struct {
	// MatchAttachmentTypes requires an attachment of one of an artifact's
	// EvidenceAttachmentTypes instead of accepting any attachment.
	MatchAttachmentTypes bool
}

// Tier returns the tier with the given id.
func (rs *Ruleset) Tier(id string) (*TierDefinition, bool) {
	for _, t := range rs.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Severity returns the severity of the tier with the given id.
func (rs *Ruleset) Severity(id string) (int, bool) {
	t, ok := rs.Tier(id)
	if !ok {
		return 0, false
	}
	return t.Severity, true
}

// Artifact returns the artifact definition with the given id.
func (rs *Ruleset) Artifact(id string) (*ArtifactDefinition, bool) {
	for _, a := range rs.Artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Rule returns the rule with the given id.
func (rs *Ruleset) Rule(id string) (*Rule, bool) {
	for _, r := range rs.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// TierIDs returns tier ids in declaration order.
func (rs *Ruleset) TierIDs() []string {
	ids := make([]string, len(rs.Tiers))
	for i, t := range rs.Tiers {
		ids[i] = t.ID
	}
	return ids
}

// ArtifactIDs returns artifact ids in declaration order.
func (rs *Ruleset) ArtifactIDs() []string {
	ids := make([]string, len(rs.Artifacts))
	for i, a := range rs.Artifacts {
		ids[i] = a.ID
	}
	return ids
}
