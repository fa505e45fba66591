package usecase

import "strings"

// Record is the flattened projection of a use case that rules are evaluated against.
// It is an immutable snapshot per evaluation; callers build it with New or
// FromAttributes so the derived attachment fields are always consistent.
type Record struct {
	Title                   string `json:"title,omitempty" yaml:"title,omitempty"`
	BusinessLine            string `json:"businessLine,omitempty" yaml:"businessLine,omitempty"`
	Description             string `json:"description,omitempty" yaml:"description,omitempty"`
	AIType                  string `json:"aiType,omitempty" yaml:"aiType,omitempty"`
	UsageType               string `json:"usageType,omitempty" yaml:"usageType,omitempty"`
	CustomerImpact          string `json:"customerImpact,omitempty" yaml:"customerImpact,omitempty"`
	HumanInLoop             string `json:"humanInLoop,omitempty" yaml:"humanInLoop,omitempty"`
	Deployment              string `json:"deployment,omitempty" yaml:"deployment,omitempty"`
	TrainingDataSource      string `json:"trainingDataSource,omitempty" yaml:"trainingDataSource,omitempty"`
	ChangeFrequency         string `json:"changeFrequency,omitempty" yaml:"changeFrequency,omitempty"`
	MonitoringCadence       string `json:"monitoringCadence,omitempty" yaml:"monitoringCadence,omitempty"`
	VendorName              string `json:"vendorName,omitempty" yaml:"vendorName,omitempty"`
	HumanReviewProcess      string `json:"humanReviewProcess,omitempty" yaml:"humanReviewProcess,omitempty"`
	IncidentResponseContact string `json:"incidentResponseContact,omitempty" yaml:"incidentResponseContact,omitempty"`
	Status                  string `json:"status,omitempty" yaml:"status,omitempty"`

	VendorInvolved          bool `json:"vendorInvolved" yaml:"vendorInvolved"`
	ContainsPII             bool `json:"containsPii" yaml:"containsPii"`
	ContainsNPI             bool `json:"containsNpi" yaml:"containsNpi"`
	SensitiveAttributesUsed bool `json:"sensitiveAttributesUsed" yaml:"sensitiveAttributesUsed"`
	RetentionPolicyDefined  bool `json:"retentionPolicyDefined" yaml:"retentionPolicyDefined"`
	LoggingRequired         bool `json:"loggingRequired" yaml:"loggingRequired"`
	AccessControlsDefined   bool `json:"accessControlsDefined" yaml:"accessControlsDefined"`
	ModelDefinitionTrigger  bool `json:"modelDefinitionTrigger" yaml:"modelDefinitionTrigger"`
	ExplainabilityRequired  bool `json:"explainabilityRequired" yaml:"explainabilityRequired"`
	Retraining              bool `json:"retraining" yaml:"retraining"`
	OverridesAllowed        bool `json:"overridesAllowed" yaml:"overridesAllowed"`
	FallbackPlanDefined     bool `json:"fallbackPlanDefined" yaml:"fallbackPlanDefined"`

	RegulatoryDomains []string `json:"regulatoryDomains" yaml:"regulatoryDomains"`

	// Derived from the attachment list by New.
	HasAttachments  bool     `json:"hasAttachments" yaml:"hasAttachments"`
	AttachmentTypes []string `json:"attachmentTypes" yaml:"attachmentTypes"`
	AttachmentCount int      `json:"attachmentCount" yaml:"attachmentCount"`
}

// Attachment is a supporting document stored alongside a use case.
// Only its presence and coarse type are visible to the rules engine.
type Attachment struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	FileName string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
	Type     string `json:"type" yaml:"type"`
}

// New returns a copy of base with the derived attachment fields computed from
// attachments. Attachment types are deduplicated in first-seen order and blank
// types are ignored.
func New(base Record, attachments []Attachment) Record {
	r := base
	r.RegulatoryDomains = cloneStrings(base.RegulatoryDomains)
	r.AttachmentCount = len(attachments)
	r.HasAttachments = len(attachments) > 0
	r.AttachmentTypes = make([]string, 0, len(attachments))

	seen := make(map[string]bool, len(attachments))
	for _, a := range attachments {
		t := strings.TrimSpace(a.Type)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		r.AttachmentTypes = append(r.AttachmentTypes, t)
	}
	return r
}

// HasAttachmentType reports whether an attachment of the given type was supplied.
func (r *Record) HasAttachmentType(t string) bool {
	for _, at := range r.AttachmentTypes {
		if at == t {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
