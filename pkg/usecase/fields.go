package usecase

import (
	"sort"

	"github.com/spf13/cast"
)

// FieldType is the value type a record field resolves to.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeBool      FieldType = "boolean"
	TypeNumber    FieldType = "number"
	TypeStringSet FieldType = "list"
)

// FieldInfo describes one named field of Record that conditions may reference.
type FieldInfo struct {
	Name        string    // Field name as written in rulesets (e.g., "usageType")
	Type        FieldType // Value type
	Description string    // Human-readable description
	Derived     bool      // Computed from attachments, not supplied by callers

	get func(r *Record) any
	set func(r *Record, v any) error // nil for derived fields
}

// Get returns the field's value on r. Strings, booleans, float64 numbers and
// []string sets are the only shapes returned.
func (f *FieldInfo) Get(r *Record) any {
	return f.get(r)
}

// fields is the closed table of condition-addressable record fields.
var fields = map[string]*FieldInfo{
	"title":                   stringField("title", "Use case title", func(r *Record) *string { return &r.Title }),
	"businessLine":            stringField("businessLine", "Owning business line", func(r *Record) *string { return &r.BusinessLine }),
	"description":             stringField("description", "Free-text description", func(r *Record) *string { return &r.Description }),
	"aiType":                  stringField("aiType", "AI technique (e.g., 'GenAI', 'Traditional ML')", func(r *Record) *string { return &r.AIType }),
	"usageType":               stringField("usageType", "How outputs are used (e.g., 'Decisioning', 'Informational')", func(r *Record) *string { return &r.UsageType }),
	"customerImpact":          stringField("customerImpact", "Customer impact (e.g., 'Direct', 'Indirect', 'None')", func(r *Record) *string { return &r.CustomerImpact }),
	"humanInLoop":             stringField("humanInLoop", "Human oversight level (e.g., 'Full', 'Partial', 'None')", func(r *Record) *string { return &r.HumanInLoop }),
	"deployment":              stringField("deployment", "Deployment model (e.g., 'Internal', 'Vendor hosted')", func(r *Record) *string { return &r.Deployment }),
	"trainingDataSource":      stringField("trainingDataSource", "Origin of training data", func(r *Record) *string { return &r.TrainingDataSource }),
	"changeFrequency":         stringField("changeFrequency", "How often the model changes", func(r *Record) *string { return &r.ChangeFrequency }),
	"monitoringCadence":       stringField("monitoringCadence", "Performance monitoring cadence (e.g., 'Monthly', 'None')", func(r *Record) *string { return &r.MonitoringCadence }),
	"vendorName":              stringField("vendorName", "Third-party vendor name", func(r *Record) *string { return &r.VendorName }),
	"humanReviewProcess":      stringField("humanReviewProcess", "Description of human review", func(r *Record) *string { return &r.HumanReviewProcess }),
	"incidentResponseContact": stringField("incidentResponseContact", "Incident response owner", func(r *Record) *string { return &r.IncidentResponseContact }),
	"status":                  stringField("status", "Lifecycle status", func(r *Record) *string { return &r.Status }),

	"vendorInvolved":          boolField("vendorInvolved", "A third-party vendor supplies the model", func(r *Record) *bool { return &r.VendorInvolved }),
	"containsPii":             boolField("containsPii", "Processes personally identifiable information", func(r *Record) *bool { return &r.ContainsPII }),
	"containsNpi":             boolField("containsNpi", "Processes non-public personal information", func(r *Record) *bool { return &r.ContainsNPI }),
	"sensitiveAttributesUsed": boolField("sensitiveAttributesUsed", "Uses protected or sensitive attributes", func(r *Record) *bool { return &r.SensitiveAttributesUsed }),
	"retentionPolicyDefined":  boolField("retentionPolicyDefined", "A data retention policy is defined", func(r *Record) *bool { return &r.RetentionPolicyDefined }),
	"loggingRequired":         boolField("loggingRequired", "Input/output logging is required", func(r *Record) *bool { return &r.LoggingRequired }),
	"accessControlsDefined":   boolField("accessControlsDefined", "Access controls are defined", func(r *Record) *bool { return &r.AccessControlsDefined }),
	"modelDefinitionTrigger":  boolField("modelDefinitionTrigger", "Owner asserts the use case meets the model definition", func(r *Record) *bool { return &r.ModelDefinitionTrigger }),
	"explainabilityRequired":  boolField("explainabilityRequired", "Outputs must be explainable", func(r *Record) *bool { return &r.ExplainabilityRequired }),
	"retraining":              boolField("retraining", "The model is periodically retrained", func(r *Record) *bool { return &r.Retraining }),
	"overridesAllowed":        boolField("overridesAllowed", "Users may override outputs", func(r *Record) *bool { return &r.OverridesAllowed }),
	"fallbackPlanDefined":     boolField("fallbackPlanDefined", "A fallback plan is defined", func(r *Record) *bool { return &r.FallbackPlanDefined }),

	"regulatoryDomains": setField("regulatoryDomains", "Applicable regulatory domains", false, func(r *Record) *[]string { return &r.RegulatoryDomains }),

	"hasAttachments": {
		Name:        "hasAttachments",
		Type:        TypeBool,
		Description: "At least one attachment was supplied",
		Derived:     true,
		get:         func(r *Record) any { return r.HasAttachments },
	},
	"attachmentTypes": setField("attachmentTypes", "Distinct attachment types supplied", true, func(r *Record) *[]string { return &r.AttachmentTypes }),
	"attachmentCount": {
		Name:        "attachmentCount",
		Type:        TypeNumber,
		Description: "Number of attachments supplied",
		Derived:     true,
		get:         func(r *Record) any { return float64(r.AttachmentCount) },
	},
}

func stringField(name, desc string, ptr func(*Record) *string) *FieldInfo {
	return &FieldInfo{
		Name:        name,
		Type:        TypeString,
		Description: desc,
		get:         func(r *Record) any { return *ptr(r) },
		set: func(r *Record, v any) error {
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			*ptr(r) = s
			return nil
		},
	}
}

func boolField(name, desc string, ptr func(*Record) *bool) *FieldInfo {
	return &FieldInfo{
		Name:        name,
		Type:        TypeBool,
		Description: desc,
		get:         func(r *Record) any { return *ptr(r) },
		set: func(r *Record, v any) error {
			b, err := cast.ToBoolE(v)
			if err != nil {
				return err
			}
			*ptr(r) = b
			return nil
		},
	}
}

func setField(name, desc string, derived bool, ptr func(*Record) *[]string) *FieldInfo {
	f := &FieldInfo{
		Name:        name,
		Type:        TypeStringSet,
		Description: desc,
		Derived:     derived,
		get: func(r *Record) any {
			v := *ptr(r)
			if v == nil {
				return []string{}
			}
			return v
		},
	}
	if !derived {
		f.set = func(r *Record, v any) error {
			items, err := toStringSet(v)
			if err != nil {
				return err
			}
			*ptr(r) = items
			return nil
		}
	}
	return f
}

// LookupField returns the field with the given name.
func LookupField(name string) (*FieldInfo, bool) {
	f, ok := fields[name]
	return f, ok
}

// FieldNames returns all field names in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns all fields sorted by name.
func Fields() []*FieldInfo {
	out := make([]*FieldInfo, 0, len(fields))
	for _, name := range FieldNames() {
		out = append(out, fields[name])
	}
	return out
}

// Value resolves a named field on the record. The second return value is
// false for names outside the field table.
func (r *Record) Value(name string) (any, bool) {
	f, ok := fields[name]
	if !ok {
		return nil, false
	}
	return f.get(r), true
}
