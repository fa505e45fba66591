// Package usecase defines the flattened use-case record that rulesets are
// evaluated against.
//
// # Record
//
// Record is a closed struct: every attribute a rule may reference is an
// explicit field. Conditions address fields by name through a lookup table
// (LookupField, Record.Value), so a ruleset that names an unknown field is
// rejected when it is validated instead of silently reading nothing at
// evaluation time.
//
// # Derived Fields
//
// hasAttachments, attachmentTypes and attachmentCount are computed from the
// attachment list by New and FromAttributes. They cannot be set directly.
//
// # Loose Input
//
// FromAttributes accepts the map-shaped data produced by storage layers and
// JSON payloads and coerces each value to the field's type:
//
//	rec, err := usecase.FromAttributes(map[string]any{
//	    "usageType":         "Decisioning",
//	    "containsPii":       "true",
//	    "regulatoryDomains": "Fair Lending, Privacy",
//	}, []usecase.Attachment{{Type: "Vendor doc"}})
package usecase
