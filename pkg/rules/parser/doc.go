// Package parser reads tiering rulesets from YAML.
//
// A ruleset may live in one file or be split across several (for example
// tiers.yaml, rules.yaml and artifacts.yaml); ParseFiles merges them in order.
// Scalar sections (version, name, description, defaultTier, tiers, evidence)
// may be defined once; rules, artifacts and modelDefinition lists are
// concatenated.
//
// # Document Shape
//
//	version: "1.0"
//	name: enterprise-tiering
//	defaultTier: T1
//	tiers:
//	  T1: {name: Low, description: Limited impact, severity: 1}
//	  T3: {name: High, description: Material customer impact, severity: 3}
//	modelDefinition:
//	  - id: owner-attested
//	    conditions: {field: modelDefinitionTrigger, operator: eq, value: true}
//	    result: "Yes"
//	rules:
//	  - id: automated-direct-impact
//	    name: Fully automated customer decisioning
//	    tier: T3
//	    conditions:
//	      all:
//	        - {field: usageType, operator: eq, value: Decisioning}
//	        - {field: humanInLoop, operator: eq, value: None}
//	    effects:
//	      addRequiredArtifacts: [ValidationPlan]
//	      addRiskFlags: [No human oversight]
//	      triggeredCriteria: Automated decisions with direct customer impact
//	artifacts:
//	  - id: ValidationPlan
//	    name: Validation plan
//	    category: Validation
//	    requiredForTiers: [T3]
//
// A condition is a leaf mapping (field, operator, value), a mapping with a
// single all or any key, or a bare list (implicit all). YAML anchors may be
// used to share condition fragments.
//
// Every mapping is checked against a closed set of keys; an unknown key is
// reported with the closest valid one. Numbers are normalized to float64.
package parser
