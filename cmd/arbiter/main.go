// Arbiter is a model-risk governance rules engine. It classifies AI and
// model use cases into risk tiers, decides whether each one meets the model
// definition, and lists the evidence artifacts the tier requires.
//
// Usage:
//
//	# Validate a ruleset
//	arbiter lint --rules rulesets/
//
//	# Evaluate a use case from a file
//	arbiter evaluate usecase.yaml
//
//	# Evaluate inline attributes and explain every rule
//	arbiter evaluate --set usageType=Decisioning --set vendorInvolved=true --explain
//
//	# Serve the HTTP API with hot reload and decision persistence
//	arbiter serve --config arbiter.yaml
//
//	# Export last month's decisions as CSV
//	arbiter decisions export --since 720h --format csv --out decisions.csv
package main

func main() {
	Execute()
}
