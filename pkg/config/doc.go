// Package config loads, validates and holds the arbiter configuration.
//
// # Loading
//
// Configuration is YAML decoded on top of NewDefaultConfig, so any field a
// file omits keeps its default:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("arbiter.yaml")
//
// Unknown keys are rejected.
//
// # Environment Variable Overrides
//
// Environment variables named ARBITER_SECTION_FIELD take precedence over the
// file, for example:
//
//   - ARBITER_RULES_PATH overrides rules.path
//   - ARBITER_DECISIONS_BACKEND overrides decisions.backend
//   - ARBITER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Values that fail to parse are ignored.
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors
// addressed by dotted YAML path ("decisions.sqlite.driver").
//
// Packages take the sub-config they need (ServerConfig, RulesConfig, ...)
// rather than the whole Config.
package config
