package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema is a JSON Schema sanity check layered on top of Validate's
// hand-written field checks: it catches the class of mistake mapstructure
// itself won't (wrong JSON type for a field, a negative jobs count, unknown
// log level spelling) before the looser Go-side validation
// ever runs.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "root": {"type": "string"},
    "autosplit": {"type": "boolean"},
    "timing": {"type": "boolean"},
    "trace_recalc": {"type": "boolean"},
    "outline": {"type": "boolean"},
    "incremental": {"type": "boolean"},
    "jobs": {"type": "integer", "minimum": 0},
    "parse_statements": {"type": "boolean"},
    "observability": {
      "type": "object",
      "properties": {
        "service_name": {"type": "string"},
        "log_level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "log_json": {"type": "boolean"},
        "metrics_addr": {"type": "string"},
        "otlp_endpoint": {"type": "string"},
        "otlp_insecure": {"type": "boolean"}
      }
    }
  }
}`

var compiledSchema *gojsonschema.Schema

func schemaLoader() (*gojsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(configSchema))
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	compiledSchema = s

	return s, nil
}

// validateSchema checks raw (the settings map viper produced via AllSettings,
// before Unmarshal) against configSchema.
func validateSchema(raw map[string]interface{}) error {
	schema, err := schemaLoader()
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate config against schema: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		return fmt.Errorf("config schema violation: %s", errs[0].String())
	}

	return nil
}
