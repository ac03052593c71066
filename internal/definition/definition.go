// Package definition loads and validates flexkit.yaml, the declarative
// description of which configuration sources to build and in what order.
package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	fkerrors "github.com/saruyev/flexkit/internal/errors"
)

// Definition represents the flexkit.yaml structure. Source order matters:
// later sources override earlier ones key by key.
type Definition struct {
	Version int                `yaml:"version"`
	Sources []SourceDefinition `yaml:"sources"`
}

// SourceDefinition describes one configuration source. Shared options are
// named fields; source-specific settings land in the inline map and are
// interpreted by the source factory.
type SourceDefinition struct {
	Type           string                 `yaml:"type"`
	Optional       bool                   `yaml:"optional,omitempty"`
	ReloadInterval string                 `yaml:"reload_interval,omitempty"`
	ProcessJSON    bool                   `yaml:"process_json,omitempty"`
	JSONFilters    []string               `yaml:"json_filters,omitempty"`
	Config         map[string]interface{} `yaml:",inline"`
}

// ReloadDuration parses the reload interval. Zero means no reloading.
func (d SourceDefinition) ReloadDuration() (time.Duration, error) {
	if d.ReloadInterval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(d.ReloadInterval)
	if err != nil {
		return 0, fkerrors.ConfigError{
			Field:      "reload_interval",
			Value:      d.ReloadInterval,
			Message:    "invalid duration",
			Suggestion: "Use Go duration syntax, e.g. 30s, 5m, 1h",
		}
	}
	return interval, nil
}

// String returns a string setting from the inline config.
func (d SourceDefinition) String(key string) string {
	if value, ok := d.Config[key].(string); ok {
		return value
	}
	return ""
}

// Bool returns a boolean setting from the inline config.
func (d SourceDefinition) Bool(key string) bool {
	if value, ok := d.Config[key].(bool); ok {
		return value
	}
	return false
}

// StringSlice returns a string list setting from the inline config.
func (d SourceDefinition) StringSlice(key string) []string {
	raw, ok := d.Config[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// Load reads, validates and parses a flexkit.yaml file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fkerrors.ConfigError{
				Field:      "path",
				Value:      path,
				Message:    "configuration file not found",
				Suggestion: "Create a flexkit.yaml listing the sources to load",
			}
		}
		return nil, fkerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}
	return Parse(data)
}

// Parse validates and parses flexkit.yaml content.
func Parse(data []byte) (*Definition, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fkerrors.ConfigError{
			Message:    "Invalid YAML in configuration file",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	for _, src := range def.Sources {
		if _, err := src.ReloadDuration(); err != nil {
			return nil, err
		}
	}

	return &def, nil
}

// validateSchema checks the document shape against the embedded JSON schema.
// YAML is converted to JSON first since the validator speaks JSON only.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fkerrors.ConfigError{
			Message:    "Invalid YAML in configuration file",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fkerrors.ConfigError{
			Message:    fmt.Sprintf("configuration does not match the expected shape:\n  - %s", strings.Join(errorMessages, "\n  - ")),
			Suggestion: "See the documented flexkit.yaml format",
		}
	}

	return nil
}

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "sources"],
  "properties": {
    "version": {"type": "integer", "enum": [1]},
    "sources": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "optional": {"type": "boolean"},
          "reload_interval": {"type": "string"},
          "process_json": {"type": "boolean"},
          "json_filters": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`
