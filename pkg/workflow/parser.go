package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses a workflow definition from YAML bytes. The result is
// checked against the definition schema, so YAML and JSON files obey the
// same rules.
func ParseYAML(yamlBytes []byte) (*Definition, error) {
	if len(yamlBytes) == 0 {
		return nil, errors.New("empty YAML input")
	}

	var def Definition
	if err := yaml.Unmarshal(yamlBytes, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if def.Name == "" {
		return nil, errors.New("missing required field: name")
	}
	normalizeConfigs(&def)

	jsonBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to convert definition to JSON for validation: %w", err)
	}
	if err := ValidateDefinition(jsonBytes); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseFile reads a definition from a YAML or JSON file. JSON is a subset
// of YAML, so one decoder serves both.
func ParseFile(filePath string) (*Definition, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return ParseYAML(data)
}

// ToYAML renders a definition as YAML
func ToYAML(def *Definition) ([]byte, error) {
	if def == nil {
		return nil, errors.New("definition cannot be nil")
	}
	out, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return out, nil
}

// normalizeConfigs converts nested YAML maps into JSON-compatible values
func normalizeConfigs(def *Definition) {
	for i := range def.Definition.Steps {
		if cfg := def.Definition.Steps[i].Config; cfg != nil {
			def.Definition.Steps[i].Config = normalizeValue(cfg).(map[string]any)
		}
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
