package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Template-related errors
var (
	ErrTemplateNotFound         = errors.New("template not found")
	ErrMissingRequiredParameter = errors.New("missing required parameter")
	ErrInvalidParameterType     = errors.New("invalid parameter type")
	ErrInvalidTemplate          = errors.New("invalid template")
)

// ParameterType represents the type of a template parameter
type ParameterType string

const (
	ParameterTypeString  ParameterType = "string"
	ParameterTypeNumber  ParameterType = "number"
	ParameterTypeBoolean ParameterType = "boolean"
)

// TemplateParameter is a value supplied when instantiating a template
type TemplateParameter struct {
	Name        string        `json:"name" yaml:"name"`
	Type        ParameterType `json:"type" yaml:"type"`
	Required    bool          `json:"required" yaml:"required"`
	Default     any           `json:"default,omitempty" yaml:"default,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorkflowTemplate is a definition with {{param}} placeholders
type WorkflowTemplate struct {
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []TemplateParameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Definition  Definition          `json:"definition" yaml:"definition"`
}

var placeholderRegex = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Templates returns the built-in workflow templates
func Templates() []*WorkflowTemplate {
	return []*WorkflowTemplate{
		translationTemplate(),
		summarizationTemplate(),
		chatTemplate(),
	}
}

// TemplateByName finds a built-in template
func TemplateByName(name string) (*WorkflowTemplate, error) {
	for _, t := range Templates() {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// Instantiate creates a definition named name from the template. Known
// parameters are substituted into step configs, the description and the
// tags; other placeholders such as {{input.text}} are left for the backend.
func (t *WorkflowTemplate) Instantiate(name string, params map[string]any) (*Definition, error) {
	if t == nil || t.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrInvalidTemplate)
	}
	if name == "" {
		return nil, errors.New("workflow name cannot be empty")
	}

	merged, err := t.mergeParams(params)
	if err != nil {
		return nil, err
	}

	def := t.Definition
	def.ID = ""
	def.Name = name
	def.Description = substituteString(def.Description, merged)
	def.Tags = make([]string, len(t.Definition.Tags))
	for i, tag := range t.Definition.Tags {
		def.Tags[i] = strings.ToLower(substituteString(tag, merged))
	}

	def.Definition.Steps = make([]Step, len(t.Definition.Definition.Steps))
	for i, s := range t.Definition.Definition.Steps {
		s.Config = substituteMap(s.Config, merged)
		if s.Position != nil {
			pos := *s.Position
			s.Position = &pos
		}
		def.Definition.Steps[i] = s
	}
	def.Definition.Connections = append([]Connection(nil), t.Definition.Definition.Connections...)
	def.Definition.Output = make(map[string]OutputRef, len(t.Definition.Definition.Output))
	for k, v := range t.Definition.Definition.Output {
		def.Definition.Output[k] = v
	}
	return &def, nil
}

func (t *WorkflowTemplate) mergeParams(provided map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(provided))
	for k, v := range provided {
		result[k] = v
	}
	for _, p := range t.Parameters {
		v, ok := result[p.Name]
		if !ok {
			if p.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingRequiredParameter, p.Name)
			}
			// unset optional parameters substitute as null
			result[p.Name] = p.Default
			continue
		}
		coerced, err := coerceParam(v, p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s: %v", ErrInvalidParameterType, p.Name, err)
		}
		result[p.Name] = coerced
	}
	return result, nil
}

// coerceParam accepts typed values and their string forms, as given on a
// command line
func coerceParam(v any, t ParameterType) (any, error) {
	s, isString := v.(string)
	switch t {
	case ParameterTypeNumber:
		switch n := v.(type) {
		case int, int64, float64:
			return n, nil
		}
		if isString {
			return strconv.ParseFloat(s, 64)
		}
	case ParameterTypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if isString {
			return strconv.ParseBool(s)
		}
	default:
		if isString {
			return s, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}

func substituteMap(m map[string]any, params map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = substituteValue(v, params)
	}
	return out
}

func substituteValue(v any, params map[string]any) any {
	switch t := v.(type) {
	case string:
		// a value that is exactly one placeholder keeps the parameter's type
		if m := placeholderRegex.FindStringSubmatch(t); m != nil && m[0] == t {
			if pv, ok := params[strings.TrimSpace(m[1])]; ok {
				return pv
			}
		}
		return substituteString(t, params)
	case map[string]any:
		return substituteMap(t, params)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = substituteValue(item, params)
		}
		return out
	default:
		return v
	}
}

func substituteString(s string, params map[string]any) string {
	return placeholderRegex.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		v, ok := params[name]
		if !ok {
			return match
		}
		if v == nil {
			return ""
		}
		return formatValue(v)
	})
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func singleAgentTemplate(name, description, stepName, prompt, outputKey string, params []TemplateParameter, tags []string, extra map[string]any) *WorkflowTemplate {
	cfg := map[string]any{
		KeyAgentID:    nil,
		"prompt":      prompt,
		"model":       "gpt-3.5-turbo",
		"temperature": 0.3,
		"max_tokens":  1000,
	}
	for k, v := range extra {
		cfg[k] = v
	}
	return &WorkflowTemplate{
		Name:        name,
		Description: description,
		Parameters:  params,
		Definition: Definition{
			Description: description,
			Tags:        tags,
			Version:     1,
			Definition: Body{
				Steps: []Step{{
					ID:       "step1",
					Name:     stepName,
					Type:     NodeTypeAgent.String(),
					Position: &Position{X: 300, Y: 200},
					Config:   cfg,
				}},
				Connections: []Connection{},
				Output: map[string]OutputRef{
					outputKey: {Source: "variables", Path: "step1.result"},
				},
			},
		},
	}
}

func translationTemplate() *WorkflowTemplate {
	return singleAgentTemplate(
		"translation",
		"Translate text to {{target_language}}",
		"Translate Text",
		"Translate the following text to {{target_language}}:\n\n{{input.text}}",
		"translation",
		[]TemplateParameter{{
			Name:        "target_language",
			Type:        ParameterTypeString,
			Default:     "Spanish",
			Description: "Language to translate into",
		}},
		[]string{"translation", "{{target_language}}"},
		map[string]any{"target_language": "{{target_language}}"},
	)
}

func summarizationTemplate() *WorkflowTemplate {
	return singleAgentTemplate(
		"summarization",
		"Summarize text",
		"Summarize Text",
		"Summarize the following text in a concise way:\n\n{{input.text}}",
		"summary",
		nil,
		[]string{"summarization"},
		nil,
	)
}

func chatTemplate() *WorkflowTemplate {
	return &WorkflowTemplate{
		Name:        "chat",
		Description: "Send the input to one agent and return its reply",
		Parameters: []TemplateParameter{{
			Name:        "agent_id",
			Type:        ParameterTypeString,
			Description: "Agent that answers",
		}},
		Definition: Definition{
			Description: "Send the input to one agent and return its reply",
			Tags:        []string{"chat"},
			Version:     1,
			Definition: Body{
				Steps: []Step{
					{ID: "input", Name: "Input", Type: NodeTypeInput.String(), Position: &Position{X: 100, Y: 200}, Config: map[string]any{}},
					{ID: "agent", Name: "Agent", Type: NodeTypeAgent.String(), Position: &Position{X: 350, Y: 200}, Config: map[string]any{KeyAgentID: "{{agent_id}}"}},
					{ID: "output", Name: "Output", Type: NodeTypeOutput.String(), Position: &Position{X: 600, Y: 200}, Config: map[string]any{}},
				},
				Connections: []Connection{
					{ID: EdgeIDFor("input", "agent"), From: "input", To: "agent"},
					{ID: EdgeIDFor("agent", "output"), From: "agent", To: "output"},
				},
				Output: DefaultOutput(),
			},
		},
	}
}
