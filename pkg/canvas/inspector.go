package canvas

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// Inspector errors
var (
	ErrNothingSelected = errors.New("nothing selected")
	ErrUnknownField    = errors.New("unknown field")
)

// FieldKind says how a field is edited
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldMultiline
	FieldSelect
)

// Field is one row of the property editor
type Field struct {
	Key      string
	Label    string
	Kind     FieldKind
	Value    string
	Options  []string
	Required bool
}

// FieldError reports an invalid value for a field
type FieldError struct {
	Key     string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

const (
	FieldName          = "name"
	FieldSourceOutput  = "source_output"
	FieldTargetInput   = "target_input"
	FieldEdgeCondType  = "condition_type"
	FieldEdgeCondition = "condition"
)

var edgeConditionOptions = []string{"", workflow.EdgeConditionAlways, workflow.EdgeConditionIf, workflow.EdgeConditionUnless}

// Inspector builds and applies the property form of the selected item
type Inspector struct {
	Graph  *workflow.Graph
	Agents []workflow.Agent
}

// Fields returns the form for sel
func (in Inspector) Fields(sel Selection) []Field {
	switch sel.Kind() {
	case SelectNode:
		id, _ := sel.Node()
		if n := in.Graph.Node(id); n != nil {
			return in.nodeFields(n)
		}
	case SelectEdge:
		id, _ := sel.Edge()
		if e := in.Graph.Edge(id); e != nil {
			return edgeFields(e)
		}
	}
	return nil
}

func (in Inspector) nodeFields(n *workflow.Node) []Field {
	fields := []Field{{Key: FieldName, Label: "Name", Value: n.Name, Required: true}}

	switch cfg := n.Config.(type) {
	case *workflow.InputConfig:
		fields = append(fields, Field{Key: workflow.KeyPlaceholder, Label: "Placeholder", Value: cfg.Placeholder})
	case *workflow.AgentConfig:
		agent := ""
		if cfg.AgentID != nil {
			agent = string(*cfg.AgentID)
		}
		options := []string{""}
		for _, a := range in.Agents {
			options = append(options, string(a.ID))
		}
		fields = append(fields,
			Field{Key: workflow.KeyAgentID, Label: "Agent", Kind: FieldSelect, Value: agent, Options: options, Required: true},
			Field{Key: workflow.KeyInstructions, Label: "Instructions", Kind: FieldMultiline, Value: cfg.Instructions},
		)
	case *workflow.TransformConfig:
		fields = append(fields, Field{Key: workflow.KeyCode, Label: "Transformation Code", Kind: FieldMultiline, Value: cfg.Code, Required: true})
	case *workflow.APIConfig:
		fields = append(fields,
			Field{Key: workflow.KeyURL, Label: "URL", Value: cfg.URL, Required: true},
			Field{Key: workflow.KeyMethod, Label: "Method", Kind: FieldSelect, Value: cfg.Method, Options: workflow.APIMethods, Required: true},
			Field{Key: workflow.KeyBody, Label: "Request Body", Kind: FieldMultiline, Value: cfg.Body},
		)
	case *workflow.ConditionConfig:
		ops := workflow.ComparisonOperators
		if cfg.ConditionType == "logical" {
			ops = workflow.LogicalOperators
		}
		fields = append(fields,
			Field{Key: workflow.KeyConditionType, Label: "Condition Type", Kind: FieldSelect, Value: cfg.ConditionType, Options: workflow.ConditionTypes, Required: true},
			Field{Key: workflow.KeyLeft, Label: "Left Operand", Value: cfg.Left, Required: true},
			Field{Key: workflow.KeyOperator, Label: "Operator", Kind: FieldSelect, Value: cfg.Operator, Options: ops, Required: true},
			Field{Key: workflow.KeyRight, Label: "Right Operand", Value: cfg.Right, Required: cfg.Operator != "not"},
		)
	case *workflow.OutputConfig:
		// name only
	}
	return fields
}

func edgeFields(e *workflow.Edge) []Field {
	return []Field{
		{Key: FieldSourceOutput, Label: "Source Output", Value: e.SourceOutput},
		{Key: FieldTargetInput, Label: "Target Input", Value: e.TargetInput},
		{Key: FieldEdgeCondType, Label: "Condition Type", Kind: FieldSelect, Value: e.ConditionType, Options: edgeConditionOptions},
		{Key: FieldEdgeCondition, Label: "Condition", Value: e.Condition},
	}
}

// Set validates value for field key of the selected item and writes it
// back. Invalid values leave the graph unchanged.
func (in Inspector) Set(sel Selection, key, value string) error {
	switch sel.Kind() {
	case SelectNode:
		id, _ := sel.Node()
		n := in.Graph.Node(id)
		if n == nil {
			return ErrNothingSelected
		}
		return in.setNodeField(n, key, value)
	case SelectEdge:
		id, _ := sel.Edge()
		e := in.Graph.Edge(id)
		if e == nil {
			return ErrNothingSelected
		}
		return in.setEdgeField(e, key, value)
	default:
		return ErrNothingSelected
	}
}

func (in Inspector) setNodeField(n *workflow.Node, key, value string) error {
	if key == FieldName {
		value = strings.TrimSpace(value)
		if value == "" {
			return &FieldError{Key: key, Message: "name is required"}
		}
		in.Graph.RenameNode(n.ID, value)
		return nil
	}

	if !hasField(in.nodeFields(n), key) {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}

	patch := workflow.ConfigPatch{key: value}
	switch cfg := n.Config.(type) {
	case *workflow.AgentConfig:
		if key == workflow.KeyAgentID {
			if value == "" {
				patch[key] = nil
			} else if len(in.Agents) > 0 && !in.knownAgent(workflow.AgentID(value)) {
				return &FieldError{Key: key, Message: fmt.Sprintf("unknown agent %q", value)}
			}
		}
		if key == workflow.KeyInstructions {
			if err := workflow.ValidateTemplateSyntax(value); err != nil {
				return &FieldError{Key: key, Message: err.Error()}
			}
		}
	case *workflow.TransformConfig:
		if strings.TrimSpace(value) == "" {
			return &FieldError{Key: key, Message: "transformation code is required"}
		}
	case *workflow.APIConfig:
		switch key {
		case workflow.KeyURL:
			u, err := url.Parse(value)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return &FieldError{Key: key, Message: fmt.Sprintf("invalid URL %q", value)}
			}
		case workflow.KeyMethod:
			value = strings.ToUpper(value)
			if !slices.Contains(workflow.APIMethods, value) {
				return &FieldError{Key: key, Message: fmt.Sprintf("method must be one of %s", strings.Join(workflow.APIMethods, ", "))}
			}
			patch[key] = value
		}
	case *workflow.ConditionConfig:
		if err := checkCondition(cfg, key, value); err != nil {
			return err
		}
	}

	in.Graph.UpdateNodeConfig(n.ID, patch)
	// switching between comparison and logical resets an operator that no
	// longer applies
	if cc, ok := in.Graph.Node(n.ID).Config.(*workflow.ConditionConfig); ok && key == workflow.KeyConditionType {
		ops := workflow.ComparisonOperators
		if cc.ConditionType == "logical" {
			ops = workflow.LogicalOperators
		}
		if !slices.Contains(ops, cc.Operator) {
			in.Graph.UpdateNodeConfig(n.ID, workflow.ConfigPatch{workflow.KeyOperator: ops[0]})
		}
	}
	return nil
}

// checkCondition validates one condition field against the config it would
// produce, including an expression compile check once operands are present
func checkCondition(cfg *workflow.ConditionConfig, key, value string) error {
	next := *cfg
	switch key {
	case workflow.KeyConditionType:
		if !slices.Contains(workflow.ConditionTypes, value) {
			return &FieldError{Key: key, Message: fmt.Sprintf("condition type must be one of %s", strings.Join(workflow.ConditionTypes, ", "))}
		}
		return nil
	case workflow.KeyOperator:
		ops := workflow.ComparisonOperators
		if cfg.ConditionType == "logical" {
			ops = workflow.LogicalOperators
		}
		if !slices.Contains(ops, value) {
			return &FieldError{Key: key, Message: fmt.Sprintf("operator must be one of %s", strings.Join(ops, ", "))}
		}
		next.Operator = value
	case workflow.KeyLeft:
		next.Left = value
	case workflow.KeyRight:
		next.Right = value
	}

	if next.Left == "" || (next.Right == "" && next.Operator != "not") {
		return nil
	}
	if err := workflow.ValidateExpressionSyntax(next.Expression()); err != nil {
		return &FieldError{Key: key, Message: err.Error()}
	}
	return nil
}

func (in Inspector) setEdgeField(e *workflow.Edge, key, value string) error {
	var patch workflow.EdgePatch
	switch key {
	case FieldSourceOutput:
		patch.SourceOutput = &value
	case FieldTargetInput:
		patch.TargetInput = &value
	case FieldEdgeCondType:
		if !slices.Contains(edgeConditionOptions, value) {
			return &FieldError{Key: key, Message: "condition type must be one of always, if, unless"}
		}
		patch.ConditionType = &value
	case FieldEdgeCondition:
		if value != "" {
			if err := workflow.ValidateExpressionSyntax(value); err != nil {
				return &FieldError{Key: key, Message: err.Error()}
			}
		}
		patch.Condition = &value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	in.Graph.UpdateEdge(e.ID, patch)
	return nil
}

func (in Inspector) knownAgent(id workflow.AgentID) bool {
	for _, a := range in.Agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

func hasField(fields []Field, key string) bool {
	for _, f := range fields {
		if f.Key == key {
			return true
		}
	}
	return false
}
