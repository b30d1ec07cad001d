package workflow

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Config is the type-specific settings of a node. It is a closed sum type:
// the only implementations are the *XxxConfig structs in this file, one per
// NodeType, so a type switch over them is exhaustive.
type Config interface {
	NodeType() NodeType
	Validate() error
	isConfig()
}

// ConfigPatch is a partial config update, keyed by wire field name
type ConfigPatch map[string]any

// Wire keys of the known config fields
const (
	KeyPlaceholder   = "placeholder"
	KeyAgentID       = "agent_id"
	KeyInstructions  = "instructions"
	KeyCode          = "code"
	KeyURL           = "url"
	KeyMethod        = "method"
	KeyBody          = "body"
	KeyConditionType = "condition_type"
	KeyLeft          = "left"
	KeyOperator      = "operator"
	KeyRight         = "right"
)

// HTTP methods an API step may use
var APIMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// Condition types and their operators
var (
	ConditionTypes      = []string{"comparison", "logical"}
	ComparisonOperators = []string{"eq", "neq", "gt", "gte", "lt", "lte"}
	LogicalOperators    = []string{"and", "or", "not"}
)

// InputConfig configures the entry step
type InputConfig struct {
	Placeholder string
	Extra       map[string]any
}

// AgentConfig configures a call to a backend agent
type AgentConfig struct {
	AgentID      *AgentID
	Instructions string
	Extra        map[string]any
}

// TransformConfig holds transformation code run by the backend
type TransformConfig struct {
	Code  string
	Extra map[string]any
}

// APIConfig configures an outbound HTTP call
type APIConfig struct {
	URL    string
	Method string
	Body   string
	Extra  map[string]any
}

// ConditionConfig configures a branch decision
type ConditionConfig struct {
	ConditionType string
	Left          string
	Operator      string
	Right         string
	Extra         map[string]any
}

// OutputConfig configures the exit step; it has no fields of its own
type OutputConfig struct {
	Extra map[string]any
}

func (*InputConfig) isConfig()     {}
func (*AgentConfig) isConfig()     {}
func (*TransformConfig) isConfig() {}
func (*APIConfig) isConfig()       {}
func (*ConditionConfig) isConfig() {}
func (*OutputConfig) isConfig()    {}

// NodeType returns the node type this config belongs to
func (*InputConfig) NodeType() NodeType { return NodeTypeInput }

// NodeType returns the node type this config belongs to
func (*AgentConfig) NodeType() NodeType { return NodeTypeAgent }

// NodeType returns the node type this config belongs to
func (*TransformConfig) NodeType() NodeType { return NodeTypeTransform }

// NodeType returns the node type this config belongs to
func (*APIConfig) NodeType() NodeType { return NodeTypeAPI }

// NodeType returns the node type this config belongs to
func (*ConditionConfig) NodeType() NodeType { return NodeTypeCondition }

// NodeType returns the node type this config belongs to
func (*OutputConfig) NodeType() NodeType { return NodeTypeOutput }

// Validate always succeeds; a placeholder is optional
func (c *InputConfig) Validate() error { return nil }

// Validate always succeeds; output steps carry no settings
func (c *OutputConfig) Validate() error { return nil }

// Validate checks the agent reference is set
func (c *AgentConfig) Validate() error {
	if c.AgentID == nil || *c.AgentID == "" {
		return errors.New("agent step: no agent selected")
	}
	if err := ValidateTemplateSyntax(c.Instructions); err != nil {
		return fmt.Errorf("agent step: instructions: %w", err)
	}
	return nil
}

// Validate checks the transform has code
func (c *TransformConfig) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return errors.New("transform step: empty transformation code")
	}
	return nil
}

// Validate checks URL syntax and method
func (c *APIConfig) Validate() error {
	if c.URL == "" {
		return errors.New("api step: empty URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api step: invalid URL %q", c.URL)
	}
	if !slices.Contains(APIMethods, c.Method) {
		return fmt.Errorf("api step: unsupported method %q", c.Method)
	}
	return nil
}

// Validate checks the operator fits the condition type and that the
// resulting expression compiles
func (c *ConditionConfig) Validate() error {
	switch c.ConditionType {
	case "comparison":
		if !slices.Contains(ComparisonOperators, c.Operator) {
			return fmt.Errorf("condition step: invalid comparison operator %q", c.Operator)
		}
		if c.Left == "" || c.Right == "" {
			return errors.New("condition step: comparison needs both operands")
		}
	case "logical":
		if !slices.Contains(LogicalOperators, c.Operator) {
			return fmt.Errorf("condition step: invalid logical operator %q", c.Operator)
		}
		if c.Left == "" {
			return errors.New("condition step: logical condition needs a left operand")
		}
		if c.Operator != "not" && c.Right == "" {
			return fmt.Errorf("condition step: %s needs a right operand", c.Operator)
		}
	default:
		return fmt.Errorf("condition step: unknown condition type %q", c.ConditionType)
	}
	return ValidateExpressionSyntax(c.Expression())
}

// Expression renders the condition as an expr-lang boolean expression
func (c *ConditionConfig) Expression() string {
	symbols := map[string]string{
		"eq": "==", "neq": "!=", "gt": ">", "gte": ">=", "lt": "<", "lte": "<=",
		"and": "&&", "or": "||",
	}
	if c.Operator == "not" {
		return fmt.Sprintf("!(%s)", c.Left)
	}
	return fmt.Sprintf("(%s) %s (%s)", c.Left, symbols[c.Operator], c.Right)
}

// DefaultConfig returns the config a new node of type t starts with.
// Agent steps reference the first available agent, or none.
func DefaultConfig(t NodeType, agents []Agent) Config {
	switch t {
	case NodeTypeAgent:
		cfg := &AgentConfig{}
		if len(agents) > 0 {
			id := agents[0].ID
			cfg.AgentID = &id
		}
		return cfg
	case NodeTypeTransform:
		return &TransformConfig{}
	case NodeTypeAPI:
		return &APIConfig{Method: "GET"}
	case NodeTypeCondition:
		return &ConditionConfig{ConditionType: "comparison", Operator: "eq"}
	case NodeTypeOutput:
		return &OutputConfig{}
	default:
		return &InputConfig{}
	}
}

// EncodeConfig flattens a config into its wire map
func EncodeConfig(c Config) map[string]any {
	m := make(map[string]any)
	switch cfg := c.(type) {
	case *InputConfig:
		copyExtra(m, cfg.Extra)
		if cfg.Placeholder != "" {
			m[KeyPlaceholder] = cfg.Placeholder
		}
	case *AgentConfig:
		copyExtra(m, cfg.Extra)
		if cfg.AgentID != nil {
			m[KeyAgentID] = string(*cfg.AgentID)
		} else {
			m[KeyAgentID] = nil
		}
		if cfg.Instructions != "" {
			m[KeyInstructions] = cfg.Instructions
		}
	case *TransformConfig:
		copyExtra(m, cfg.Extra)
		m[KeyCode] = cfg.Code
	case *APIConfig:
		copyExtra(m, cfg.Extra)
		m[KeyURL] = cfg.URL
		m[KeyMethod] = cfg.Method
		if cfg.Body != "" {
			m[KeyBody] = cfg.Body
		}
	case *ConditionConfig:
		copyExtra(m, cfg.Extra)
		m[KeyConditionType] = cfg.ConditionType
		m[KeyLeft] = cfg.Left
		m[KeyOperator] = cfg.Operator
		m[KeyRight] = cfg.Right
	case *OutputConfig:
		copyExtra(m, cfg.Extra)
	}
	return m
}

// DecodeConfig builds the config variant for t from a wire map. Keys the
// variant does not know are kept in Extra.
func DecodeConfig(t NodeType, m map[string]any) Config {
	rest := make(map[string]any, len(m))
	copyExtra(rest, m)
	take := func(key string) (any, bool) {
		v, ok := rest[key]
		delete(rest, key)
		return v, ok
	}
	takeString := func(key, def string) string {
		v, ok := take(key)
		if !ok || v == nil {
			return def
		}
		if s := stringValue(v); s != "" {
			return s
		}
		return def
	}

	switch t {
	case NodeTypeAgent:
		cfg := &AgentConfig{}
		if v, ok := take(KeyAgentID); ok && v != nil {
			if s := stringValue(v); s != "" {
				id := AgentID(s)
				cfg.AgentID = &id
			}
		}
		cfg.Instructions = takeString(KeyInstructions, "")
		cfg.Extra = nilIfEmpty(rest)
		return cfg
	case NodeTypeTransform:
		cfg := &TransformConfig{Code: takeString(KeyCode, "")}
		cfg.Extra = nilIfEmpty(rest)
		return cfg
	case NodeTypeAPI:
		cfg := &APIConfig{
			URL:    takeString(KeyURL, ""),
			Method: strings.ToUpper(takeString(KeyMethod, "GET")),
			Body:   takeString(KeyBody, ""),
		}
		cfg.Extra = nilIfEmpty(rest)
		return cfg
	case NodeTypeCondition:
		cfg := &ConditionConfig{
			ConditionType: takeString(KeyConditionType, "comparison"),
			Left:          takeString(KeyLeft, ""),
			Right:         takeString(KeyRight, ""),
		}
		defOp := "eq"
		if cfg.ConditionType == "logical" {
			defOp = "and"
		}
		cfg.Operator = takeString(KeyOperator, defOp)
		cfg.Extra = nilIfEmpty(rest)
		return cfg
	case NodeTypeOutput:
		return &OutputConfig{Extra: nilIfEmpty(rest)}
	default:
		cfg := &InputConfig{Placeholder: takeString(KeyPlaceholder, "")}
		cfg.Extra = nilIfEmpty(rest)
		return cfg
	}
}

// MergeConfig shallow-merges patch into c and returns the resulting config.
// A nil value in the patch clears the key.
func MergeConfig(c Config, patch ConfigPatch) Config {
	m := EncodeConfig(c)
	for k, v := range patch {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return DecodeConfig(c.NodeType(), m)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func copyExtra(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
