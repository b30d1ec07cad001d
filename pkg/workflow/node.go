package workflow

import (
	"fmt"
	"strings"
)

// NodeType is the closed set of step kinds a graph can hold
type NodeType string

const (
	NodeTypeInput     NodeType = "input"
	NodeTypeAgent     NodeType = "agent"
	NodeTypeTransform NodeType = "transform"
	NodeTypeAPI       NodeType = "api"
	NodeTypeCondition NodeType = "condition"
	NodeTypeOutput    NodeType = "output"
)

// nodeTypeAliases maps legacy wire names onto the canonical node types
var nodeTypeAliases = map[string]NodeType{
	"user_input": NodeTypeInput,
	"llm":        NodeTypeAgent,
	"code":       NodeTypeTransform,
}

// NodeTypes returns every node type in palette order
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeInput,
		NodeTypeAgent,
		NodeTypeTransform,
		NodeTypeAPI,
		NodeTypeCondition,
		NodeTypeOutput,
	}
}

// ParseNodeType resolves a wire type name, accepting legacy aliases
func ParseNodeType(s string) (NodeType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, t := range NodeTypes() {
		if string(t) == name {
			return t, nil
		}
	}
	if t, ok := nodeTypeAliases[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown node type: %q", s)
}

// WireType returns the type name written for n, its legacy alias when it
// was loaded under one
func (n *Node) WireType() string {
	if n.wireType != "" {
		return n.wireType
	}
	return n.Type.String()
}

// String returns the wire name of the node type
func (t NodeType) String() string {
	return string(t)
}

// DefaultName is the label a freshly created node of this type receives
func (t NodeType) DefaultName() string {
	switch t {
	case NodeTypeInput:
		return "Input"
	case NodeTypeAgent:
		return "Agent"
	case NodeTypeTransform:
		return "Transform"
	case NodeTypeAPI:
		return "API Call"
	case NodeTypeCondition:
		return "Condition"
	case NodeTypeOutput:
		return "Output"
	default:
		return "Step"
	}
}

// Node is a single workflow step placed on the canvas
type Node struct {
	ID       NodeID
	Type     NodeType
	Name     string
	Position Position
	Config   Config

	// wireType is the legacy alias the step was loaded with, kept so a
	// round trip writes back the name the backend dispatches on
	wireType string
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Config = DecodeConfig(n.Type, EncodeConfig(n.Config))
	return &c
}

// AgentID returns the configured agent of an agent node, or "" for any
// other node type or an agent node without a selection
func (n *Node) AgentID() AgentID {
	cfg, ok := n.Config.(*AgentConfig)
	if !ok || cfg.AgentID == nil {
		return ""
	}
	return *cfg.AgentID
}
