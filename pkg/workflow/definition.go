package workflow

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// Column layout used for steps that arrive without a position
const (
	layoutOriginX = 100.0
	layoutOriginY = 100.0
	layoutSpacing = 200.0
)

// Definition is a workflow as the backend stores it
type Definition struct {
	ID          WorkflowID `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description,omitempty"`
	Tags        []string   `json:"tags" yaml:"tags,omitempty"`
	IsPublic    bool       `json:"is_public" yaml:"is_public"`
	Version     int        `json:"version,omitempty" yaml:"version,omitempty"`
	Definition  Body       `json:"definition" yaml:"definition"`
}

// Body is the graph part of a definition
type Body struct {
	Steps       []Step               `json:"steps" yaml:"steps"`
	Connections []Connection         `json:"connections" yaml:"connections"`
	Output      map[string]OutputRef `json:"output" yaml:"output,omitempty"`
}

// Step is the wire form of a node
type Step struct {
	ID       NodeID         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Type     string         `json:"type" yaml:"type"`
	Position *Position      `json:"position,omitempty" yaml:"position,omitempty"`
	Config   map[string]any `json:"config" yaml:"config,omitempty"`
}

// Connection is the wire form of an edge
type Connection struct {
	ID            EdgeID `json:"id,omitempty" yaml:"id,omitempty"`
	From          NodeID `json:"from" yaml:"from"`
	To            NodeID `json:"to" yaml:"to"`
	SourceOutput  string `json:"sourceOutput,omitempty" yaml:"source_output,omitempty"`
	TargetInput   string `json:"targetInput,omitempty" yaml:"target_input,omitempty"`
	ConditionType string `json:"conditionType,omitempty" yaml:"condition_type,omitempty"`
	Condition     string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// OutputRef points a workflow output at a value produced during execution
type OutputRef struct {
	Source string `json:"source" yaml:"source"`
	Path   string `json:"path" yaml:"path"`
}

// Meta is the descriptive part of a definition
type Meta struct {
	ID          WorkflowID
	Name        string
	Description string
	Tags        []string
	IsPublic    bool
	Version     int
}

// DefaultOutput is the output mapping used when none is given
func DefaultOutput() map[string]OutputRef {
	return map[string]OutputRef{
		"result": {Source: "variables", Path: "output.result"},
	}
}

// Meta returns the descriptive fields of the definition
func (d *Definition) Meta() Meta {
	return Meta{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Tags:        append([]string(nil), d.Tags...),
		IsPublic:    d.IsPublic,
		Version:     d.Version,
	}
}

// Flatten serializes a graph into the backend wire format
func Flatten(meta Meta, g *Graph) Definition {
	def := Definition{
		ID:          meta.ID,
		Name:        meta.Name,
		Description: meta.Description,
		Tags:        meta.Tags,
		IsPublic:    meta.IsPublic,
		Version:     meta.Version,
		Definition: Body{
			Steps:       make([]Step, 0, g.Len()),
			Connections: make([]Connection, 0, len(g.edges)),
			Output:      DefaultOutput(),
		},
	}
	if def.Tags == nil {
		def.Tags = []string{}
	}

	for _, n := range g.nodes {
		pos := n.Position
		def.Definition.Steps = append(def.Definition.Steps, Step{
			ID:       n.ID,
			Name:     n.Name,
			Type:     n.WireType(),
			Position: &pos,
			Config:   EncodeConfig(n.Config),
		})
	}
	for _, e := range g.edges {
		def.Definition.Connections = append(def.Definition.Connections, Connection{
			ID:            e.ID,
			From:          e.From,
			To:            e.To,
			SourceOutput:  e.SourceOutput,
			TargetInput:   e.TargetInput,
			ConditionType: e.ConditionType,
			Condition:     e.Condition,
		})
	}
	return def
}

// FlattenWithOutput is Flatten keeping a caller supplied output mapping
func FlattenWithOutput(meta Meta, g *Graph, output map[string]OutputRef) Definition {
	def := Flatten(meta, g)
	if len(output) > 0 {
		def.Definition.Output = output
	}
	return def
}

// Hydrate builds a graph from a wire definition. Steps without a type get
// one inferred from their name, steps without a position are laid out in a
// column, and connections whose endpoints are missing are dropped.
func Hydrate(def Definition) (*Graph, error) {
	g := NewGraph()
	unplaced := 0

	for i := range def.Definition.Steps {
		s := def.Definition.Steps[i]
		t, err := stepType(s)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, s.ID, err)
		}

		n := &Node{
			ID:     s.ID,
			Type:   t,
			Name:   s.Name,
			Config: DecodeConfig(t, s.Config),
		}
		if alias := strings.ToLower(strings.TrimSpace(s.Type)); alias != "" && alias != t.String() {
			n.wireType = alias
		}
		if n.ID == "" {
			n.ID = NewNodeID()
		}
		if n.Name == "" {
			n.Name = t.DefaultName()
		}
		if s.Position != nil {
			n.Position = *s.Position
		} else {
			n.Position = Position{X: layoutOriginX, Y: layoutOriginY + float64(unplaced)*layoutSpacing}
			unplaced++
		}

		if !g.insertNode(n) {
			return nil, fmt.Errorf("duplicate step id: %s", n.ID)
		}
	}

	for _, c := range def.Definition.Connections {
		e := &Edge{
			ID:            c.ID,
			From:          c.From,
			To:            c.To,
			SourceOutput:  c.SourceOutput,
			TargetInput:   c.TargetInput,
			ConditionType: c.ConditionType,
			Condition:     c.Condition,
		}
		if !g.insertEdge(e) {
			log.Printf("workflow: dropped connection %s -> %s", c.From, c.To)
		}
	}

	return g, nil
}

func stepType(s Step) (NodeType, error) {
	if s.Type != "" {
		return ParseNodeType(s.Type)
	}
	name := strings.ToLower(s.Name)
	switch {
	case strings.Contains(name, "input"):
		return NodeTypeInput, nil
	case strings.Contains(name, "output"):
		return NodeTypeOutput, nil
	case strings.Contains(name, "llm"), strings.Contains(name, "agent"):
		return NodeTypeAgent, nil
	case name == "":
		return "", errors.New("step has neither type nor name")
	default:
		return NodeTypeAgent, nil
	}
}
