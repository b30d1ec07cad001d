package canvas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

func fieldKeys(fields []Field) []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestInspector_FieldsPerType(t *testing.T) {
	tests := []struct {
		nodeType workflow.NodeType
		want     []string
	}{
		{workflow.NodeTypeInput, []string{"name", "placeholder"}},
		{workflow.NodeTypeAgent, []string{"name", "agent_id", "instructions"}},
		{workflow.NodeTypeTransform, []string{"name", "code"}},
		{workflow.NodeTypeAPI, []string{"name", "url", "method", "body"}},
		{workflow.NodeTypeCondition, []string{"name", "condition_type", "left", "operator", "right"}},
		{workflow.NodeTypeOutput, []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.nodeType), func(t *testing.T) {
			g := workflow.NewGraph()
			n := g.AddNode(tt.nodeType, workflow.Position{}, nil)
			in := Inspector{Graph: g}
			assert.Equal(t, tt.want, fieldKeys(in.Fields(NodeSelection(n.ID))))
		})
	}
}

func TestInspector_EdgeFields(t *testing.T) {
	g := workflow.NewGraph()
	a := g.AddNode(workflow.NodeTypeInput, workflow.Position{}, nil)
	b := g.AddNode(workflow.NodeTypeOutput, workflow.Position{}, nil)
	e, _ := g.AddEdge(a.ID, b.ID)
	in := Inspector{Graph: g}

	assert.Equal(t, []string{"source_output", "target_input", "condition_type", "condition"},
		fieldKeys(in.Fields(EdgeSelection(e.ID))))

	require.NoError(t, in.Set(EdgeSelection(e.ID), FieldEdgeCondType, "if"))
	require.NoError(t, in.Set(EdgeSelection(e.ID), FieldEdgeCondition, "output.score > 0.5"))
	require.NoError(t, in.Set(EdgeSelection(e.ID), FieldSourceOutput, "text"))
	assert.Equal(t, "if", g.Edge(e.ID).ConditionType)
	assert.Equal(t, "output.score > 0.5", g.Edge(e.ID).Condition)
	assert.Equal(t, "text", g.Edge(e.ID).SourceOutput)

	var fe *FieldError
	require.ErrorAs(t, in.Set(EdgeSelection(e.ID), FieldEdgeCondType, "sometimes"), &fe)
	assert.Equal(t, "condition_type: condition type must be one of always, if, unless", fe.Error())
	assert.Equal(t, "if", g.Edge(e.ID).ConditionType)
	require.NoError(t, in.Set(EdgeSelection(e.ID), FieldEdgeCondType, ""))
	assert.Empty(t, g.Edge(e.ID).ConditionType)
	assert.ErrorAs(t, in.Set(EdgeSelection(e.ID), FieldEdgeCondition, "score >"), &fe)
	assert.Equal(t, "output.score > 0.5", g.Edge(e.ID).Condition)
	assert.ErrorIs(t, in.Set(EdgeSelection(e.ID), "weight", "1"), ErrUnknownField)
}

func TestInspector_Set(t *testing.T) {
	agents := []workflow.Agent{{ID: "a1"}, {ID: "a2"}}

	tests := []struct {
		name     string
		nodeType workflow.NodeType
		key      string
		value    string
		wantErr  bool
		check    func(t *testing.T, n *workflow.Node)
	}{
		{
			name: "rename", nodeType: workflow.NodeTypeInput, key: "name", value: "  Question ",
			check: func(t *testing.T, n *workflow.Node) { assert.Equal(t, "Question", n.Name) },
		},
		{
			name: "empty name rejected", nodeType: workflow.NodeTypeInput, key: "name", value: " ", wantErr: true,
		},
		{
			name: "choose agent", nodeType: workflow.NodeTypeAgent, key: "agent_id", value: "a2",
			check: func(t *testing.T, n *workflow.Node) { assert.Equal(t, workflow.AgentID("a2"), n.AgentID()) },
		},
		{
			name: "clear agent", nodeType: workflow.NodeTypeAgent, key: "agent_id", value: "",
			check: func(t *testing.T, n *workflow.Node) { assert.Equal(t, workflow.AgentID(""), n.AgentID()) },
		},
		{
			name: "unknown agent rejected", nodeType: workflow.NodeTypeAgent, key: "agent_id", value: "zz", wantErr: true,
		},
		{
			name: "bad template rejected", nodeType: workflow.NodeTypeAgent, key: "instructions", value: "Hi {{ name", wantErr: true,
		},
		{
			name: "method uppercased", nodeType: workflow.NodeTypeAPI, key: "method", value: "post",
			check: func(t *testing.T, n *workflow.Node) {
				assert.Equal(t, "POST", n.Config.(*workflow.APIConfig).Method)
			},
		},
		{
			name: "invalid method rejected", nodeType: workflow.NodeTypeAPI, key: "method", value: "FETCH", wantErr: true,
		},
		{
			name: "url", nodeType: workflow.NodeTypeAPI, key: "url", value: "https://example.com/hook",
			check: func(t *testing.T, n *workflow.Node) {
				assert.Equal(t, "https://example.com/hook", n.Config.(*workflow.APIConfig).URL)
			},
		},
		{
			name: "relative url rejected", nodeType: workflow.NodeTypeAPI, key: "url", value: "/hook", wantErr: true,
		},
		{
			name: "empty code rejected", nodeType: workflow.NodeTypeTransform, key: "code", value: "  ", wantErr: true,
		},
		{
			name: "operator outside comparison set", nodeType: workflow.NodeTypeCondition, key: "operator", value: "and", wantErr: true,
		},
		{
			name: "field of other type", nodeType: workflow.NodeTypeOutput, key: "url", value: "x", wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := workflow.NewGraph()
			n := g.AddNode(tt.nodeType, workflow.Position{}, agents)
			before := g.Clone()
			in := Inspector{Graph: g, Agents: agents}

			err := in.Set(NodeSelection(n.ID), tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, workflow.Flatten(workflow.Meta{}, before), workflow.Flatten(workflow.Meta{}, g))
				return
			}
			require.NoError(t, err)
			tt.check(t, g.Node(n.ID))
		})
	}
}

func TestInspector_ConditionExpression(t *testing.T) {
	g := workflow.NewGraph()
	n := g.AddNode(workflow.NodeTypeCondition, workflow.Position{}, nil)
	in := Inspector{Graph: g}
	sel := NodeSelection(n.ID)

	require.NoError(t, in.Set(sel, "left", "input.score"))
	require.NoError(t, in.Set(sel, "operator", "gt"))
	require.NoError(t, in.Set(sel, "right", "5"))

	var fe *FieldError
	err := in.Set(sel, "right", "5 +")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "right", fe.Key)
	assert.Equal(t, "5", g.Node(n.ID).Config.(*workflow.ConditionConfig).Right)

	// switching to logical resets the comparison operator
	require.NoError(t, in.Set(sel, "condition_type", "logical"))
	cfg := g.Node(n.ID).Config.(*workflow.ConditionConfig)
	assert.Equal(t, "logical", cfg.ConditionType)
	assert.Equal(t, "and", cfg.Operator)

	fields := in.Fields(sel)
	assert.Equal(t, workflow.LogicalOperators, fields[3].Options)
}

func TestInspector_NothingSelected(t *testing.T) {
	in := Inspector{Graph: workflow.NewGraph()}
	assert.Nil(t, in.Fields(Selection{}))
	assert.True(t, errors.Is(in.Set(Selection{}, "name", "x"), ErrNothingSelected))
	assert.True(t, errors.Is(in.Set(NodeSelection("gone"), "name", "x"), ErrNothingSelected))
	assert.True(t, errors.Is(in.Set(EdgeSelection("gone"), "condition", "x"), ErrNothingSelected))
}
