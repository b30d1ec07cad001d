package canvas

import (
	"context"
	"errors"
	"strings"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// Test-run validation errors, checked in this order
var (
	ErrMissingComponents = errors.New("workflow must have Input, Agent, and Output")
	ErrNotConnected      = errors.New("components must be connected: Input → Agent → Output")
	ErrEmptyInput        = errors.New("please enter test input")
	ErrNoAgentSelected   = errors.New("no agent selected for the agent step")
)

// Interactor sends one message to a backend agent
type Interactor interface {
	Interact(ctx context.Context, id workflow.AgentID, message string) (string, error)
}

// AgentSource lists the agents a node can reference
type AgentSource interface {
	ListAgents(ctx context.Context) ([]workflow.Agent, error)
}

// TestRequest is a validated test run, ready to send
type TestRequest struct {
	NodeID  workflow.NodeID
	AgentID workflow.AgentID
	Input   string
}

// TestResult is the outcome of a successful test run
type TestResult struct {
	NodeID   workflow.NodeID
	AgentID  workflow.AgentID
	Input    string
	Response string
}

// ValidateForTestRun checks the graph shape and input. It returns the
// agent node that connects the input to the output.
func ValidateForTestRun(g *workflow.Graph, input string) (*workflow.Node, error) {
	inputs := g.NodesOfType(workflow.NodeTypeInput)
	agents := g.NodesOfType(workflow.NodeTypeAgent)
	outputs := g.NodesOfType(workflow.NodeTypeOutput)
	if len(inputs) != 1 || len(agents) == 0 || len(outputs) != 1 {
		return nil, ErrMissingComponents
	}

	in, out := inputs[0], outputs[0]
	var agent *workflow.Node
	for _, a := range agents {
		if g.HasEdge(in.ID, a.ID) && g.HasEdge(a.ID, out.ID) {
			agent = a
			break
		}
	}
	if agent == nil {
		return nil, ErrNotConnected
	}

	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	return agent, nil
}

// PrepareTestRun validates and resolves the agent to call
func PrepareTestRun(g *workflow.Graph, input string) (TestRequest, error) {
	agent, err := ValidateForTestRun(g, input)
	if err != nil {
		return TestRequest{}, err
	}
	id := agent.AgentID()
	if id == "" {
		return TestRequest{}, ErrNoAgentSelected
	}
	return TestRequest{NodeID: agent.ID, AgentID: id, Input: input}, nil
}

// Send issues the single interaction call. Errors are returned unchanged.
func (r TestRequest) Send(ctx context.Context, client Interactor) (TestResult, error) {
	resp, err := client.Interact(ctx, r.AgentID, r.Input)
	if err != nil {
		return TestResult{}, err
	}
	return TestResult{NodeID: r.NodeID, AgentID: r.AgentID, Input: r.Input, Response: resp}, nil
}

// TestRunner runs validation and the interaction call together
type TestRunner struct {
	Interactor Interactor
}

// Run validates the graph and, if it passes, calls the agent once
func (r TestRunner) Run(ctx context.Context, g *workflow.Graph, input string) (TestResult, error) {
	req, err := PrepareTestRun(g, input)
	if err != nil {
		return TestResult{}, err
	}
	return req.Send(ctx, r.Interactor)
}

// IsValidationError reports whether err is a local test-run validation
// failure rather than a transport error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingComponents) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrNoAgentSelected)
}
