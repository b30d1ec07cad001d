package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Common workflow errors
var (
	// ErrWorkflowNotFound is returned when a workflow cannot be found
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// WorkflowID is a unique identifier for a workflow on the backend
type WorkflowID string

// String returns the string representation of the WorkflowID
func (w WorkflowID) String() string {
	return string(w)
}

// IsZero reports whether the workflow has not been saved yet
func (w WorkflowID) IsZero() bool {
	return w == ""
}

// UnmarshalJSON accepts string and numeric ids; the backend uses integers
func (w *WorkflowID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*w = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = WorkflowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("workflow id: %w", err)
	}
	*w = WorkflowID(n.String())
	return nil
}

// NodeID is a unique identifier for a node within a graph
type NodeID string

// String returns the string representation of the NodeID
func (n NodeID) String() string {
	return string(n)
}

// NewNodeID generates a new unique NodeID
func NewNodeID() NodeID {
	return NodeID("step-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// EdgeID is a unique identifier for an edge within a graph
type EdgeID string

// String returns the string representation of the EdgeID
func (e EdgeID) String() string {
	return string(e)
}

// EdgeIDFor derives the deterministic edge id for a (from, to) pair
func EdgeIDFor(from, to NodeID) EdgeID {
	return EdgeID(string(from) + "->" + string(to))
}

// AgentID references an agent owned by the backend
type AgentID string

// String returns the string representation of the AgentID
func (a AgentID) String() string {
	return string(a)
}

// Position is a point in canvas space
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Agent is the subset of a backend agent the builder needs
type Agent struct {
	ID          AgentID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
}
