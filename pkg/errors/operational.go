package errors

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// OperationalError wraps a failed builder operation with the workflow and
// node it concerned.
//
// Session level failures (loading, saving, test runs) are reported with
// this type so the terminal status line and the debug log carry the same
// context.
type OperationalError struct {
	Operation  string         // What was being done, e.g. "saving workflow"
	WorkflowID string         // Backend workflow id, empty for unsaved work
	NodeID     string         // Node involved, if any
	Timestamp  time.Time      // When the error occurred
	Attributes map[string]any // Additional context (optional)
	Cause      error          // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err != nil {
//	    return NewOperationalError("saving workflow", id.String(), "", err)
//	}
func NewOperationalError(operation, workflowID, nodeID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation:  operation,
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

// With returns the error with an extra attribute set
func (e *OperationalError) With(key string, value any) *OperationalError {
	if e == nil {
		return nil
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = value
	return e
}

// Error implements the error interface.
//
// Format: "[timestamp] operation: workflow={id} node={id} key=value: {cause}"
// Empty ids are omitted.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	head := fmt.Sprintf("[%s] %s", e.Timestamp.Format(time.RFC3339), e.Operation)
	var parts []string
	if e.WorkflowID != "" {
		parts = append(parts, "workflow="+e.WorkflowID)
	}
	if e.NodeID != "" {
		parts = append(parts, "node="+e.NodeID)
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Attributes[k]))
	}

	if len(parts) == 0 {
		return head + ": " + fmt.Sprint(e.Cause)
	}
	return head + ": " + strings.Join(parts, " ") + ": " + fmt.Sprint(e.Cause)
}

// Summary is the short form shown to users: "operation: cause"
func (e *OperationalError) Summary() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
