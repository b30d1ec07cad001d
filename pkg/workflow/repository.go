package workflow

import "context"

// Repository defines the interface for workflow persistence. The backend
// client is the production implementation.
type Repository interface {
	// GetWorkflow retrieves a workflow definition by ID
	GetWorkflow(ctx context.Context, id WorkflowID) (*Definition, error)

	// CreateWorkflow stores a new workflow and returns it with its assigned ID
	CreateWorkflow(ctx context.Context, def *Definition) (*Definition, error)

	// UpdateWorkflow replaces an existing workflow
	UpdateWorkflow(ctx context.Context, id WorkflowID, def *Definition) (*Definition, error)

	// ListWorkflows returns all workflows visible to the caller
	ListWorkflows(ctx context.Context) ([]*Definition, error)
}
