// Package backend is the REST client for the agent and workflow service.
// All model calls, persistence and execution happen on the other side of
// this client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

var (
	_ canvas.AgentSource  = (*Client)(nil)
	_ canvas.Interactor   = (*Client)(nil)
	_ workflow.Repository = (*Client)(nil)
)

// DefaultBaseURL is the backend API root used when none is configured
const DefaultBaseURL = "http://localhost:8000/api"

// DefaultWorkflowsPath is the collection path of workflow definitions
const DefaultWorkflowsPath = "/workflows"

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// Config holds the settings of a Client
type Config struct {
	BaseURL       string
	Token         string
	WorkflowsPath string
	// Timeout bounds each request. Zero leaves requests to the context and
	// the transport defaults.
	Timeout       time.Duration
}

// Client talks to the backend over HTTP JSON. It is safe for concurrent use.
type Client struct {
	baseURL       string
	token         string
	workflowsPath string
	httpClient    *http.Client
}

// New creates a client. An empty BaseURL selects DefaultBaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", cfg.BaseURL)
	}

	path := cfg.WorkflowsPath
	if path == "" {
		path = DefaultWorkflowsPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &Client{
		baseURL:       base,
		token:         cfg.Token,
		workflowsPath: strings.TrimRight(path, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListAgents returns the configured agents. The backend may answer with a
// bare array or an items/agents envelope.
func (c *Client) ListAgents(ctx context.Context) ([]workflow.Agent, error) {
	body, err := c.do(ctx, http.MethodGet, "/agents", nil)
	if err != nil {
		return nil, err
	}

	list := envelope(body, "items", "agents")
	if !list.IsArray() {
		return nil, fmt.Errorf("GET /agents: unexpected response shape")
	}

	agents := make([]workflow.Agent, 0, len(list.Array()))
	for _, item := range list.Array() {
		agents = append(agents, agentFrom(item))
	}
	return agents, nil
}

// GetAgent returns one agent
func (c *Client) GetAgent(ctx context.Context, id workflow.AgentID) (workflow.Agent, error) {
	body, err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return workflow.Agent{}, err
	}
	return agentFrom(gjson.ParseBytes(body)), nil
}

// Interact sends one message to an agent and returns its reply
func (c *Client) Interact(ctx context.Context, id workflow.AgentID, message string) (string, error) {
	path := "/agents/" + url.PathEscape(id.String()) + "/interact"
	body, err := c.do(ctx, http.MethodPost, path, map[string]string{"message": message})
	if err != nil {
		return "", err
	}

	resp := gjson.GetBytes(body, "response")
	if !resp.Exists() {
		return "", fmt.Errorf("POST %s: response field missing", path)
	}
	return resp.String(), nil
}

// GetWorkflow fetches a workflow definition
func (c *Client) GetWorkflow(ctx context.Context, id workflow.WorkflowID) (*workflow.Definition, error) {
	body, err := c.do(ctx, http.MethodGet, c.workflowPath(id), nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
		}
		return nil, err
	}
	return decodeDefinition(body)
}

// CreateWorkflow stores a new workflow and returns it with its id
func (c *Client) CreateWorkflow(ctx context.Context, def *workflow.Definition) (*workflow.Definition, error) {
	payload := *def
	payload.ID = ""
	body, err := c.do(ctx, http.MethodPost, c.workflowsPath, &payload)
	if err != nil {
		return nil, err
	}
	return decodeDefinition(body)
}

// UpdateWorkflow replaces an existing workflow
func (c *Client) UpdateWorkflow(ctx context.Context, id workflow.WorkflowID, def *workflow.Definition) (*workflow.Definition, error) {
	body, err := c.do(ctx, http.MethodPut, c.workflowPath(id), def)
	if err != nil {
		return nil, err
	}
	saved, err := decodeDefinition(body)
	if err != nil {
		return nil, err
	}
	if saved.ID.IsZero() {
		saved.ID = id
	}
	return saved, nil
}

// ListWorkflows returns every workflow the backend holds
func (c *Client) ListWorkflows(ctx context.Context) ([]*workflow.Definition, error) {
	body, err := c.do(ctx, http.MethodGet, c.workflowsPath, nil)
	if err != nil {
		return nil, err
	}

	list := envelope(body, "items", "workflows")
	if !list.IsArray() {
		return nil, fmt.Errorf("GET %s: unexpected response shape", c.workflowsPath)
	}

	defs := make([]*workflow.Definition, 0, len(list.Array()))
	for _, item := range list.Array() {
		def, err := decodeDefinition([]byte(item.Raw))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// DeleteWorkflow removes a workflow
func (c *Client) DeleteWorkflow(ctx context.Context, id workflow.WorkflowID) error {
	_, err := c.do(ctx, http.MethodDelete, c.workflowPath(id), nil)
	return err
}

func (c *Client) workflowPath(id workflow.WorkflowID) string {
	return c.workflowsPath + "/" + url.PathEscape(id.String())
}

// do sends one request and returns the response body of a 2xx answer
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(method, path, resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}
	return data, nil
}

// envelope returns the list in body, unwrapping the first of keys present
func envelope(body []byte, keys ...string) gjson.Result {
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root
	}
	for _, k := range keys {
		if v := root.Get(k); v.IsArray() {
			return v
		}
	}
	return root
}

func agentFrom(item gjson.Result) workflow.Agent {
	return workflow.Agent{
		ID:          workflow.AgentID(item.Get("id").String()),
		Name:        item.Get("name").String(),
		Description: item.Get("description").String(),
		Provider:    item.Get("provider").String(),
		Model:       item.Get("model").String(),
	}
}

// decodeDefinition checks a backend reply against the definition schema
// before decoding it
func decodeDefinition(body []byte) (*workflow.Definition, error) {
	def, err := workflow.DecodeDefinition(body)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow from backend: %w", err)
	}
	return def, nil
}
