// Package proxy serves the console's HTTP route surface and forwards every
// request to the backend. It holds no state besides its metrics.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/flowcanvas/pkg/backend"
)

const (
	defaultTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodySize     = 10 << 20
)

// Config holds the settings of a Proxy
type Config struct {
	// BaseURL is the backend API root, e.g. http://localhost:8000/api
	BaseURL string
	// WorkflowsPath is the backend collection path of workflows
	WorkflowsPath string
	// Token is sent as a bearer token when the caller sends none
	Token   string
	Timeout time.Duration
}

// Proxy forwards console routes to the backend
type Proxy struct {
	baseURL       string
	workflowsPath string
	token         string
	client        *http.Client
	metrics       *Metrics
	router        *mux.Router
}

// New creates a proxy with its own metrics registry
func New(cfg Config) (*Proxy, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = backend.DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", cfg.BaseURL)
	}

	wfPath := strings.TrimRight(cfg.WorkflowsPath, "/")
	if wfPath == "" {
		wfPath = backend.DefaultWorkflowsPath
	}
	if !strings.HasPrefix(wfPath, "/") {
		wfPath = "/" + wfPath
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	p := &Proxy{
		baseURL:       base,
		workflowsPath: wfPath,
		token:         cfg.Token,
		client:        &http.Client{Timeout: timeout},
		metrics:       NewMetrics(prometheus.NewRegistry()),
	}
	p.router = p.routes()
	return p, nil
}

// WithHTTPClient replaces the client used for upstream calls
func (p *Proxy) WithHTTPClient(hc *http.Client) *Proxy {
	p.client = hc
	return p
}

// ServeHTTP implements http.Handler
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (p *Proxy) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("proxy: listening on %s, forwarding to %s", addr, p.baseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy shutdown failed: %w", err)
	}
	log.Printf("proxy: stopped")
	return nil
}

func (p *Proxy) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware, p.metrics.Middleware, loggingMiddleware)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", p.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// agents
	api.HandleFunc("/agents", p.forwardTo(agentsPath)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/agents/{id}", p.forwardTo(agentsPath)).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	api.HandleFunc("/agents/{id}/interact", p.forwardTo(agentsPath)).Methods(http.MethodPost)
	api.HandleFunc("/agents/{id}/memories", p.forwardTo(agentsPath)).Methods(http.MethodGet, http.MethodDelete)

	// workflow optimizations not tied to a workflow id come first so
	// "optimizations" is not taken for an id
	api.HandleFunc("/workflows/optimizations/{optimizationId}/apply", p.forwardTo(p.workflowPath)).Methods(http.MethodPost)
	api.HandleFunc("/workflows/optimizations/{optimizationId}/reject", p.forwardTo(p.workflowPath)).Methods(http.MethodPost)

	// workflows
	api.HandleFunc("/workflows", p.forwardTo(p.workflowPath)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/workflows/{id}", p.forwardTo(p.workflowPath)).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	api.HandleFunc("/workflows/{id}/execute", p.forwardTo(p.workflowPath)).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{id}/executions", p.forwardTo(p.workflowPath)).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{id}/executions/{executionId}", p.forwardTo(p.workflowPath)).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{id}/optimizations", p.forwardTo(p.workflowPath)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/workflows/{id}/optimizations/{optimizationId}", p.forwardTo(p.workflowPath)).Methods(http.MethodGet)

	// legacy flat routes
	api.HandleFunc("/workflows-id", p.legacy("", "id")).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	api.HandleFunc("/workflows-execute", p.legacy("/execute", "id")).Methods(http.MethodPost)
	api.HandleFunc("/workflows-executions", p.legacy("/executions", "id")).Methods(http.MethodGet)
	api.HandleFunc("/workflows-execution", p.legacy("/executions", "id", "executionId")).Methods(http.MethodGet)

	// settings
	api.PathPrefix("/settings/").HandlerFunc(p.forwardTo(settingsPath)).Methods(http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete)

	// a subrouter answers its own misses, so both levels need the handlers
	for _, rt := range []*mux.Router{r, api} {
		rt.NotFoundHandler = http.HandlerFunc(handleNotFound)
		rt.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	}
	return r
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "route not found: "+r.URL.Path)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed: "+r.Method)
}

// pathMapper turns the part of a console path after /api into a backend path
type pathMapper func(rest string) string

func agentsPath(rest string) string { return rest }

func settingsPath(rest string) string { return rest }

func (p *Proxy) workflowPath(rest string) string {
	return p.workflowsPath + strings.TrimPrefix(rest, "/workflows")
}

func (p *Proxy) forwardTo(mapPath pathMapper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.EscapedPath(), "/api")
		p.forward(w, r, mapPath(rest), r.URL.RawQuery)
	}
}

// legacy serves a flat route whose ids arrive as query parameters. The
// first parameter is the workflow id; a second one is appended after
// suffix.
func (p *Proxy) legacy(suffix string, params ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		values := make([]string, 0, len(params))
		for _, name := range params {
			v := q.Get(name)
			if v == "" {
				writeError(w, http.StatusBadRequest, name+" parameter is required")
				return
			}
			values = append(values, url.PathEscape(v))
			q.Del(name)
		}

		path := p.workflowsPath + "/" + values[0] + suffix
		if len(values) > 1 {
			path += "/" + values[1]
		}
		p.forward(w, r, path, q.Encode())
	}
}

func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, path, rawQuery string) {
	target := p.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	var body io.Reader
	if r.Body != nil && r.Method != http.MethodGet {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if len(data) > 0 {
			body = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create upstream request")
		return
	}
	req.Header.Set("Accept", "application/json")
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	} else if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("proxy: %s %s: %v", r.Method, path, err)
		writeError(w, http.StatusBadGateway, "backend unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to read backend response")
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		writeError(w, resp.StatusCode, backend.ErrorMessage(resp.StatusCode, data))
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(data)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
