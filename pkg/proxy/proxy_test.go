package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// newUpstream records every request and answers with status and body
func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var got []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = append(got, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(data),
			Auth:   r.Header.Get("Authorization"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestProxy(t *testing.T, upstream string, cfg Config) *Proxy {
	t.Helper()
	cfg.BaseURL = upstream + "/api"
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func serve(p *Proxy, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

func TestProxy_Routes(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		body      string
		wfPath    string
		wantPath  string
		wantQuery string
	}{
		{"list agents", http.MethodGet, "/api/agents", "", "", "/api/agents", ""},
		{"get agent", http.MethodGet, "/api/agents/a1", "", "", "/api/agents/a1", ""},
		{"interact", http.MethodPost, "/api/agents/a1/interact", `{"message":"hi"}`, "", "/api/agents/a1/interact", ""},
		{"memories", http.MethodGet, "/api/agents/a1/memories?limit=5", "", "", "/api/agents/a1/memories", "limit=5"},
		{"list workflows", http.MethodGet, "/api/workflows", "", "", "/api/workflows", ""},
		{"workflow under custom path", http.MethodGet, "/api/workflows/7", "", "/workflows/test", "/api/workflows/test/7", ""},
		{"execute", http.MethodPost, "/api/workflows/7/execute", `{"input":{}}`, "", "/api/workflows/7/execute", ""},
		{"executions", http.MethodGet, "/api/workflows/7/executions", "", "", "/api/workflows/7/executions", ""},
		{"execution", http.MethodGet, "/api/workflows/7/executions/e9", "", "", "/api/workflows/7/executions/e9", ""},
		{"apply optimization", http.MethodPost, "/api/workflows/optimizations/o1/apply", "", "", "/api/workflows/optimizations/o1/apply", ""},
		{"settings", http.MethodGet, "/api/settings/all", "", "", "/api/settings/all", ""},
		{"provider setting", http.MethodPut, "/api/settings/provider/openai", `{"api_key":"x"}`, "", "/api/settings/provider/openai", ""},
		{"legacy get", http.MethodGet, "/api/workflows-id?id=7", "", "/workflows/test", "/api/workflows/test/7", ""},
		{"legacy execute", http.MethodPost, "/api/workflows-execute?id=7", `{}`, "", "/api/workflows/7/execute", ""},
		{"legacy executions", http.MethodGet, "/api/workflows-executions?id=7&page=2", "", "", "/api/workflows/7/executions", "page=2"},
		{"legacy execution", http.MethodGet, "/api/workflows-execution?id=7&executionId=e9", "", "", "/api/workflows/7/executions/e9", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream, got := newUpstream(t, http.StatusOK, `{"ok":true}`)
			p := newTestProxy(t, upstream.URL, Config{WorkflowsPath: tt.wfPath})

			rec := serve(p, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

			require.Len(t, *got, 1)
			req := (*got)[0]
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.wantPath, req.Path)
			assert.Equal(t, tt.wantQuery, req.Query)
			assert.Equal(t, tt.body, req.Body)
		})
	}
}

func TestProxy_LegacyMissingParam(t *testing.T) {
	upstream, got := newUpstream(t, http.StatusOK, `{}`)
	p := newTestProxy(t, upstream.URL, Config{})

	rec := serve(p, http.MethodGet, "/api/workflows-execution?id=7", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"executionId parameter is required"}`, rec.Body.String())
	assert.Empty(t, *got)
}

func TestProxy_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"fastapi detail", http.StatusNotFound, `{"detail":"Workflow not found"}`, "Workflow not found"},
		{"error field", http.StatusBadRequest, `{"error":"bad input"}`, "bad input"},
		{"empty body", http.StatusInternalServerError, ``, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream, _ := newUpstream(t, tt.status, tt.body)
			p := newTestProxy(t, upstream.URL, Config{})

			rec := serve(p, http.MethodGet, "/api/workflows/1", "")
			assert.Equal(t, tt.status, rec.Code)

			var out map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.wantMsg, out["error"])
		})
	}
}

func TestProxy_UpstreamUnavailable(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusOK, `{}`)
	p := newTestProxy(t, upstream.URL, Config{})
	upstream.Close()

	rec := serve(p, http.MethodGet, "/api/agents", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestProxy_Authorization(t *testing.T) {
	upstream, got := newUpstream(t, http.StatusOK, `[]`)
	p := newTestProxy(t, upstream.URL, Config{Token: "configured"})

	serve(p, http.MethodGet, "/api/agents", "")

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Authorization", "Bearer caller")
	p.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, *got, 2)
	assert.Equal(t, "Bearer configured", (*got)[0].Auth)
	assert.Equal(t, "Bearer caller", (*got)[1].Auth)
}

func TestProxy_LocalRoutes(t *testing.T) {
	upstream, got := newUpstream(t, http.StatusOK, `[]`)
	p := newTestProxy(t, upstream.URL, Config{})

	rec := serve(p, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	serve(p, http.MethodGet, "/api/agents", "")
	serve(p, http.MethodGet, "/api/agents", "")

	rec = serve(p, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `flowcanvas_proxy_requests_total{method="GET",route="/api/agents",status="2xx"} 2`)
	assert.Contains(t, body, "flowcanvas_proxy_request_duration_seconds")

	assert.Len(t, *got, 2)
}

func TestProxy_NotFoundAndMethod(t *testing.T) {
	upstream, got := newUpstream(t, http.StatusOK, `{}`)
	p := newTestProxy(t, upstream.URL, Config{})

	tests := []struct {
		name   string
		method string
		target string
		status int
		msg    string
	}{
		{"unknown api route", http.MethodGet, "/api/nope", http.StatusNotFound, "route not found: /api/nope"},
		{"unknown root route", http.MethodGet, "/nope", http.StatusNotFound, "route not found: /nope"},
		{"wrong method on api route", http.MethodDelete, "/api/agents/a1/interact", http.StatusMethodNotAllowed, "method not allowed: DELETE"},
		{"wrong method on workflows", http.MethodPatch, "/api/workflows", http.StatusMethodNotAllowed, "method not allowed: PATCH"},
		{"wrong method on root route", http.MethodPost, "/healthz", http.StatusMethodNotAllowed, "method not allowed: POST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(p, tt.method, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
	assert.Empty(t, *got)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	p, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(502))
	assert.Equal(t, "unknown", statusClass(0))
}
