package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/moltbot/internal/mcp"
	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/ratelimit"
	"github.com/ashita-ai/moltbot/internal/service/orchestrator"
	"github.com/ashita-ai/moltbot/internal/service/uistore"
	"github.com/ashita-ai/moltbot/internal/testutil"
)

type fakeJournal struct {
	depth, capacity int
	dropped         int64
}

func (f fakeJournal) Len() int             { return f.depth }
func (f fakeJournal) Capacity() int        { return f.capacity }
func (f fakeJournal) DroppedEvents() int64 { return f.dropped }

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	logger := testutil.TestLogger(t)
	orch := orchestrator.New(logger, orchestrator.WithStepInterval(time.Millisecond))
	mcpSrv := mcp.New(orch, uistore.New(), nil, logger, "test")

	cfg := Config{
		MCPServer: mcpSrv.MCPServer(),
		Logger:    logger,
		Tasks:     orch.Stats,
		Port:      0,
		Version:   "test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), orch
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTestPage(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/", "/test"} {
		rec := do(t, srv.Handler(), http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
		assert.Contains(t, rec.Body.String(), "moltbot test console", path)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/test/extra"},
		{http.MethodPost, "/"},
	} {
		rec := do(t, srv.Handler(), tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.Equal(t, "Not found", rec.Body.String(), tc.path)
	}
}

func TestHealth(t *testing.T) {
	srv, orch := newTestServer(t, nil)
	orch.CreateTask(t.Context(), model.TaskTypeDataProcessing, nil, "")

	rec := do(t, srv.Handler(), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	require.NotNil(t, resp.Tasks)
	assert.Equal(t, 1, resp.Tasks.Total)
	assert.Nil(t, resp.Journal)
}

func TestHealth_Journal(t *testing.T) {
	tests := []struct {
		name        string
		journal     fakeJournal
		wantStatus  string
		wantJournal string
	}{
		{"ok", fakeJournal{depth: 10, capacity: 100}, "healthy", "ok"},
		{"high", fakeJournal{depth: 60, capacity: 100}, "healthy", "high"},
		{"critical", fakeJournal{depth: 80, capacity: 100}, "degraded", "critical"},
		{"dropped", fakeJournal{depth: 0, capacity: 100, dropped: 3}, "degraded", "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(c *Config) { c.Journal = tt.journal })

			rec := do(t, srv.Handler(), http.MethodGet, "/health", "", nil)
			var resp healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			require.NotNil(t, resp.Journal)
			assert.Equal(t, tt.wantJournal, resp.Journal.Status)
		})
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv.Handler(), http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, srv.Handler(), http.MethodGet, "/health", "", http.Header{"X-Request-Id": {"client-42"}})
	assert.Equal(t, "client-42", rec.Header().Get("X-Request-ID"))
}

var jsonHeaders = http.Header{
	"Content-Type": {"application/json"},
	"Accept":       {"application/json, text/event-stream"},
}

func TestStreamableMCP(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	initReq := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	rec := do(t, srv.Handler(), http.MethodPost, "/mcp", initReq, jsonHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"moltbot"`)

	header := jsonHeaders.Clone()
	if sid := rec.Header().Get("Mcp-Session-Id"); sid != "" {
		header.Set("Mcp-Session-Id", sid)
	}

	call := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add","arguments":{"a":2,"b":3}}}`
	rec = do(t, srv.Handler(), http.MethodPost, "/mcp", call, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"text":"5"`)
}

func TestRateLimitOnMCPOnly(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.001, 1)
	t.Cleanup(func() { _ = limiter.Close() })
	srv, _ := newTestServer(t, func(c *Config) { c.Limiter = limiter })

	ping := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	first := do(t, srv.Handler(), http.MethodPost, "/mcp", ping, jsonHeaders)
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := do(t, srv.Handler(), http.MethodPost, "/mcp", ping, jsonHeaders)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/", "", nil).Code)
}

func TestAddr(t *testing.T) {
	srv, _ := newTestServer(t, func(c *Config) { c.Port = 9123 })
	assert.Equal(t, ":9123", srv.Addr())
}

func TestExtraRoutesAndMiddlewares(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	srv, _ := newTestServer(t, func(c *Config) {
		c.ExtraRoutes = []func(*http.ServeMux){func(mux *http.ServeMux) {
			mux.HandleFunc("GET /extra", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("extra"))
			})
		}}
		c.Middlewares = []func(http.Handler) http.Handler{mw("outer"), mw("inner")}
	})

	rec := do(t, srv.Handler(), http.MethodGet, "/extra", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "extra", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), "extra routes share the middleware chain")
	assert.Equal(t, []string{"outer", "inner"}, order)
}
