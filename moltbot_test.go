package moltbot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/moltbot/internal/journal"
	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/testutil"
)

// syncBuffer collects stdio output written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordingHook struct {
	mu        sync.Mutex
	events    []TaskEvent
	completed []Task
}

func (h *recordingHook) OnTaskEvent(_ context.Context, e TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHook) OnTaskCompleted(_ context.Context, t Task) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, t)
	return nil
}

func stdioInput(calls ...string) *strings.Reader {
	lines := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
	}
	lines = append(lines, calls...)
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

// responses indexes JSON-RPC responses in out by id.
func responses(t *testing.T, out string) map[float64]map[string]any {
	t.Helper()
	byID := make(map[float64]map[string]any)
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var msg map[string]any
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			continue
		}
		if id, ok := msg["id"].(float64); ok {
			byID[id] = msg
		}
	}
	return byID
}

func toolText(t *testing.T, resp map[string]any) string {
	t.Helper()
	require.NotNil(t, resp, "missing response")
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response has no result: %v", resp)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, content)
	first, ok := content[0].(map[string]any)
	require.True(t, ok)
	text, _ := first["text"].(string)
	return text
}

func runStdio(t *testing.T, in *strings.Reader, opts ...Option) string {
	t.Helper()
	out := &syncBuffer{}
	app, err := New(append([]Option{
		WithTransport("stdio"),
		WithStdio(in, out),
		WithLogger(testutil.TestLogger(t)),
		WithVersion("test"),
		WithStepInterval(time.Millisecond),
	}, opts...)...)
	require.NoError(t, err)
	assert.Nil(t, app.Handler())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Run(ctx))
	return out.String()
}

func TestRun_Stdio(t *testing.T) {
	out := runStdio(t, stdioInput(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add","arguments":{"a":2,"b":3}}}`,
	))

	resp := responses(t, out)
	require.Contains(t, resp, float64(1))
	assert.Contains(t, fmt.Sprint(resp[1]["result"]), "moltbot")
	assert.Equal(t, "5", toolText(t, resp[2]))
}

func TestRun_StdioTaskHooks(t *testing.T) {
	hook := &recordingHook{}
	out := runStdio(t, stdioInput(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_task","arguments":{"type":"data_processing","params":{"records":7}}}}`,
	), WithTaskHook(hook))

	var created struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, responses(t, out)[2])), &created))
	require.NotEmpty(t, created.TaskID)

	// Run drains progressions and hooks before returning.
	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.NotEmpty(t, hook.events)
	assert.Equal(t, "created", hook.events[0].Kind)
	assert.Equal(t, "completed", hook.events[len(hook.events)-1].Kind)
	for _, e := range hook.events {
		assert.Equal(t, created.TaskID, e.TaskID)
		assert.Equal(t, "data_processing", e.TaskType)
	}

	require.Len(t, hook.completed, 1)
	task := hook.completed[0]
	assert.Equal(t, created.TaskID, task.ID)
	assert.Equal(t, "completed", task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.NotNil(t, task.Result)
	assert.NotNil(t, task.CompletedAt)
}

func TestRun_StdioJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	hook := &recordingHook{}
	out := runStdio(t, stdioInput(
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"create_task","arguments":{"type":"report_generation"}}}`,
	), WithJournalPath(path), WithTaskHook(hook))

	assert.Contains(t, fmt.Sprint(responses(t, out)[2]["result"]), "get_task_history")

	hook.mu.Lock()
	require.Len(t, hook.completed, 1)
	taskID := hook.completed[0].ID
	hook.mu.Unlock()

	store, err := journal.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	events, err := store.Events(context.Background(), taskID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, model.TaskEventCreated, events[0].Kind)
	assert.Equal(t, model.TaskEventCompleted, events[len(events)-1].Kind)
}

func TestNew_InvalidOverride(t *testing.T) {
	_, err := New(WithTransport("carrier-pigeon"), WithLogger(testutil.TestLogger(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOLTBOT_TRANSPORT")
}

func TestNew_InvalidEnv(t *testing.T) {
	t.Setenv("MOLTBOT_STEP_INTERVAL", "soon")
	_, err := New(WithLogger(testutil.TestLogger(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOLTBOT_STEP_INTERVAL")
}

func TestHTTPHandler(t *testing.T) {
	app, err := New(
		WithTransport("http"),
		WithLogger(testutil.TestLogger(t)),
		WithVersion("test"),
		WithExtraRoutes(func(mux *http.ServeMux) {
			mux.HandleFunc("GET /hello", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("hi"))
			})
		}),
		WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Embedded", "1")
				next.ServeHTTP(w, r)
			})
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
	assert.Equal(t, "1", rec.Header().Get("X-Embedded"))

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))
	assert.Equal(t, "hi", rec.Body.String())
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestRun_HTTPStopsOnCancel(t *testing.T) {
	port := freePort(t)
	app, err := New(
		WithTransport("http"),
		WithPort(port),
		WithLogger(testutil.TestLogger(t)),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test helper
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, app.Shutdown(context.Background()), "second Shutdown is a no-op")
}
