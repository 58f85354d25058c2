package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/moltbot/internal/ctxutil"
	"github.com/ashita-ai/moltbot/internal/testutil"
)

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(testutil.TestLogger(t), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	h := recoveryMiddleware(testutil.TestLogger(t), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	var _ http.Flusher = w
	w.WriteHeader(http.StatusTeapot)
	w.WriteHeader(http.StatusInternalServerError)
	w.Flush()

	assert.Equal(t, http.StatusTeapot, w.statusCode, "first status wins")
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, w.Unwrap())
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	h := requestIDMiddleware(loggingMiddleware(testutil.TestLogger(t), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, ctxutil.RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusAccepted)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTransportContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req = req.WithContext(ctxutil.WithRequestID(req.Context(), "req-7"))

	ctx := transportContext(TransportSSE)(t.Context(), req)
	assert.Equal(t, TransportSSE, ctxutil.TransportFromContext(ctx))
	assert.Equal(t, "req-7", ctxutil.RequestIDFromContext(ctx))
}
