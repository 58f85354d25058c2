package moltbot

import (
	"context"
	"net/http"
)

// TaskHook receives task lifecycle notifications.
// Multiple hooks may be registered via multiple WithTaskHook calls.
//
// Hooks run on a single background goroutine in event order, each call bounded
// by a 10s timeout. A slow hook delays later notifications; when the queue
// fills, events are dropped and logged. Errors are logged and otherwise ignored.
type TaskHook interface {
	// OnTaskEvent is called for every lifecycle event.
	OnTaskEvent(ctx context.Context, event TaskEvent) error
	// OnTaskCompleted is called once per task with its final snapshot.
	OnTaskCompleted(ctx context.Context, task Task) error
}

// RouteRegistrar registers additional routes on the shared HTTP mux.
// Extra routes share the request ID, tracing, logging and recovery middleware.
// Ignored on the stdio transport.
type RouteRegistrar func(mux *http.ServeMux)

// Middleware wraps the HTTP handler chain. Ignored on the stdio transport.
type Middleware func(http.Handler) http.Handler
