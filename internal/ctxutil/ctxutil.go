// Package ctxutil provides shared context key accessors.
//
// The HTTP layer assigns request IDs and the MCP layer reads them when
// logging tool calls. Both packages import ctxutil instead of each other.
package ctxutil

import "context"

type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyTransport contextKey = "transport"
)

// WithRequestID returns a new context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithTransport records which MCP transport ("streamable", "sse", "stdio")
// delivered the current call.
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, keyTransport, transport)
}

// TransportFromContext returns the transport name, or "" if unset.
func TransportFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(keyTransport).(string); ok {
		return v
	}
	return ""
}
