package ctxutil

import "context"

// CallMeta describes the origin of a tool call for logs and spans.
// It lives in ctxutil so server and mcp can both populate and read it
// without circular imports.
type CallMeta struct {
	RequestID string
	Transport string
	Tool      string
}

// CallMetaFromContext assembles the call metadata available on ctx for the
// named tool.
func CallMetaFromContext(ctx context.Context, tool string) CallMeta {
	return CallMeta{
		RequestID: RequestIDFromContext(ctx),
		Transport: TransportFromContext(ctx),
		Tool:      tool,
	}
}

// LogAttrs flattens the metadata into slog key/value pairs, omitting empty
// fields.
func (m CallMeta) LogAttrs() []any {
	attrs := []any{"tool", m.Tool}
	if m.RequestID != "" {
		attrs = append(attrs, "request_id", m.RequestID)
	}
	if m.Transport != "" {
		attrs = append(attrs, "transport", m.Transport)
	}
	return attrs
}
