package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestCallMeta_LogAttrsOmitsEmpty(t *testing.T) {
	meta := CallMetaFromContext(context.Background(), "add")
	assert.Equal(t, []any{"tool", "add"}, meta.LogAttrs())

	ctx := WithTransport(WithRequestID(context.Background(), "r"), "stdio")
	meta = CallMetaFromContext(ctx, "add")
	assert.Equal(t, []any{"tool", "add", "request_id", "r", "transport", "stdio"}, meta.LogAttrs())
}
