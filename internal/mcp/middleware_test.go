package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/moltbot/internal/ctxutil"
	"github.com/ashita-ai/moltbot/internal/testutil"
)

func TestToolMiddleware_PassesThrough(t *testing.T) {
	var seen context.Context
	handler := toolMiddleware(testutil.TestLogger(t))(func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		seen = ctx
		return textResult("ok"), nil
	})

	ctx := ctxutil.WithRequestID(context.Background(), "req-1")
	result, err := handler(ctx, toolRequest("add", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", parseToolText(t, result))
	assert.Equal(t, "req-1", ctxutil.RequestIDFromContext(seen), "request id survives the span context")
}

func TestToolMiddleware_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	handler := toolMiddleware(testutil.TestLogger(t))(func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return nil, boom
	})

	result, err := handler(context.Background(), toolRequest("add", nil))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}

func TestToolMiddleware_ToolErrorResult(t *testing.T) {
	handler := toolMiddleware(testutil.TestLogger(t))(func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return errorResult("bad input"), nil
	})

	result, err := handler(context.Background(), toolRequest("calculate", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
