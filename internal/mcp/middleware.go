package mcp

import (
	"context"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/moltbot/internal/ctxutil"
	"github.com/ashita-ai/moltbot/internal/telemetry"
)

var (
	tracer   = telemetry.Tracer("moltbot/mcp")
	mcpMeter = telemetry.Meter("moltbot/mcp")
)

// toolMiddleware wraps every tool handler with a span, a structured log line
// and call count/duration metrics.
func toolMiddleware(logger *slog.Logger) mcpserver.ToolHandlerMiddleware {
	return func(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
		return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			meta := ctxutil.CallMetaFromContext(ctx, request.Params.Name)

			ctx, span := tracer.Start(ctx, "mcp.tool "+meta.Tool,
				trace.WithAttributes(
					attribute.String("mcp.tool", meta.Tool),
					attribute.String("mcp.transport", meta.Transport),
					attribute.String("http.request_id", meta.RequestID),
				),
			)
			defer span.End()

			start := time.Now()
			result, err := next(ctx, request)
			duration := time.Since(start)

			isError := err != nil || (result != nil && result.IsError)
			span.SetAttributes(attribute.Bool("mcp.is_error", isError))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			attrs := append(meta.LogAttrs(), "duration_ms", duration.Milliseconds(), "is_error", isError)
			if err != nil {
				logger.Error("mcp: tool call failed", append(attrs, "error", err)...)
			} else {
				logger.Info("mcp: tool call", attrs...)
			}

			metricAttrs := otelmetric.WithAttributes(
				attribute.String("mcp.tool", meta.Tool),
				attribute.Bool("mcp.is_error", isError),
			)
			if counter, cerr := mcpMeter.Int64Counter("mcp.tool.calls"); cerr == nil {
				counter.Add(ctx, 1, metricAttrs)
			}
			if hist, herr := mcpMeter.Float64Histogram("mcp.tool.duration", otelmetric.WithUnit("ms")); herr == nil {
				hist.Record(ctx, float64(duration.Milliseconds()), metricAttrs)
			}

			return result, err
		}
	}
}
