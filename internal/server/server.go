// Package server exposes the MCP server over HTTP.
//
// Routes:
//
//	/mcp             streamable HTTP transport
//	/sse, /message   legacy SSE transport
//	/, /test         browser test page
//	/health          liveness and task counts
//
// Anything else is a plain-text 404.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/moltbot/internal/ctxutil"
	"github.com/ashita-ai/moltbot/internal/model"
	"github.com/ashita-ai/moltbot/internal/ratelimit"
)

// Transport names recorded on the context of every MCP call.
const (
	TransportStreamable = "streamable"
	TransportSSE        = "sse"
)

// Server is the moltbot HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	sse        *mcpserver.SSEServer
	logger     *slog.Logger
}

// Config holds dependencies and settings for New.
// Optional (nil = disabled): Limiter, Tasks, Journal.
type Config struct {
	MCPServer *mcpserver.MCPServer
	Logger    *slog.Logger

	Limiter ratelimit.Limiter
	Tasks   func() model.Stats
	Journal JournalStatus

	// ExtraRoutes run after the built-in routes are registered and share
	// the middleware chain.
	ExtraRoutes []func(mux *http.ServeMux)
	// Middlewares wrap the whole chain. The first entry is outermost.
	Middlewares []func(http.Handler) http.Handler

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// New creates the HTTP server with all routes and middleware configured.
func New(cfg Config) *Server {
	h := &handlers{
		tasks:     cfg.Tasks,
		journal:   cfg.Journal,
		version:   cfg.Version,
		startedAt: time.Now(),
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	streamable := mcpserver.NewStreamableHTTPServer(cfg.MCPServer,
		mcpserver.WithHTTPContextFunc(transportContext(TransportStreamable)),
	)
	sse := mcpserver.NewSSEServer(cfg.MCPServer,
		mcpserver.WithSSEEndpoint("/sse"),
		mcpserver.WithMessageEndpoint("/message"),
		mcpserver.WithSSEContextFunc(transportContext(TransportSSE)),
		mcpserver.WithHTTPServer(httpServer),
	)

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil {
		limit = ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, cfg.Logger)
	}

	mux := http.NewServeMux()

	// MCP transports (rate limited per client IP when enabled).
	mux.Handle("/mcp", limit(streamable))
	mux.Handle("GET /sse", limit(sse.SSEHandler()))
	mux.Handle("POST /message", limit(sse.MessageHandler()))

	mux.HandleFunc("GET /health", h.handleHealth)

	// "/" is the catch-all; the test page is only served for exact matches.
	mux.HandleFunc("GET /{$}", h.handleTestPage)
	mux.HandleFunc("GET /test", h.handleTestPage)
	mux.HandleFunc("/", handleNotFound)

	for _, register := range cfg.ExtraRoutes {
		register(mux)
	}

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}
	httpServer.Handler = handler

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		sse:        sse,
		logger:     cfg.Logger,
	}
}

// transportContext tags MCP calls with the transport and the HTTP request ID.
func transportContext(transport string) func(ctx context.Context, r *http.Request) context.Context {
	return func(ctx context.Context, r *http.Request) context.Context {
		ctx = ctxutil.WithTransport(ctx, transport)
		if id := ctxutil.RequestIDFromContext(r.Context()); id != "" {
			ctx = ctxutil.WithRequestID(ctx, id)
		}
		return ctx
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins serving HTTP requests. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes open SSE sessions, stops accepting connections and waits
// for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.sse.Shutdown(ctx)
}
