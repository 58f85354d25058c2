// Package moltbot is the public API for embedding the moltbot MCP server.
//
// Callers construct the server with options and run it until ctx is done:
//
//	app, err := moltbot.New(
//	    moltbot.WithVersion(version),
//	    moltbot.WithLogger(logger),
//	    moltbot.WithTaskHook(myHook{}),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The root package imports internal/*, never the reverse. Public types (Task,
// TaskEvent) are standalone structs; conversions from the internal model live
// in types.go.
package moltbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ashita-ai/moltbot/internal/config"
	"github.com/ashita-ai/moltbot/internal/ctxutil"
	"github.com/ashita-ai/moltbot/internal/journal"
	"github.com/ashita-ai/moltbot/internal/mcp"
	"github.com/ashita-ai/moltbot/internal/ratelimit"
	"github.com/ashita-ai/moltbot/internal/server"
	"github.com/ashita-ai/moltbot/internal/service/orchestrator"
	"github.com/ashita-ai/moltbot/internal/service/uistore"
	"github.com/ashita-ai/moltbot/internal/telemetry"
)

// App is the moltbot server lifecycle. Construct with New, run with Run.
type App struct {
	cfg          config.Config
	orch         *orchestrator.Orchestrator
	mcp          *mcp.Server
	srv          *server.Server  // nil on the stdio transport
	journal      *journal.Buffer // nil when the journal is disabled
	journalStore *journal.Store
	hooks        *hookDispatcher // nil without task hooks
	limiter      ratelimit.Limiter
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string

	stdin  io.Reader
	stdout io.Writer

	started          bool
	cancelBackground context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// New loads configuration, wires every subsystem and returns a ready-to-run
// App. It does not start progressions or accept connections; call Run.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.transport != "" {
		cfg.Transport = o.transport
	}
	if o.stepInterval != 0 {
		cfg.StepInterval = o.stepInterval
	}
	if o.journalPath != "" {
		cfg.JournalPath = o.journalPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("moltbot starting", "version", version, "transport", cfg.Transport, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), telemetry.Settings{
		Endpoint:       cfg.OTELEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Insecure:       cfg.OTELInsecure,
		Attributes:     []attribute.KeyValue{attribute.String("moltbot.transport", cfg.Transport)},
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	a := &App{
		cfg:          cfg,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
		stdin:        o.stdin,
		stdout:       o.stdout,
	}
	if a.stdin == nil {
		a.stdin = os.Stdin
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}

	var recorders []orchestrator.Option
	if cfg.JournalPath != "" {
		store, err := journal.Open(context.Background(), cfg.JournalPath)
		if err != nil {
			a.closeResources()
			return nil, err
		}
		a.journalStore = store
		a.journal = journal.NewBuffer(store, logger, cfg.JournalBatchSize, cfg.JournalFlushInterval)
		recorders = append(recorders, orchestrator.WithRecorder(a.journal))
		logger.Info("journal: enabled", "path", cfg.JournalPath)
	} else {
		logger.Info("journal: disabled (no MOLTBOT_JOURNAL_PATH)")
	}
	if len(o.taskHooks) > 0 {
		a.hooks = newHookDispatcher(o.taskHooks, logger)
		recorders = append(recorders, orchestrator.WithRecorder(a.hooks))
	}

	a.orch = orchestrator.New(logger, append([]orchestrator.Option{
		orchestrator.WithStepInterval(cfg.StepInterval),
	}, recorders...)...)
	if a.hooks != nil {
		a.hooks.lookup = a.orch.GetTask
	}

	// Evicted UI resources must disappear from resources/list too.
	ui := uistore.New(
		uistore.WithMaxEntries(cfg.UIMaxResources),
		uistore.WithEvictHook(func(uri string) { a.mcp.RemoveUIResource(uri) }),
	)

	// A nil *journal.Buffer inside the interface would defeat the nil check.
	var history mcp.HistorySource
	if a.journal != nil {
		history = a.journal
	}
	a.mcp = mcp.New(a.orch, ui, history, logger, version)

	if cfg.Transport == config.TransportHTTP {
		a.srv = a.newHTTPServer(o)
	}

	return a, nil
}

func (a *App) newHTTPServer(o resolvedOptions) *server.Server {
	var limiter ratelimit.Limiter
	if a.cfg.RateLimitRPS > 0 {
		limiter = ratelimit.NewMemoryLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
		a.limiter = limiter
		a.logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", a.cfg.RateLimitRPS, "burst", a.cfg.RateLimitBurst)
	} else {
		a.logger.Info("rate limiting: disabled")
	}

	var journalStatus server.JournalStatus
	if a.journal != nil {
		journalStatus = a.journal
	}

	routes := make([]func(*http.ServeMux), 0, len(o.routeRegistrars))
	for _, r := range o.routeRegistrars {
		routes = append(routes, r)
	}
	middlewares := make([]func(http.Handler) http.Handler, 0, len(o.middlewares))
	for _, mw := range o.middlewares {
		middlewares = append(middlewares, mw)
	}

	return server.New(server.Config{
		MCPServer:    a.mcp.MCPServer(),
		Logger:       a.logger,
		Limiter:      limiter,
		Tasks:        a.orch.Stats,
		Journal:      journalStatus,
		ExtraRoutes:  routes,
		Middlewares:  middlewares,
		Port:         a.cfg.Port,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		Version:      a.version,
	})
}

// Handler returns the HTTP handler, or nil on the stdio transport. Useful for
// mounting moltbot inside another server or for tests.
func (a *App) Handler() http.Handler {
	if a.srv == nil {
		return nil
	}
	return a.srv.Handler()
}

// Run starts background services and serves the configured transport until
// ctx is done, the HTTP server fails, or stdin reaches EOF. It then calls
// Shutdown.
func (a *App) Run(ctx context.Context) error {
	// Progressions and journal flushes outlive ctx so Shutdown can drain them.
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancelBackground = cancel
	a.started = true

	a.orch.Start(bgCtx)
	if a.journal != nil {
		a.journal.Start(bgCtx)
	}

	if a.cfg.Transport == config.TransportStdio {
		return a.runStdio(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	}

	return a.Shutdown(context.Background())
}

func (a *App) runStdio(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(a.mcp.MCPServer())
	stdio.SetErrorLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelError))
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return ctxutil.WithTransport(ctx, config.TransportStdio)
	})

	a.logger.Info("stdio transport listening")
	err := stdio.Listen(ctx, a.stdin, a.stdout)
	shutdownErr := a.Shutdown(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio: %w", err)
	}
	return shutdownErr
}

// Shutdown stops the server in phases: (1) close HTTP connections,
// (2) wait for running tasks, (3) deliver queued hook events, (4) flush the
// journal. Each phase gets its own MOLTBOT_SHUTDOWN_TIMEOUT. It then closes
// the journal database, the rate limiter and the OTEL providers. Safe to call
// more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() { a.shutdownErr = a.shutdown(ctx) })
	return a.shutdownErr
}

func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("moltbot shutting down")
	timeout := a.cfg.ShutdownTimeout

	// Phase 1: HTTP drain.
	if a.srv != nil {
		httpCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := a.srv.Shutdown(httpCtx); err != nil {
			a.logger.Error("http shutdown error", "error", err)
		}
		cancel()
	}

	// Phase 2: in-flight progressions.
	var drainErr error
	orchCtx, cancel := context.WithTimeout(ctx, timeout)
	if err := a.orch.Drain(orchCtx); err != nil {
		a.logger.Warn("running tasks abandoned", "error", err, "running", a.orch.Stats().Running)
		drainErr = err
	}
	cancel()

	// Phase 3: hook delivery.
	if a.hooks != nil {
		hookCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := a.hooks.Close(hookCtx); err != nil {
			a.logger.Warn("task hook events lost", "error", err)
		}
		cancel()
	}

	// Phase 4: journal flush.
	if a.journal != nil && a.started {
		journalCtx, cancel := context.WithTimeout(ctx, timeout)
		a.journal.Drain(journalCtx)
		cancel()
		if n := a.journal.Len(); n > 0 {
			a.logger.Error("journal drain incomplete, unflushed events lost", "remaining_events", n)
		}
	}

	if a.cancelBackground != nil {
		a.cancelBackground()
	}
	a.closeResources()

	a.logger.Info("moltbot stopped")
	return drainErr
}

func (a *App) closeResources() {
	if a.journalStore != nil {
		if err := a.journalStore.Close(); err != nil {
			a.logger.Warn("journal close failed", "error", err)
		}
	}
	if a.limiter != nil {
		_ = a.limiter.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
}
