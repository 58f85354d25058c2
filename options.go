package moltbot

import (
	"io"
	"log/slog"
	"time"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port            int
	transport       string
	logger          *slog.Logger
	version         string
	stepInterval    time.Duration
	journalPath     string
	stdin           io.Reader
	stdout          io.Writer
	taskHooks       []TaskHook
	routeRegistrars []RouteRegistrar
	middlewares     []Middleware
}

// WithPort overrides the TCP port from config (MOLTBOT_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithTransport overrides MOLTBOT_TRANSPORT. Accepts "http" or "stdio".
func WithTransport(transport string) Option {
	return func(o *resolvedOptions) { o.transport = transport }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used. On the stdio transport the
// logger must not write to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version reported by initialize and /health.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithStepInterval overrides the simulated work time between progress
// checkpoints (MOLTBOT_STEP_INTERVAL).
func WithStepInterval(d time.Duration) Option {
	return func(o *resolvedOptions) { o.stepInterval = d }
}

// WithJournalPath enables the SQLite event journal at path
// (MOLTBOT_JOURNAL_PATH).
func WithJournalPath(path string) Option {
	return func(o *resolvedOptions) { o.journalPath = path }
}

// WithStdio replaces os.Stdin and os.Stdout for the stdio transport.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *resolvedOptions) {
		o.stdin = in
		o.stdout = out
	}
}

// WithTaskHook registers a hook for task lifecycle notifications.
func WithTaskHook(hook TaskHook) Option {
	return func(o *resolvedOptions) { o.taskHooks = append(o.taskHooks, hook) }
}

// WithExtraRoutes registers additional routes on the shared HTTP mux.
// Registrars are called in registration order.
func WithExtraRoutes(fn RouteRegistrar) Option {
	return func(o *resolvedOptions) { o.routeRegistrars = append(o.routeRegistrars, fn) }
}

// WithMiddleware registers an outermost HTTP middleware.
// The first-registered middleware is outermost.
func WithMiddleware(mw Middleware) Option {
	return func(o *resolvedOptions) { o.middlewares = append(o.middlewares, mw) }
}
