// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transport names accepted by MOLTBOT_TRANSPORT.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	Transport    string // "http" serves /mcp, /sse and the test page; "stdio" speaks MCP on stdin/stdout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Per-client rate limit on the MCP endpoints. Zero RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// Orchestrator settings.
	StepInterval time.Duration // Wait between progress checkpoints.

	// UI resource store.
	UIMaxResources int // 0 keeps every rendered resource.

	// Journal settings. An empty path disables the journal.
	JournalPath          string
	JournalBatchSize     int
	JournalFlushInterval time.Duration

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool

	// Operational settings.
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var cfg Config
	var err error

	cfg.Port, err = envInt("MOLTBOT_PORT", 8787)
	collect(err)
	cfg.Transport = envStr("MOLTBOT_TRANSPORT", TransportHTTP)
	cfg.ReadTimeout, err = envDuration("MOLTBOT_READ_TIMEOUT", 30*time.Second)
	collect(err)
	// SSE and streamable responses stay open; zero disables the write deadline.
	cfg.WriteTimeout, err = envDuration("MOLTBOT_WRITE_TIMEOUT", 0)
	collect(err)
	cfg.RateLimitRPS, err = envFloat("MOLTBOT_RATE_LIMIT_RPS", 0)
	collect(err)
	cfg.RateLimitBurst, err = envInt("MOLTBOT_RATE_LIMIT_BURST", 20)
	collect(err)
	cfg.StepInterval, err = envDuration("MOLTBOT_STEP_INTERVAL", 500*time.Millisecond)
	collect(err)
	cfg.UIMaxResources, err = envInt("MOLTBOT_UI_MAX_RESOURCES", 0)
	collect(err)
	cfg.JournalPath = envStr("MOLTBOT_JOURNAL_PATH", "")
	cfg.JournalBatchSize, err = envInt("MOLTBOT_JOURNAL_BATCH_SIZE", 100)
	collect(err)
	cfg.JournalFlushInterval, err = envDuration("MOLTBOT_JOURNAL_FLUSH_INTERVAL", time.Second)
	collect(err)
	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", "moltbot")
	cfg.OTELInsecure, err = envBool("MOLTBOT_OTEL_INSECURE", false)
	collect(err)
	cfg.LogLevel = envStr("MOLTBOT_LOG_LEVEL", "info")
	cfg.ShutdownTimeout, err = envDuration("MOLTBOT_SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("MOLTBOT_PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.Transport != TransportHTTP && c.Transport != TransportStdio {
		errs = append(errs, fmt.Errorf("MOLTBOT_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportStdio, c.Transport))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("MOLTBOT_RATE_LIMIT_RPS must not be negative"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("MOLTBOT_RATE_LIMIT_BURST must be positive"))
	}
	if c.StepInterval <= 0 {
		errs = append(errs, fmt.Errorf("MOLTBOT_STEP_INTERVAL must be positive"))
	}
	if c.UIMaxResources < 0 {
		errs = append(errs, fmt.Errorf("MOLTBOT_UI_MAX_RESOURCES must not be negative"))
	}
	if c.JournalPath != "" {
		if c.JournalBatchSize <= 0 {
			errs = append(errs, fmt.Errorf("MOLTBOT_JOURNAL_BATCH_SIZE must be positive"))
		}
		if c.JournalFlushInterval <= 0 {
			errs = append(errs, fmt.Errorf("MOLTBOT_JOURNAL_FLUSH_INTERVAL must be positive"))
		}
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MOLTBOT_SHUTDOWN_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
