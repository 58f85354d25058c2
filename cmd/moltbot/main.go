package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/moltbot"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	stdio := flag.Bool("stdio", false, "speak MCP on stdin/stdout instead of HTTP (same as MOLTBOT_TRANSPORT=stdio)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	// Load .env before reading the logging variables; New loads it again.
	_ = godotenv.Load()

	transport := os.Getenv("MOLTBOT_TRANSPORT")
	if *stdio {
		transport = "stdio"
	}

	// stdout carries the protocol on the stdio transport.
	var out io.Writer = os.Stdout
	if transport == "stdio" {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("MOLTBOT_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []moltbot.Option{
		moltbot.WithLogger(logger),
		moltbot.WithVersion(version),
	}
	if transport != "" {
		opts = append(opts, moltbot.WithTransport(transport))
	}

	app, err := moltbot.New(opts...)
	if err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func logLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
