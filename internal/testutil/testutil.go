// Package testutil provides shared helpers for package tests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
)

// TestLogger returns a logger that discards output unless MOLTBOT_TEST_LOG
// is set, in which case it writes text records to stderr.
func TestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	if os.Getenv("MOLTBOT_TEST_LOG") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
