package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	logger, err := New(Options{Level: "info", Format: "json", File: path, Service: "sealedgov", Process: "test"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hello", "event", "logging_test", "module", "internal/platform/logging", "layer", "platform")
	if err := logger.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), `"event":"logging_test"`) || !strings.Contains(string(raw), `"process":"test"`) {
		t.Fatalf("unexpected log file contents: %s", raw)
	}
}
