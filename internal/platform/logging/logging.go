package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrick/logrotate/rotator"
)

const (
	rotateThresholdKB = 10 * 1024
	rotateMaxRolls    = 3
)

type Options struct {
	Level   string
	Format  string
	File    string
	Service string
	Process string
}

// Logger owns the process logger and, when a log file is configured, the
// rotator behind it.
type Logger struct {
	*slog.Logger
	rotator *rotator.Rotator
}

func New(opts Options) (*Logger, error) {
	var out io.Writer = os.Stderr
	var rot *rotator.Rotator
	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		r, err := rotator.New(path, rotateThresholdKB, false, rotateMaxRolls)
		if err != nil {
			return nil, fmt.Errorf("create log rotator: %w", err)
		}
		rot = r
		out = io.MultiWriter(os.Stderr, r)
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "text") {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Process != "" {
		logger = logger.With("process", opts.Process)
	}
	return &Logger{Logger: logger, rotator: rot}, nil
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Close() error {
	if l == nil || l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}
