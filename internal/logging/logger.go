// Package logging builds the structured logger shared by every command.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// maxLogSizeMB is the maximum log file size before rotation.
	maxLogSizeMB = 5
	// maxLogBackups is the number of rotated log files to keep.
	maxLogBackups = 3
)

// Options configures InitLogger
type Options struct {
	Path   string     // Log file; rotated by size
	Level  slog.Level // Minimum level; ignored when Debug is set
	Debug  bool       // Debug level with source locations
	Stderr bool       // Also write human-readable text to stderr
}

// InitLogger creates a JSON logger writing to opts.Path with size based
// rotation. The returned closer releases the log file.
//
// When Debug is true, the logger uses DEBUG level and includes source locations.
func InitLogger(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("log file path is required")
	}

	// Create log directory if it doesn't exist
	logDir := filepath.Dir(opts.Path)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}

	level := opts.Level
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.Debug,
	}

	var handler slog.Handler = slog.NewJSONHandler(rotator, handlerOpts)
	if opts.Stderr {
		handler = fanout{handler, slog.NewTextHandler(os.Stderr, handlerOpts)}
	}

	return slog.New(handler), rotator, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fanout sends every record to all of its handlers
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	result := make(fanout, len(f))
	for i, h := range f {
		result[i] = h.WithAttrs(attrs)
	}
	return result
}

func (f fanout) WithGroup(name string) slog.Handler {
	result := make(fanout, len(f))
	for i, h := range f {
		result[i] = h.WithGroup(name)
	}
	return result
}
