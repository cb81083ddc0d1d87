package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskFunc rewrites a rendered line before it is written. The secret
// masker installs itself here so no resolved secret ever reaches stderr.
type MaskFunc func(string) string

var (
	defaultLogger *slog.Logger

	maskMu sync.RWMutex
	maskFn MaskFunc
)

// InitForCLI initializes the logging system for CLI use. Diagnostics go to
// output (normally stderr); debug lines are emitted only when verbose is set.
// This should be called once at application startup.
func InitForCLI(verbose bool, output io.Writer) {
	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	handler := &cliHandler{out: output, min: level.SlogLevel()}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// SetMasker installs the function applied to every rendered line.
// Passing nil removes the current masker.
func SetMasker(fn MaskFunc) {
	maskMu.Lock()
	maskFn = fn
	maskMu.Unlock()
}

func applyMask(s string) string {
	maskMu.RLock()
	fn := maskFn
	maskMu.RUnlock()
	if fn == nil {
		return s
	}
	return fn(s)
}

// cliHandler renders log records as the plain diagnostic lines the CLI
// promises: debug entries carry the [VERBOSE] prefix, warnings and errors
// carry Warning:/Error:, informational lines are bare. Subsystem and error
// attributes are retained on the record but not rendered.
type cliHandler struct {
	out   io.Writer
	min   slog.Level
	attrs []slog.Attr
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *cliHandler) Handle(_ context.Context, r slog.Record) error {
	var prefix string
	switch {
	case r.Level <= slog.LevelDebug:
		prefix = "[VERBOSE] "
	case r.Level == slog.LevelWarn:
		prefix = "Warning: "
	case r.Level >= slog.LevelError:
		prefix = "Error: "
	}
	line := applyMask(prefix + r.Message)
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *cliHandler) WithGroup(string) slog.Handler {
	return h
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	var slogAttrs []slog.Attr
	slogAttrs = append(slogAttrs, slog.String("subsystem", subsystem))
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
		msg = fmt.Sprintf("%s: %v", msg, err)
	}

	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message, visible only in verbose mode.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// Default returns a logger writing to stderr, initializing one if
// InitForCLI has not run. Intended for early startup paths.
func Default() *slog.Logger {
	if defaultLogger == nil {
		InitForCLI(false, os.Stderr)
	}
	return defaultLogger
}
