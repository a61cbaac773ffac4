package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
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
		return slog.LevelInfo // Default to INFO for unknown
	}
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	traceFile     *os.File
)

// Init installs a text handler writing to output at the given level and makes
// it the slog default. Call once at startup, before any command runs.
//
// git owns stdout of a credential helper, so output is normally os.Stderr or
// a trace file.
func Init(level LogLevel, output io.Writer) {
	opts := &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}

	logger := slog.New(slog.NewTextHandler(output, opts))

	mu.Lock()
	defaultLogger = logger
	mu.Unlock()

	slog.SetDefault(logger)
}

// InitFromTrace interprets a trace setting the way git does for GIT_TRACE:
// empty, "0" or "false" leave tracing off (warnings only, to stderr),
// "1"/"true" or any other boolean-true value trace to stderr at debug level,
// and an absolute path appends debug output to that file.
//
// The returned function closes the trace file, if one was opened.
func InitFromTrace(setting string, stderr io.Writer) (func() error, error) {
	setting = strings.TrimSpace(setting)

	if setting == "" {
		Init(LevelWarn, stderr)
		return func() error { return nil }, nil
	}

	if enabled, err := strconv.ParseBool(setting); err == nil {
		if enabled {
			Init(LevelDebug, stderr)
		} else {
			Init(LevelWarn, stderr)
		}
		return func() error { return nil }, nil
	}

	if !strings.HasPrefix(setting, "/") && !isWindowsAbs(setting) {
		Init(LevelWarn, stderr)
		return func() error { return nil }, fmt.Errorf("trace setting %q is neither a boolean nor an absolute path", setting)
	}

	// #nosec G304 -- the trace path is chosen by the local user
	f, err := os.OpenFile(setting, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		Init(LevelWarn, stderr)
		return func() error { return nil }, fmt.Errorf("failed to open trace file: %w", err)
	}

	mu.Lock()
	traceFile = f
	mu.Unlock()

	Init(LevelDebug, f)
	return closeTrace, nil
}

func closeTrace() error {
	mu.Lock()
	defer mu.Unlock()
	if traceFile == nil {
		return nil
	}
	err := traceFile.Close()
	traceFile = nil
	return err
}

func isWindowsAbs(p string) bool {
	return len(p) > 2 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()

	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	slogAttrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}

	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
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
