// =============================================================================
// TPA Claim Loader - Logging
// =============================================================================
//
// Leveled, printf-style logging to the console with an optional append-only
// log file. The Logger interface is what the pipeline and commands accept;
// tests pass Discard or a logger writing into a buffer.
//
// LEVELS (lowest to highest): debug, info, warn, error
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger is the logging interface used throughout the loader.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel converts a config value ("debug", "info", "warn", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// StdLogger writes timestamped lines to out (errors to errOut) and, when a
// log file is open, to the file as well.
type StdLogger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	errOut io.Writer
	file   *os.File
}

// New creates a logger at level writing to stdout/stderr. If logFile is not
// empty it is created (with parent directories) and appended to. Call Close
// when done.
func New(level Level, logFile string) (*StdLogger, error) {
	l := &StdLogger{level: level, out: os.Stdout, errOut: os.Stderr}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// NewWriter creates a logger writing every level to w. Used by tests.
func NewWriter(level Level, w io.Writer) *StdLogger {
	return &StdLogger{level: level, out: w, errOut: w}
}

// Close closes the log file if one was opened.
func (l *StdLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *StdLogger) line(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	text := fmt.Sprintf(msg, args...)
	ts := time.Now().Format("2006-01-02 15:04:05")
	line := ts + " [" + level.String() + "] " + text + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.out
	if level == LevelError {
		out = l.errOut
	}
	_, _ = io.WriteString(out, line)
	if l.file != nil {
		_, _ = io.WriteString(l.file, line)
	}
}

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.line(LevelDebug, msg, args...) }
func (l *StdLogger) Info(msg string, args ...interface{})  { l.line(LevelInfo, msg, args...) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.line(LevelWarn, msg, args...) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.line(LevelError, msg, args...) }

// Discard drops everything.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...interface{}) {}
func (discard) Info(string, ...interface{})  {}
func (discard) Warn(string, ...interface{})  {}
func (discard) Error(string, ...interface{}) {}
