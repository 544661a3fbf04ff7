package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Logger writes "[subsystem] message" lines. It is passed explicitly to each
// component; there is no package-level logger.
type Logger struct {
	out       *log.Logger
	subsystem string
	debug     bool
}

// New creates a logger writing to w
func New(w io.Writer, debug bool) *Logger {
	return &Logger{
		out:       log.New(w, "", log.LstdFlags),
		subsystem: "main",
		debug:     debug,
	}
}

// Discard returns a logger that drops everything (for tests)
func Discard() *Logger {
	return New(io.Discard, false)
}

// Open creates a logger that appends to the run log file and mirrors to stderr.
// The returned closer releases the file.
func Open(path string, debug bool) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(io.MultiWriter(os.Stderr, f), debug), f, nil
}

// With returns a logger tagged with a different subsystem
func (l *Logger) With(subsystem string) *Logger {
	return &Logger{out: l.out, subsystem: subsystem, debug: l.debug}
}

// DebugEnabled reports whether Debug lines are written
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

// Info logs an informational message (always shown)
func (l *Logger) Info(format string, args ...any) {
	l.printf("", format, args...)
}

// Debug logs a debug message (only shown when debug is enabled)
func (l *Logger) Debug(format string, args ...any) {
	if l.debug {
		l.printf("DEBUG ", format, args...)
	}
}

// Warn logs a recoverable problem
func (l *Logger) Warn(format string, args ...any) {
	l.printf("WARN ", format, args...)
}

// Error logs a failure
func (l *Logger) Error(format string, args ...any) {
	l.printf("ERROR ", format, args...)
}

func (l *Logger) printf(level, format string, args ...any) {
	l.out.Printf("%s[%s] %s", level, l.subsystem, fmt.Sprintf(format, args...))
}

// Truncate truncates a string to maxLen and adds ellipsis
func Truncate(s string, maxLen int) string {
	// Replace newlines with spaces for one-line logs
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
