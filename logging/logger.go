// Package logging provides the FlexKit structured-logging add-on: per-call
// log entries with input/output capture, pluggable output formatters, and a
// small diagnostic logger used by the configuration sources themselves.
//
// Sensitive values never reach a sink unmasked: entry parameters pass through
// a masking engine before formatting, and the Secret type redacts values that
// end up in diagnostic output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger is the diagnostic logger used by configuration sources. It is not
// the structured entry pipeline; see Interceptor for that.
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
}

// New creates a diagnostic logger writing to stderr.
func New(debug, noColor bool) *Logger {
	return &Logger{debug: debug, noColor: noColor, out: os.Stderr}
}

// NewWithWriter creates a diagnostic logger writing to w (used in tests).
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{debug: debug, noColor: noColor, out: w}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("\033[32m✓\033[0m", "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("\033[33m⚠\033[0m", "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("\033[31m✗\033[0m", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("\033[36m[DEBUG]\033[0m", "[DEBUG]", format, args...)
}

func (l *Logger) emit(coloredPrefix, plainPrefix, format string, args ...interface{}) {
	prefix := coloredPrefix
	if l.noColor {
		prefix = plainPrefix
	}
	fmt.Fprintf(l.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Secret represents a value that should be redacted in diagnostic logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
