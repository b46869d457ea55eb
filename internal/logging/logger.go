package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorBlue   = "\033[1;34m"
	colorGreen  = "\033[1;32m"
	colorYellow = "\033[1;33m"
	colorRed    = "\033[1;31m"
	colorCyan   = "\033[36m"
)

// Logger prints tagged status lines for the operator
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     w,
	}
}

// Writer returns the destination of log lines
func (l *Logger) Writer() io.Writer {
	return l.out
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(colorBlue, "[INFO]", format, args...)
}

// Success logs a completed step
func (l *Logger) Success(format string, args ...interface{}) {
	l.emit(colorGreen, "[SUCCESS]", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(colorYellow, "[WARNING]", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(colorRed, "[ERROR]", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit(colorCyan, "[DEBUG]", format, args...)
}

// Highlight wraps s in the given emphasis unless color is disabled.
// Known styles: "bold", "yellow", "cyan", "green", "red".
func (l *Logger) Highlight(style, s string) string {
	if l.noColor {
		return s
	}
	codes := map[string]string{
		"bold":   "\033[1m",
		"yellow": "\033[33m",
		"cyan":   "\033[36m",
		"green":  "\033[32m",
		"red":    "\033[31m",
	}
	code, ok := codes[style]
	if !ok {
		return s
	}
	return code + s + colorReset
}

func (l *Logger) emit(color, tag, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.noColor {
		fmt.Fprintf(l.out, "%s%s%s %s\n", color, tag, colorReset, msg)
	} else {
		fmt.Fprintf(l.out, "%s %s\n", tag, msg)
	}
}

// Secret represents a value that should be redacted in logs
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
