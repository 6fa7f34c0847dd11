// Package logger provides leveled logging for docqa.
// Debug, Info and Warn messages are printed only in verbose mode
// (--verbose or DOCQA_VERBOSE=1) so the answering pipeline can be traced.
// Error messages are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

// EnvVerbose is the environment variable that enables verbose mode.
const EnvVerbose = "DOCQA_VERBOSE"

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetVerboseFromEnv enables verbose mode when EnvVerbose parses as true.
func SetVerboseFromEnv() {
	v, err := strconv.ParseBool(os.Getenv(EnvVerbose))
	if err == nil && v {
		SetVerbose(true)
	}
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(force bool, level, component, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose && !force {
		return
	}
	prefix := "[" + level + "] "
	if component != "" {
		prefix += component + ": "
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(false, "DEBUG", "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(false, "INFO", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write(false, "WARN", "", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	write(true, "ERROR", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Logger prefixes every message with a component name.
type Logger struct {
	component string
}

// Named returns a logger for the given component.
func Named(component string) *Logger {
	return &Logger{component: component}
}

// Debug prints a message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	write(false, "DEBUG", l.component, format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func (l *Logger) Info(format string, args ...any) {
	write(false, "INFO", l.component, format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func (l *Logger) Warn(format string, args ...any) {
	write(false, "WARN", l.component, format, args...)
}

// Error prints an error message regardless of verbose mode.
func (l *Logger) Error(format string, args ...any) {
	write(true, "ERROR", l.component, format, args...)
}
