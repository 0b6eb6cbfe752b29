// Package logger provides logging for the shtocker CLI. Console output
// goes to stderr at info level, or debug level when the --verbose flag
// is set. An optional log file receives everything regardless of the
// console level.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	console zerolog.Logger
	file    *zerolog.Logger
)

func init() {
	console = newConsole(os.Stderr).Level(zerolog.InfoLevel)
}

func newConsole(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(cw).With().Timestamp().Logger()
}

// SetVerbose enables or disables debug output on the console.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		console = console.Level(zerolog.DebugLevel)
	} else {
		console = console.Level(zerolog.InfoLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects console output. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	lvl := zerolog.InfoLevel
	if verbose {
		lvl = zerolog.DebugLevel
	}
	console = newConsole(w).Level(lvl)
}

// SetFile opens (or creates) a log file that receives all messages at
// debug level with structured timestamps.
func SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	l := zerolog.New(f).With().Timestamp().Logger()
	file = &l
	return nil
}

// Debug logs a debug-level message.
func Debug(format string, args ...any) {
	emit(zerolog.DebugLevel, format, args...)
}

// Info logs an info-level message.
func Info(format string, args ...any) {
	emit(zerolog.InfoLevel, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	emit(zerolog.WarnLevel, format, args...)
}

// Error logs an error-level message.
func Error(format string, args ...any) {
	emit(zerolog.ErrorLevel, format, args...)
}

func emit(lvl zerolog.Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	console.WithLevel(lvl).Msgf(format, args...)
	if file != nil {
		file.WithLevel(lvl).Msgf(format, args...)
	}
}
