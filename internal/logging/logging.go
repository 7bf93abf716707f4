// Package logging routes the standard logger for CLI, server and TUI use.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
)

var verbose atomic.Bool

// SetVerbose enables Debugf output.
func SetVerbose(v bool) { verbose.Store(v) }

// Debugf logs only when verbose output is enabled.
func Debugf(format string, args ...any) {
	if verbose.Load() {
		log.Printf("debug: "+format, args...)
	}
}

// Warnf logs a non-fatal problem.
func Warnf(format string, args ...any) {
	log.Printf("warning: "+format, args...)
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "repolens", "repolens.log"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "repolens", "repolens.log"), nil
}

// ToFile sends the standard logger to path, creating parent directories.
// The returned func restores stderr and closes the file.
func ToFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// Discard silences the standard logger; used when no log file can be opened
// and the terminal is in use.
func Discard() func() {
	log.SetOutput(io.Discard)
	return func() { log.SetOutput(os.Stderr) }
}
