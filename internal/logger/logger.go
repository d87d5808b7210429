// Package logger is the engine's verbose stderr logger. It stays silent
// unless --verbose is set; the chunking, embedding and search phases
// narrate their progress through it without pulling a logging framework
// into the hot path.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose toggles verbose output. Wired to the --verbose flag.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output. Defaults to os.Stderr; tests capture it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
}

// Debug records fine-grained pipeline steps: leases, chunk counts,
// per-document progress.
func Debug(format string, args ...any) {
	logf("DEBUG", format, args...)
}

// Info records phase-level progress: worker pool start, index rebuilds,
// search completion.
func Info(format string, args ...any) {
	logf("INFO", format, args...)
}

// Warn records recoverable trouble: failed leases, skipped files,
// degraded search legs.
func Warn(format string, args ...any) {
	logf("WARN", format, args...)
}

// Section prints a divider before a processing phase, e.g. the search
// execution trace.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
