// Package bglog is the engine's ambient logging sink: a swappable
// *log.Logger behind a mutex, used for every non-fatal diagnostic (map
// failure, regex runtime error, directory read failure) that would
// otherwise have nowhere to go.
package bglog

import (
	"log"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	logger = log.New(os.Stderr, "boringrep: ", log.LstdFlags)
)

// SetOutput replaces the destination logger. A test can use this to
// silence output (log.New(io.Discard, "", 0)) without racing the default
// logger.
func SetOutput(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Printf logs a formatted diagnostic. It never returns an error and never
// aborts the caller — every call site in this module treats logging as a
// side effect of an already-non-fatal error path.
func Printf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Printf(format, args...)
}
