// Package diag is a tiny in-memory diagnostics ring buffer. Nothing in
// this program can write to a console while the terminal is in raw/
// alt-screen mode, so log lines accumulate here and are only flushed to
// stderr when the program exits, after the terminal has been restored
// (spec.md §7's "user-visible failures print to stderr with a single line"
// applies to the final flush, not every recorded entry).
package diag

import (
	"fmt"
	"os"
	"sync"
)

const capacity = 256

var (
	mu      sync.Mutex
	entries []string
)

// Record appends a formatted line to the buffer, dropping the oldest
// entry once capacity is reached.
func Record(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, fmt.Sprintf(format, args...))
	if len(entries) > capacity {
		entries = entries[len(entries)-capacity:]
	}
}

// Flush writes every recorded entry to stderr, oldest first.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	for _, e := range entries {
		fmt.Fprintln(os.Stderr, e)
	}
	entries = nil
}
