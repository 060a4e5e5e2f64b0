// Package globals holds the small set of process-wide values spec.md §9
// calls out as conceptually singleton: image padding, the software id used
// to namespace temp files, and the running flag background threads poll to
// exit cleanly. Each is initialised once at startup and is either
// immutable thereafter or (for the running flag) a single atomic bool.
package globals

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"sync"
	"sync/atomic"
)

var (
	paddingOnce sync.Once
	padding     int

	softwareIDOnce sync.Once
	softwareID     string

	running atomic.Bool
)

// SetPadding computes and latches the global padding P, per spec.md §9:
// P = max(pxpercol, pxperrow) * render_precision / scale_min, rounded up.
// Only the first call takes effect; later calls are no-ops, matching "the
// global padding is derived once at startup."
func SetPadding(pxpercol, pxperrow, renderPrecision, scaleMin float64) int {
	paddingOnce.Do(func() {
		cell := pxpercol
		if pxperrow > cell {
			cell = pxperrow
		}
		padding = int(math.Ceil(cell * renderPrecision / scaleMin))
	})
	return padding
}

// Padding returns the latched padding value (0 before SetPadding runs).
func Padding() int { return padding }

// SoftwareID lazily generates (once) a short random hex token identifying
// this process instance, used to namespace temp file paths.
func SoftwareID() string {
	softwareIDOnce.Do(func() {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			softwareID = "000000000000"
			return
		}
		softwareID = hex.EncodeToString(buf)
	})
	return softwareID
}

// SetRunning / Running implement the is_running flag background threads
// observe to exit cleanly on quit.
func SetRunning(v bool) { running.Store(v) }
func Running() bool     { return running.Load() }
