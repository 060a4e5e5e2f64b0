// Package termdrv owns the raw-mode lifecycle and window-size polling that
// spec.md §1 calls out as an external collaborator ("raw-mode terminal
// setup and restoration"), plus the literal wire-protocol escape sequences
// from spec.md §6 that every other component writes. Grounded on
// original_source's src/tui.rs (termios raw mode), src/drivers/commands.rs
// (mouse/pointer-shape/clear-images escapes) and src/threads/winsize.rs
// (100ms size poller).
package termdrv

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	escEnterAltScreen = "\x1b[?25l\x1b[s\x1b[?47h\x1b[?1049h"
	escLeaveAltScreen = "\x1b[?1049l\x1b[?47l\x1b[u\x1b[?25h"

	escEnableMousePixels  = "\x1b[?1000h\x1b[?1002h\x1b[?1003h\x1b[?1015h\x1b[?1016h"
	escDisableMousePixels = "\x1b[?1016l\x1b[?1015l\x1b[?1003l\x1b[?1002l\x1b[?1000l"

	escClearImages = "\x1b_Ga=d,d=a\x1b\\"

	// escClearBelowCursor saves the cursor, moves it to the top-left cell,
	// erases from there to the end of the screen (ED 0 rather than the ED 2
	// full-screen clear that corrupts images mid-display on some terminals)
	// and restores the cursor.
	escClearBelowCursor = "\x1b[s\x1b[1;1H\x1b[0J\x1b[u"
)

// PointerShape selects the OSC 22 pointer glyph shown while hovering.
type PointerShape int

const (
	PointerDefault PointerShape = iota
	PointerHand
	PointerText
)

func (p PointerShape) name() string {
	switch p {
	case PointerHand:
		return "pointer"
	case PointerText:
		return "text"
	default:
		return ""
	}
}

// Driver owns the raw-mode state and the process-wide terminal-size
// singleton described in spec.md §5 and §9 ("the process-global terminal
// size: read many; written by the size poller only").
type Driver struct {
	out   io.Writer
	fd    int
	state *term.State

	sizeMu sync.RWMutex
	cols   int
	rows   int
	xpx    int
	ypx    int
}

// New wraps the given tty for writes; fd is typically int(os.Stdin.Fd()).
func New(out io.Writer, fd int) *Driver {
	return &Driver{out: out, fd: fd}
}

// EnterRaw puts the terminal into raw mode and enters the alternate screen
// with pixel-precise mouse reporting enabled, per spec.md §6.
func (d *Driver) EnterRaw() error {
	state, err := term.MakeRaw(d.fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	d.state = state

	if _, err := io.WriteString(d.out, escEnterAltScreen+escEnableMousePixels); err != nil {
		return fmt.Errorf("enter alt screen: %w", err)
	}
	return d.RefreshSize()
}

// ExitRaw reverses EnterRaw. Safe to call from a panic-recovery path; it
// never returns an error it can't swallow, matching spec.md §7's guarantee
// that mid-run errors never leave the terminal corrupted.
func (d *Driver) ExitRaw() {
	io.WriteString(d.out, escDisableMousePixels+escLeaveAltScreen)
	if d.state != nil {
		term.Restore(d.fd, d.state)
	}
}

// ClearImages emits the "clear all images" escape, called once per frame.
func (d *Driver) ClearImages() error {
	_, err := io.WriteString(d.out, escClearImages)
	return err
}

// ClearBelowCursor clears rows below the cursor without corrupting images
// already displayed this frame.
func (d *Driver) ClearBelowCursor() error {
	_, err := io.WriteString(d.out, escClearBelowCursor)
	return err
}

// SetPointerShape emits the OSC 22 pointer-shape escape.
func (d *Driver) SetPointerShape(shape PointerShape) error {
	_, err := fmt.Fprintf(d.out, "\x1b]22;%s\x1b\\", shape.name())
	return err
}

// MoveCursor saves the cursor position and then positions the cursor at
// 1-indexed (col,row); RestoreCursor brings the saved position back (used
// before/after image display commands per spec.md §6).
func (d *Driver) MoveCursor(col, row int) error {
	_, err := fmt.Fprintf(d.out, "\x1b[s\x1b[%d;%dH", row, col)
	return err
}

// RestoreCursor undoes MoveCursor's save.
func (d *Driver) RestoreCursor() error {
	_, err := io.WriteString(d.out, "\x1b[u")
	return err
}

// Size is the terminal's reported dimensions in cells and pixels.
type Size struct {
	Cols, Rows int
	XPixel     int
	YPixel     int
}

// PxPerCol / PxPerRow derive the cell pixel size used throughout §4.1's
// crop math.
func (s Size) PxPerCol() float64 {
	if s.Cols == 0 {
		return 1
	}
	return float64(s.XPixel) / float64(s.Cols)
}

func (s Size) PxPerRow() float64 {
	if s.Rows == 0 {
		return 1
	}
	return float64(s.YPixel) / float64(s.Rows)
}

// RefreshSize queries the kernel for the current window size via
// TIOCGWINSZ and updates the singleton (read it back with Size). Returns an
// error if the query fails.
func (d *Driver) RefreshSize() error {
	ws, err := unix.IoctlGetWinsize(d.fd, unix.TIOCGWINSZ)
	if err != nil {
		return fmt.Errorf("query window size: %w", err)
	}

	d.sizeMu.Lock()
	d.cols = int(ws.Col)
	d.rows = int(ws.Row)
	d.xpx = int(ws.Xpixel)
	d.ypx = int(ws.Ypixel)
	d.sizeMu.Unlock()
	return nil
}

// Size returns a read-mostly snapshot of the terminal's current dimensions.
func (d *Driver) Size() Size {
	d.sizeMu.RLock()
	defer d.sizeMu.RUnlock()
	return Size{Cols: d.cols, Rows: d.rows, XPixel: d.xpx, YPixel: d.ypx}
}

// PollSize runs a 100ms periodic sampler publishing a value to changes
// whenever the dimensions differ from the last sample, per
// original_source's threads/winsize.rs. Exits when done is closed.
func (d *Driver) PollSize(done <-chan struct{}, changes chan<- Size) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	last := d.Size()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := d.RefreshSize(); err != nil {
				continue
			}
			cur := d.Size()
			if cur != last {
				last = cur
				select {
				case changes <- cur:
				default:
				}
			}
		}
	}
}

// Stdin's fd, used by EnterRaw/RefreshSize when wired against the real tty.
func StdinFd() int { return int(os.Stdin.Fd()) }
