// Package ui renders the parts of the screen that are plain text rather
// than Kitty graphics: the status bar and the link-hover hint bar. Both
// write raw ANSI directly to the terminal through an io.Writer instead
// of a screen-buffer widget tree, since the tcell.Screen the teacher's
// ui.StatusBar rendered through owns the whole terminal buffer and would
// fight graphics/adapter.go for control of stdin/stdout (see DESIGN.md).
// The segment layout (filename on the left, right-aligned info block) and
// render-by-direct-cell-write style are carried over from the
// teacher's ui/statusbar.go; the content of each segment is new, grounded
// on original_source's globals.rs `[bar]` section.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// StatusBar holds the fields rendered into the single status line.
type StatusBar struct {
	Filename    string
	Page        int // 0-indexed
	PageCount   int
	ZoomPercent int
	Alpha       bool
	Inverse     bool
	Message     string // transient message, replaces the right-hand block when set
}

// NewStatusBar returns a StatusBar with no document loaded yet.
func NewStatusBar() *StatusBar {
	return &StatusBar{Filename: "untitled"}
}

// Line renders the status bar text for a terminal cols columns wide, as a
// single line with no trailing newline and no SGR attributes. The caller
// combines it with a cursor move and reverse video (see Write).
func (s *StatusBar) Line(cols int) string {
	left := s.Filename
	if left == "" {
		left = "untitled"
	}

	var right string
	if s.Message != "" {
		right = s.Message
	} else {
		flags := flagsSegment(s.Alpha, s.Inverse)
		right = fmt.Sprintf("%d/%d  %d%%%s", s.Page+1, s.PageCount, s.ZoomPercent, flags)
	}

	leftW := runewidth.StringWidth(left)
	rightW := runewidth.StringWidth(right)
	gap := cols - leftW - rightW - 2
	if gap < 1 {
		budget := cols - rightW - 3
		if budget < 0 {
			budget = 0
		}
		left = runewidth.Truncate(left, budget, "…")
		gap = 1
	}

	line := " " + left + strings.Repeat(" ", gap) + right + " "
	return runewidth.Truncate(line, cols, "")
}

func flagsSegment(alpha, inverse bool) string {
	var b strings.Builder
	if alpha {
		b.WriteString("  A")
	}
	if inverse {
		b.WriteString("  I")
	}
	return b.String()
}

const (
	sgrReverseOn  = "\x1b[7m"
	sgrReverseOff = "\x1b[0m"
)

// Write paints the bar at the given 1-indexed row, restoring the cursor to
// where it was (the top-left corner, since the viewport owns cursor
// positioning otherwise) when done.
func (s *StatusBar) Write(out io.Writer, row, cols int) {
	fmt.Fprintf(out, "\x1b7\x1b[%d;1H%s%s%s\x1b8", row, sgrReverseOn, s.Line(cols), sgrReverseOff)
}
