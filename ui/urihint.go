package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/monoamine11231/MeowPDF/config"
)

// URIHint is the small overlay shown while the pointer hovers a link,
// echoing the target so a mouse user can see where a click will go before
// committing to it (supplemental feature, see SPEC_FULL.md; there is no
// teacher analogue — grounded on original_source's ConfigViewerUriHint,
// which configures exactly this: enabled/background/foreground/width).
type URIHint struct {
	cfg *config.ViewerURIHint
}

// NewURIHint builds a hint renderer from the uri_hint config section.
func NewURIHint(cfg *config.ViewerURIHint) *URIHint {
	return &URIHint{cfg: cfg}
}

func ansiColor(name string, background bool) string {
	codes := map[string]int{
		"black": 0, "red": 1, "green": 2, "yellow": 3,
		"blue": 4, "magenta": 5, "cyan": 6, "white": 7,
	}
	code, ok := codes[strings.ToLower(name)]
	if !ok {
		code = 7
	}
	base := 30
	if background {
		base = 40
	}
	return fmt.Sprintf("\x1b[%dm", base+code)
}

// Write paints uri over the bottom-right corner of the viewport area
// (row, cols wide), sized to cfg.Width * cols, truncated and widened to a
// fixed box so it never reflows other content as the hover target changes.
func (h *URIHint) Write(out io.Writer, uri string, row, cols int) {
	if h.cfg == nil || !h.cfg.Enabled || uri == "" {
		return
	}

	width := int(float64(cols) * h.cfg.Width)
	if width < 8 {
		width = 8
	}
	if width > cols {
		width = cols
	}

	text := " " + runewidth.Truncate(uri, width-2, "…") + " "
	text = runewidth.FillRight(text, width)

	col := cols - width + 1
	if col < 1 {
		col = 1
	}

	fg := ansiColor(h.cfg.Foreground, false)
	bg := ansiColor(h.cfg.Background, true)
	fmt.Fprintf(out, "\x1b7\x1b[%d;%dH%s%s%s\x1b[0m\x1b8", row, col, fg, bg, text)
}

// Clear blanks the hint box, used when the pointer leaves every link.
func (h *URIHint) Clear(out io.Writer, row, cols int) {
	if h.cfg == nil || !h.cfg.Enabled {
		return
	}
	width := int(float64(cols) * h.cfg.Width)
	if width < 8 {
		width = 8
	}
	if width > cols {
		width = cols
	}
	col := cols - width + 1
	if col < 1 {
		col = 1
	}
	fmt.Fprintf(out, "\x1b7\x1b[%d;%dH%s\x1b8", row, col, strings.Repeat(" ", width))
}
