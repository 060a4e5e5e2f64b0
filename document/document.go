// Package document holds the data produced by the rasterizer describing the
// shape of a loaded PDF: page dimensions, the cumulative vertical layout, and
// link targets. Nothing here touches a PDF library directly; rasterizer
// fills these types in and everything downstream only reads them.
package document

// LinkTarget is either an in-document page (Page >= 0) or an external URI
// (URI != "").
type LinkTarget struct {
	Page int
	URI  string
}

func (t LinkTarget) IsExternal() bool { return t.URI != "" }

// Rect is an axis-aligned rectangle in page coordinates (PDF points).
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Link pairs a clickable rectangle in page coordinates with its target.
type Link struct {
	Rect   Rect
	Target LinkTarget
}

// Metadata is the document-wide layout produced fresh on every Load. It is
// replaced atomically from the orchestration loop's perspective: a new
// Metadata value supersedes the old one in a single assignment.
type Metadata struct {
	PageCount         int
	Widths            []float64 // page i intrinsic width, PDF points
	CumulativeHeights []float64 // sum of (height+margin_bottom) through page i
	MaxWidth          float64
	Links             [][]Link // Links[i] for page i
}

// PageHeight returns the intrinsic height (including bottom margin) of page
// p, derived from the cumulative heights. CumulativeHeights[-1] is treated
// as 0.
func (m *Metadata) PageHeight(p int) float64 {
	if p < 0 || p >= len(m.CumulativeHeights) {
		return 0
	}
	if p == 0 {
		return m.CumulativeHeights[0]
	}
	return m.CumulativeHeights[p] - m.CumulativeHeights[p-1]
}

// CumulativeBefore returns cumulative_heights[p-1], or 0 for p<=0.
func (m *Metadata) CumulativeBefore(p int) float64 {
	if p <= 0 {
		return 0
	}
	if p-1 >= len(m.CumulativeHeights) {
		if len(m.CumulativeHeights) == 0 {
			return 0
		}
		return m.CumulativeHeights[len(m.CumulativeHeights)-1]
	}
	return m.CumulativeHeights[p-1]
}

// LastHeight is the total document height, cumulative_heights.last(), or 0
// for an empty document.
func (m *Metadata) LastHeight() float64 {
	if len(m.CumulativeHeights) == 0 {
		return 0
	}
	return m.CumulativeHeights[len(m.CumulativeHeights)-1]
}

// Width returns page p's intrinsic width, or MaxWidth as a fallback for an
// out-of-range page (used defensively while a reload is in flight).
func (m *Metadata) Width(p int) float64 {
	if p < 0 || p >= len(m.Widths) {
		return m.MaxWidth
	}
	return m.Widths[p]
}

// LinksOn returns the link list for page p, or nil if out of range.
func (m *Metadata) LinksOn(p int) []Link {
	if p < 0 || p >= len(m.Links) {
		return nil
	}
	return m.Links[p]
}
