// Package viewport implements the viewport/layout engine: offset and scale
// state, the bounding rules that keep them legal, display-rect computation,
// and link hit-testing. It is pure math over a *document.Metadata — nothing
// here touches the terminal or the rasterizer.
package viewport

import (
	"sort"

	"github.com/monoamine11231/MeowPDF/document"
)

// Offset is the viewport's top-left corner in document space. X is the
// horizontal position of the document's left edge in viewport pixels (at the
// current scale); Y is in cumulative-height units (PDF points).
type Offset struct {
	X, Y float64
}

// Rect is a display rectangle in viewport pixel coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Page pairs a page index with the rectangle it occupies on screen.
type Page struct {
	Index int
	Rect  Rect
}

// State holds everything the layout engine needs: the current metadata, the
// live scale/offset, and the viewport's pixel dimensions.
type State struct {
	Meta *document.Metadata

	Scale  float64
	Offset Offset

	ViewportW, ViewportH float64 // pixels

	ScaleMin    float64
	MarginBottm float64

	PageFirst int
	PageView  int
}

// New builds a State with sane defaults; Bound must be called once metadata
// and viewport dimensions are known (e.g. on first PageMetadata).
func New(scaleMin, marginBottom float64) *State {
	return &State{
		Scale:       1.0,
		ScaleMin:    scaleMin,
		MarginBottm: marginBottom,
	}
}

// SetMetadata installs fresh document metadata. Callers are expected to call
// Bound (and possibly FitToWidth/CenterHorizontal) immediately after.
func (s *State) SetMetadata(m *document.Metadata) {
	s.Meta = m
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bound clamps Scale and Offset into legal ranges and recomputes PageFirst
// and PageView, per spec §4.4.
func (s *State) Bound() {
	if s.Scale < s.ScaleMin {
		s.Scale = s.ScaleMin
	}
	if s.Meta == nil || s.Meta.PageCount == 0 {
		s.PageFirst, s.PageView = 0, 0
		return
	}

	docW := s.Meta.MaxWidth * s.Scale
	if docW > s.ViewportW {
		s.Offset.X = clamp(s.Offset.X, s.ViewportW-docW, 0)
	} else {
		s.Offset.X = clamp(s.Offset.X, 0, s.ViewportW-docW)
	}

	last := s.Meta.LastHeight()
	lo := -10.0
	hi := last - s.ViewportH/s.Scale
	if hi < lo {
		hi = lo
	}
	s.Offset.Y = clamp(s.Offset.Y, lo, hi)

	s.PageFirst = s.offsetToPage(s.Offset.Y)
	view := s.offsetToPage(s.Offset.Y + 0.5*s.ViewportH/s.Scale)
	if view < 0 {
		view = 0
	}
	if view > s.Meta.PageCount-1 {
		view = s.Meta.PageCount - 1
	}
	s.PageView = view
}

// offsetToPage maps a y offset (document space) to a page index via binary
// search over cumulative heights, matching spec's scenario 2 exactly:
// offset_to_page(0)=0, a hit at an upper bound stays on that page, and an
// offset past the end returns page_count.
func (s *State) offsetToPage(y float64) int {
	ch := s.Meta.CumulativeHeights
	return sort.Search(len(ch), func(i int) bool { return ch[i] >= y })
}

// OffsetToPage exposes offsetToPage for tests and callers outside the
// package that need to probe the mapping directly (spec scenario 2).
func (s *State) OffsetToPage(y float64) int { return s.offsetToPage(y) }

// DisplayRects produces the ordered sequence of (page, rect) pairs covering
// every page intersecting the viewport, per spec §4.4.
func (s *State) DisplayRects() []Page {
	if s.Meta == nil || s.Meta.PageCount == 0 {
		return nil
	}

	var out []Page
	yPx := (s.Meta.CumulativeBefore(s.PageFirst) - s.Offset.Y) * s.Scale

	for p := s.PageFirst; p < s.Meta.PageCount && yPx < s.ViewportH; p++ {
		hPx := (s.Meta.PageHeight(p) - s.MarginBottm) * s.Scale
		wPx := s.Meta.Width(p) * s.Scale
		out = append(out, Page{
			Index: p,
			Rect:  Rect{X: s.Offset.X, Y: yPx, W: wPx, H: hPx},
		})
		yPx += hPx + s.MarginBottm*s.Scale
	}
	return out
}

// FitToWidth scales so the widest page exactly fills the viewport width,
// then rebounds. Used on first load.
func (s *State) FitToWidth() {
	if s.Meta == nil || s.Meta.MaxWidth <= 0 || s.Scale <= 0 {
		return
	}
	s.Scale *= s.ViewportW / (s.Meta.MaxWidth * s.Scale)
	s.Bound()
}

// CenterHorizontal centers the document horizontally in the viewport.
func (s *State) CenterHorizontal() {
	if s.Meta == nil {
		return
	}
	s.Offset.X = 0.5*s.ViewportW - 0.5*s.Meta.MaxWidth*s.Scale
}

// JumpToPage sets PageFirst/Offset.Y to the top of page p and rebounds.
// When Bound clamps the offset away from that top edge (the document does
// not scroll that far), PageFirst is the page the clamped offset falls on.
func (s *State) JumpToPage(p int) {
	s.PageFirst = p
	s.Offset.Y = s.Meta.CumulativeBefore(p)
	s.Bound()
	if p >= 0 && p < s.Meta.PageCount && s.Offset.Y == s.Meta.CumulativeBefore(p) {
		// offsetToPage attributes an exact page boundary to the previous
		// page; here the viewport top is exactly the top of page p.
		s.PageFirst = p
	}
}

// Scroll adds a pixel delta (already scaled by scroll_speed by the caller)
// to the offset and rebounds.
func (s *State) Scroll(dx, dy float64) {
	s.Offset.X += dx
	s.Offset.Y += dy / s.Scale
	s.Bound()
}

// Zoom multiplies the scale by factor (>1 zooms in) and rebounds.
func (s *State) Zoom(factor float64) {
	s.Scale *= factor
	s.Bound()
}

// HitTest finds the link, if any, under viewport pixel (x, y). x/y are in
// the same pixel/rect space as DisplayRects (the caller is responsible for
// converting from terminal cells to pixels using the current cell size
// before calling, matching spec §4.4 step 2's "project the point into page
// coordinates").
func (s *State) HitTest(x, y float64, rects []Page) (document.LinkTarget, bool) {
	for _, pg := range rects {
		r := pg.Rect
		if x < r.X || x > r.X+r.W || y < r.Y || y > r.Y+r.H {
			continue
		}
		pageX := (x - r.X) / s.Scale
		pageY := (y - r.Y) / s.Scale
		for _, link := range s.Meta.LinksOn(pg.Index) {
			if link.Rect.Contains(pageX, pageY) {
				return link.Target, true
			}
		}
		return document.LinkTarget{}, false
	}
	return document.LinkTarget{}, false
}
