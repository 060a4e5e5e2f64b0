package viewport

import (
	"testing"

	"github.com/monoamine11231/MeowPDF/document"
)

func threePageDoc() *document.Metadata {
	return &document.Metadata{
		PageCount:         3,
		Widths:            []float64{612, 612, 612},
		CumulativeHeights: []float64{100, 250, 400},
		MaxWidth:          612,
	}
}

func TestFitToWidthAtLoad(t *testing.T) {
	s := New(0.1, 10)
	s.ViewportW = 1224
	s.ViewportH = 800
	s.SetMetadata(threePageDoc())
	s.FitToWidth()
	s.CenterHorizontal()
	s.Bound()

	if s.Scale != 2.0 {
		t.Fatalf("scale = %v, want 2.0", s.Scale)
	}
	if s.Offset.X != 0 {
		t.Fatalf("offset.x = %v, want 0", s.Offset.X)
	}
	if s.PageFirst != 0 {
		t.Fatalf("page_first = %d, want 0", s.PageFirst)
	}
}

func TestOffsetToPageBinarySearch(t *testing.T) {
	s := New(0.1, 10)
	s.SetMetadata(&document.Metadata{
		PageCount:         3,
		CumulativeHeights: []float64{100, 250, 400},
	})

	cases := []struct {
		y    float64
		want int
	}{
		{0, 0},
		{100, 0},
		{101, 1},
		{399, 2},
		{1000, 3},
	}
	for _, c := range cases {
		if got := s.OffsetToPage(c.y); got != c.want {
			t.Errorf("offset_to_page(%v) = %d, want %d", c.y, got, c.want)
		}
	}
}

func TestJumpToPageRoundTrip(t *testing.T) {
	s := New(0.1, 10)
	// viewport shorter than the 400-unit document, so every page top is a
	// legal (unclamped) offset at scale 1
	s.ViewportW, s.ViewportH = 1224, 100
	s.SetMetadata(threePageDoc())

	for p := 0; p < 3; p++ {
		s.JumpToPage(p)
		if s.PageFirst != p {
			t.Errorf("jump(%d) then page_first = %d, want %d", p, s.PageFirst, p)
		}
	}
}

func TestBoundClampsOffset(t *testing.T) {
	s := New(0.1, 10)
	s.ViewportW, s.ViewportH = 1224, 800
	s.Scale = 1.0
	s.SetMetadata(threePageDoc())

	s.Offset.Y = -1000
	s.Bound()
	if s.Offset.Y < -10 {
		t.Errorf("offset.y = %v, should be clamped to >= -10", s.Offset.Y)
	}

	s.Offset.Y = 1e9
	s.Bound()
	want := s.Meta.LastHeight() - s.ViewportH/s.Scale
	if want < -10 {
		want = -10
	}
	if s.Offset.Y != want {
		t.Errorf("offset.y = %v, want %v", s.Offset.Y, want)
	}

	if s.PageFirst < 0 || s.PageFirst >= s.Meta.PageCount {
		t.Errorf("page_first out of range: %d", s.PageFirst)
	}
	if s.PageView < 0 || s.PageView >= s.Meta.PageCount {
		t.Errorf("page_view out of range: %d", s.PageView)
	}
}

func TestDisplayRectsCoverViewport(t *testing.T) {
	s := New(0.1, 10)
	s.ViewportW, s.ViewportH = 1224, 800
	s.Scale = 1.0
	s.SetMetadata(threePageDoc())
	s.Bound()

	rects := s.DisplayRects()
	if len(rects) == 0 {
		t.Fatal("expected at least one display rect")
	}
	if rects[0].Index != s.PageFirst {
		t.Errorf("first rect page = %d, want page_first = %d", rects[0].Index, s.PageFirst)
	}
}
