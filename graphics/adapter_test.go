package graphics

import (
	"testing"

	"github.com/monoamine11231/MeowPDF/imagehandle"
	"github.com/monoamine11231/MeowPDF/termdrv"
)

func TestComputeCropCoversWholeBitmapOnCellBoundary(t *testing.T) {
	im := &imagehandle.Image{ID: 1, UnpaddedW: 200, UnpaddedH: 300, Padding: 20}
	size := termdrv.Size{Cols: 80, Rows: 24, XPixel: 800, YPixel: 480} // 10px/col, 20px/row

	c := computeCrop(im, 0, 0, 1.0, 1.0, size)
	if !c.displayed {
		t.Fatal("expected image to be displayed")
	}
	if c.col != 1 || c.row != 1 {
		t.Fatalf("col/row = %d/%d, want 1/1 for an origin-aligned placement", c.col, c.row)
	}
	// exactly on cell boundaries: no snap-out padding needed.
	if c.w != im.UnpaddedW {
		t.Errorf("crop w = %d, want %d (no snap-out on an aligned placement)", c.w, im.UnpaddedW)
	}
	if c.h != im.UnpaddedH {
		t.Errorf("crop h = %d, want %d (no snap-out on an aligned placement)", c.h, im.UnpaddedH)
	}
}

func TestComputeCropSnapsOutForFractionalOffset(t *testing.T) {
	im := &imagehandle.Image{ID: 1, UnpaddedW: 200, UnpaddedH: 300, Padding: 20}
	size := termdrv.Size{Cols: 80, Rows: 24, XPixel: 800, YPixel: 480}

	c := computeCrop(im, 5, 3, 1.0, 1.0, size)
	if !c.displayed {
		t.Fatal("expected image to be displayed")
	}
	// snapped out to cell 0, col/row still 1-indexed cell 1.
	if c.col != 1 || c.row != 1 {
		t.Fatalf("col/row = %d/%d, want 1/1", c.col, c.row)
	}
	// crop rect grows to cover the snap-out padding on the leading edge.
	if c.w <= im.UnpaddedW {
		t.Errorf("crop w = %d, want > %d to cover snap-out padding", c.w, im.UnpaddedW)
	}
	if c.h <= im.UnpaddedH {
		t.Errorf("crop h = %d, want > %d to cover snap-out padding", c.h, im.UnpaddedH)
	}
}

func TestComputeCropOutsideTerminalNotDisplayed(t *testing.T) {
	im := &imagehandle.Image{ID: 1, UnpaddedW: 200, UnpaddedH: 300, Padding: 20}
	size := termdrv.Size{Cols: 80, Rows: 24, XPixel: 800, YPixel: 480}

	c := computeCrop(im, -100000, -100000, 1.0, 1.0, size)
	if c.displayed {
		t.Fatal("expected placement far outside the terminal to be skipped")
	}
}
