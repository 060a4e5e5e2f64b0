package imagehandle

import (
	"image"
	"image/color"
	"testing"
)

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	im := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.SetRGBA(x, y, c)
		}
	}
	return im
}

func TestNewPadsBorderTransparent(t *testing.T) {
	src := solidRGBA(4, 3, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	im := New(src, 2, false)

	if im.PaddedW() != 8 || im.PaddedH() != 7 {
		t.Fatalf("padded dims = %dx%d, want 8x7", im.PaddedW(), im.PaddedH())
	}
	if im.Size() != 8*7*4 {
		t.Fatalf("size = %d, want %d", im.Size(), 8*7*4)
	}

	// corner of the padding must be fully transparent.
	off := 0
	for i := 0; i < 4; i++ {
		if im.Pixels[off+i] != 0 {
			t.Fatalf("padding byte %d = %d, want 0", i, im.Pixels[off+i])
		}
	}

	// interior pixel (0,0 of the unpadded bitmap) must match source.
	interiorOff := ((2)*im.PaddedW() + 2) * 4
	if im.Pixels[interiorOff] != 200 {
		t.Fatalf("interior R = %d, want 200", im.Pixels[interiorOff])
	}
}

func TestNewAssignsIncreasingIDs(t *testing.T) {
	a := New(solidRGBA(1, 1, color.RGBA{A: 255}), 1, false)
	b := New(solidRGBA(1, 1, color.RGBA{A: 255}), 1, false)
	if b.ID <= a.ID {
		t.Fatalf("ids not monotonically increasing: %d, %d", a.ID, b.ID)
	}
}
