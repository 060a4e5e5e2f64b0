// Package imagehandle defines the shared, immutable-after-construction
// bitmap handle that flows from the rasterizer through the registry to the
// terminal graphics adapter. Construction pads the bitmap with a
// transparent border so the adapter can later crop into it for sub-cell
// placement (see the graphics package).
package imagehandle

import (
	"image"
	"sync/atomic"
)

var nextID uint64

// NextID returns a process-wide monotonically increasing id. IDs are never
// reused within a process lifetime.
func NextID() uint64 {
	return atomic.AddUint64(&nextID, 1)
}

// Image is a padded RGBA bitmap ready for transfer to the terminal. Once
// built it is never mutated; handles are shared by reference between the
// rasterizer, the registry and the adapter.
type Image struct {
	ID uint64

	// UnpaddedW/UnpaddedH is the bitmap size excluding the invisible border.
	UnpaddedW, UnpaddedH int
	Padding              int

	// Pixels is (UnpaddedW+2P) x (UnpaddedH+2P) x 4 RGBA bytes, row-major,
	// with a fully transparent border of width Padding on every side.
	Pixels []byte

	Alpha bool
}

// PaddedW/PaddedH return the full bitmap dimensions including the border.
func (im *Image) PaddedW() int { return im.UnpaddedW + 2*im.Padding }
func (im *Image) PaddedH() int { return im.UnpaddedH + 2*im.Padding }

// Size is the byte size counted against the registry's memory budget.
func (im *Image) Size() int { return len(im.Pixels) }

// New pads src with a transparent border of the given width and assigns a
// fresh id. src is assumed already RGBA (the rasterizer always produces
// RGBA via go-fitz); alpha controls only the Kitty transfer format byte
// used later by the adapter, not the pixel format here.
func New(src *image.RGBA, padding int, alpha bool) *Image {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	paddedW := w + 2*padding
	paddedH := h + 2*padding

	buf := make([]byte, paddedW*paddedH*4)
	for row := 0; row < h; row++ {
		srcOff := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+row)
		dstOff := ((row+padding)*paddedW + padding) * 4
		copy(buf[dstOff:dstOff+w*4], src.Pix[srcOff:srcOff+w*4])
	}

	return &Image{
		ID:        NextID(),
		UnpaddedW: w,
		UnpaddedH: h,
		Padding:   padding,
		Pixels:    buf,
		Alpha:     alpha,
	}
}
