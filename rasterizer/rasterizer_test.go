package rasterizer

import (
	"image"
	"image/color"
	"testing"
)

func TestInvertRGBLeavesAlphaUntouched(t *testing.T) {
	im := image.NewRGBA(image.Rect(0, 0, 1, 1))
	im.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 77})

	invertRGB(im)

	c := im.RGBAAt(0, 0)
	if c.R != 0xFF-10 || c.G != 0xFF-20 || c.B != 0xFF-30 {
		t.Fatalf("unexpected inverted color: %+v", c)
	}
	if c.A != 77 {
		t.Fatalf("alpha = %d, want unchanged 77", c.A)
	}
}

func TestParseLinkTargetInternal(t *testing.T) {
	target := parseLinkTarget("#page=3")
	if target.IsExternal() {
		t.Fatal("expected an internal page target")
	}
	if target.Page != 2 {
		t.Fatalf("page = %d, want 2 (0-indexed from 1-indexed #page=3)", target.Page)
	}
}

func TestParseLinkTargetExternal(t *testing.T) {
	target := parseLinkTarget("https://example.com/doc")
	if !target.IsExternal() {
		t.Fatal("expected an external target")
	}
	if target.URI != "https://example.com/doc" {
		t.Fatalf("uri = %q", target.URI)
	}
}

func TestToRGBAPassesThroughConcreteType(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	got := toRGBA(src)
	if got != src {
		t.Fatal("expected the same *image.RGBA to be returned without copying")
	}
}
