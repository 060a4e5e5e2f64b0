// Package rasterizer implements the single background worker that
// services page-render requests with a two-level priority discipline
// (spec.md §4.2). It owns the PDF document object and delegates actual
// parsing/rasterization to github.com/gen2brain/go-fitz. Grounded on
// original_source's src/threads/renderer.rs (worker loop shape) and
// src/drivers/priority_channel.rs (biased-select construction over P0/P1).
package rasterizer

import (
	"fmt"
	"image"
	"regexp"
	"strconv"

	"github.com/gen2brain/go-fitz"

	"github.com/monoamine11231/MeowPDF/document"
	"github.com/monoamine11231/MeowPDF/globals"
	"github.com/monoamine11231/MeowPDF/imagehandle"
)

// ControlKind enumerates the P0 control actions.
type ControlKind int

const (
	Load ControlKind = iota
	ToggleAlpha
	ToggleInverse
)

// Control is a P0 message; Path is only meaningful for Load.
type Control struct {
	Kind ControlKind
	Path string
}

// RenderRequest is a P1 message: rasterize the given page.
type RenderRequest struct {
	Page int
}

// RenderResult carries a completed (or out-of-range) render. Image is nil
// when Page was out of range after a document shrink, per spec.md §4.2.
type RenderResult struct {
	Page  int
	Image *imagehandle.Image
}

// Worker is the rasterizer's background-thread state: the priority
// channels it serves, and the two flags (alpha/inverse) that affect every
// subsequent render.
type Worker struct {
	P0 chan Control
	P1 chan RenderRequest

	ResultP0 chan document.Metadata
	ResultP1 chan RenderResult
	Accepted chan ControlKind
	Errors   chan error

	renderPrecision float64
	marginBottom    float64

	doc     *fitz.Document
	alpha   bool
	inverse bool

	done <-chan struct{}
}

// New builds a Worker. renderPrecision multiplies the 72 DPI baseline when
// rasterizing (spec's "render precision" glossary entry); marginBottom is
// the configured per-page bottom margin, in PDF points.
func New(renderPrecision, marginBottom float64, done <-chan struct{}) *Worker {
	return &Worker{
		P0:              make(chan Control, 8),
		P1:              make(chan RenderRequest, 256),
		ResultP0:        make(chan document.Metadata, 4),
		ResultP1:        make(chan RenderResult, 256),
		Accepted:        make(chan ControlKind, 8),
		Errors:          make(chan error, 16),
		renderPrecision: renderPrecision,
		marginBottom:    marginBottom,
		alpha:           true,
		done:            done,
	}
}

// Run is the worker's loop; call it in its own goroutine for the process
// lifetime. Go has no select_biased!, so P0 is drained with a non-blocking
// pass before the loop falls into a blocking two-way select — this gives
// the same "P0 strictly pre-empts P1 for selection" guarantee spec.md §5
// requires without a third-party priority-channel library, matching design
// note (a) in spec.md §9.
func (w *Worker) Run() {
	for {
		select {
		case <-w.done:
			return
		case ctl := <-w.P0:
			w.handleControl(ctl)
			continue
		default:
		}

		select {
		case <-w.done:
			return
		case ctl := <-w.P0:
			w.handleControl(ctl)
		case req := <-w.P1:
			w.handleRender(req)
		}
	}
}

func (w *Worker) handleControl(ctl Control) {
	switch ctl.Kind {
	case Load:
		w.handleLoad(ctl.Path)
	case ToggleAlpha:
		w.alpha = !w.alpha
		w.drainP1Requests()
	case ToggleInverse:
		w.inverse = !w.inverse
		w.drainP1Requests()
	}
	select {
	case w.Accepted <- ctl.Kind:
	default:
	}
}

func (w *Worker) handleLoad(path string) {
	if w.doc != nil {
		w.doc.Close()
	}

	doc, err := fitz.New(path)
	if err != nil {
		select {
		case w.Errors <- fmt.Errorf("open document: %w", err):
		default:
		}
		return
	}
	w.doc = doc

	meta := w.buildMetadata()
	w.ResultP0 <- meta

	// drain any P1 results already produced under the previous document
	// that the loop hasn't consumed yet, per spec.md §4.2's Load semantics
	// ("drains the result-P1 channel ... stale image results must not be
	// delivered against new metadata").
	w.drainP1Results()
}

func (w *Worker) buildMetadata() document.Metadata {
	n := w.doc.NumPage()
	widths := make([]float64, n)
	cumulative := make([]float64, n)
	links := make([][]document.Link, n)

	running := 0.0
	maxWidth := 0.0
	for p := 0; p < n; p++ {
		bounds, err := w.doc.Bound(p)
		h, wd := 792.0, 612.0
		if err == nil {
			wd = float64(bounds.Dx())
			h = float64(bounds.Dy())
		}
		widths[p] = wd
		if wd > maxWidth {
			maxWidth = wd
		}
		running += h + w.marginBottom
		cumulative[p] = running

		links[p] = buildLinks(w.doc, p)
	}

	return document.Metadata{
		PageCount:         n,
		Widths:            widths,
		CumulativeHeights: cumulative,
		MaxWidth:          maxWidth,
		Links:             links,
	}
}

func (w *Worker) drainP1Requests() {
	for {
		select {
		case <-w.P1:
		default:
			return
		}
	}
}

func (w *Worker) drainP1Results() {
	for {
		select {
		case <-w.ResultP1:
		default:
			return
		}
	}
}

func (w *Worker) handleRender(req RenderRequest) {
	if w.doc == nil || req.Page < 0 || req.Page >= w.doc.NumPage() {
		w.ResultP1 <- RenderResult{Page: req.Page, Image: nil}
		return
	}

	dpi := 72.0 * w.renderPrecision
	img, err := w.doc.ImageDPI(req.Page, dpi)
	if err != nil {
		select {
		case w.Errors <- fmt.Errorf("rasterize page %d: %w", req.Page, err):
		default:
		}
		return
	}

	rgbaImg := toRGBA(img)
	if w.inverse {
		invertRGB(rgbaImg)
	}

	handle := imagehandle.New(rgbaImg, globals.Padding(), w.alpha)
	w.ResultP1 <- RenderResult{Page: req.Page, Image: handle}
}

// toRGBA unwraps go-fitz's image.Image (always a concrete *image.RGBA in
// practice, since ImageDPI builds one directly from the mupdf pixmap) into
// the type imagehandle.New expects. A defensive copy is made for any other
// concrete type so the invariant holds regardless of the library version.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}

// invertRGB XORs 0xFF over the R, G, B channels in place, leaving alpha
// untouched, per spec.md §4.2's inverse flag.
func invertRGB(im *image.RGBA) {
	for i := 0; i+3 < len(im.Pix); i += 4 {
		im.Pix[i] ^= 0xFF
		im.Pix[i+1] ^= 0xFF
		im.Pix[i+2] ^= 0xFF
	}
}

// internalLinkPattern matches mupdf's internal-link URI convention,
// `#page=N` (1-indexed), used to distinguish in-document jumps from
// external URIs.
var internalLinkPattern = regexp.MustCompile(`^#page=(\d+)`)

func buildLinks(doc *fitz.Document, page int) []document.Link {
	raw, err := doc.Links(page)
	if err != nil || len(raw) == 0 {
		return nil
	}

	out := make([]document.Link, 0, len(raw))
	for _, l := range raw {
		out = append(out, document.Link{
			Rect:   document.Rect{X: float64(l.Rect.Min.X), Y: float64(l.Rect.Min.Y), W: float64(l.Rect.Dx()), H: float64(l.Rect.Dy())},
			Target: parseLinkTarget(l.URI),
		})
	}
	return out
}

func parseLinkTarget(uri string) document.LinkTarget {
	if m := internalLinkPattern.FindStringSubmatch(uri); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return document.LinkTarget{Page: n - 1}
		}
	}
	return document.LinkTarget{URI: uri}
}
