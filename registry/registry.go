// Package registry implements the bounded image registry: it owns bitmap
// handles, tracks memory usage against a byte budget, and handles the
// invalidation protocol that lets stale pixels stay on screen until fresh
// ones arrive (spec §4.3).
package registry

import (
	"container/list"

	"github.com/monoamine11231/MeowPDF/imagehandle"
)

// Registry holds held/invalidated/scheduled page state under a single byte
// budget. It is only ever mutated by the orchestration loop's goroutine;
// no internal locking is needed (spec §5's "registry is only mutated by the
// main thread").
type Registry struct {
	limit int

	held        map[int]*imagehandle.Image
	invalidated map[int]struct{}
	scheduled   map[int]struct{}

	order      *list.List // FIFO of page indices, front = oldest
	orderElems map[int]*list.Element
	memoryUsed int
}

// New builds an empty registry with the given byte budget.
func New(limit int) *Registry {
	return &Registry{
		limit:       limit,
		held:        make(map[int]*imagehandle.Image),
		invalidated: make(map[int]struct{}),
		scheduled:   make(map[int]struct{}),
		order:       list.New(),
		orderElems:  make(map[int]*list.Element),
	}
}

// MemoryUsed is the sum of held images' Pixels sizes.
func (r *Registry) MemoryUsed() int { return r.memoryUsed }

// Get returns the held image for page, if any.
func (r *Registry) Get(page int) (*imagehandle.Image, bool) {
	im, ok := r.held[page]
	return im, ok
}

// IsInvalidated reports whether page is held but marked stale.
func (r *Registry) IsInvalidated(page int) bool {
	_, ok := r.invalidated[page]
	return ok
}

// IsScheduled reports whether a render request for page is in flight.
func (r *Registry) IsScheduled(page int) bool {
	_, ok := r.scheduled[page]
	return ok
}

// MarkScheduled records that a P1 render request for page has been sent.
func (r *Registry) MarkScheduled(page int) {
	r.scheduled[page] = struct{}{}
}

// NeedsRender is spec's (not held or page in invalidated) and page not in
// scheduled.
func (r *Registry) NeedsRender(page int) bool {
	_, held := r.held[page]
	_, inval := r.invalidated[page]
	_, sched := r.scheduled[page]
	return (!held || inval) && !sched
}

// Insert installs a freshly rendered image for page, evicting the old entry
// (if any) first, then popping FIFO entries until under budget.
func (r *Registry) Insert(page int, im *imagehandle.Image) {
	if _, ok := r.invalidated[page]; ok {
		r.dropHeld(page)
	} else if _, ok := r.held[page]; ok {
		// replacing a non-invalidated held page (e.g. re-render after an
		// ack failure): drop the old bytes from the budget before adding.
		r.dropHeld(page)
	}
	if elem, ok := r.orderElems[page]; ok {
		r.order.Remove(elem)
		delete(r.orderElems, page)
	}

	r.held[page] = im
	r.memoryUsed += im.Size()
	delete(r.scheduled, page)
	delete(r.invalidated, page)

	r.orderElems[page] = r.order.PushBack(page)

	for r.memoryUsed >= r.limit && r.order.Len() > 0 {
		front := r.order.Front()
		oldest := front.Value.(int)
		if oldest == page && r.order.Len() == 1 {
			// a single image exceeding the limit is kept: only the newest
			// image remains, matching spec §8's eviction invariant. It stays
			// in the FIFO so the next insert can evict it.
			break
		}
		r.order.Remove(front)
		delete(r.orderElems, oldest)
		if _, ok := r.held[oldest]; ok {
			r.dropHeld(oldest)
		}
	}
}

// dropHeld removes page's entry from held/memoryUsed/invalidated without
// touching the FIFO order list (callers manage that themselves).
func (r *Registry) dropHeld(page int) {
	if im, ok := r.held[page]; ok {
		r.memoryUsed -= im.Size()
		delete(r.held, page)
	}
	delete(r.invalidated, page)
}

// Remove drops page entirely, updating memory usage and invalidation state.
// Used when the rasterizer reports the page no longer exists after a
// document shrink.
func (r *Registry) Remove(page int) {
	r.dropHeld(page)
	delete(r.scheduled, page)
	if elem, ok := r.orderElems[page]; ok {
		r.order.Remove(elem)
		delete(r.orderElems, page)
	}
}

// InvalidateAll marks every held page as invalidated and clears scheduled,
// without dropping any bitmaps (stale pixels keep displaying).
func (r *Registry) InvalidateAll() {
	for page := range r.held {
		r.invalidated[page] = struct{}{}
	}
	r.scheduled = make(map[int]struct{})
}

// Len reports how many pages are currently held (for invariant checks).
func (r *Registry) Len() int { return len(r.held) }
