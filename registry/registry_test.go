package registry

import (
	"testing"

	"github.com/monoamine11231/MeowPDF/imagehandle"
)

func fakeImage(size int) *imagehandle.Image {
	return &imagehandle.Image{
		ID:     imagehandle.NextID(),
		Pixels: make([]byte, size),
	}
}

func TestInsertTracksMemoryUsed(t *testing.T) {
	r := New(10_000)
	r.Insert(0, fakeImage(400))
	r.Insert(1, fakeImage(400))

	if r.MemoryUsed() != 800 {
		t.Fatalf("memory_used = %d, want 800", r.MemoryUsed())
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
}

func TestEvictionFIFO(t *testing.T) {
	r := New(900)
	r.Insert(0, fakeImage(400)) // A
	r.Insert(1, fakeImage(400)) // B, mem=800, under budget
	r.Insert(2, fakeImage(400)) // C, mem=1200 -> evict A -> 800

	if _, ok := r.Get(0); ok {
		t.Fatal("page 0 (A) should have been evicted")
	}
	if _, ok := r.Get(1); !ok {
		t.Fatal("page 1 (B) should still be held")
	}
	if r.MemoryUsed() != 800 {
		t.Fatalf("memory_used = %d, want 800", r.MemoryUsed())
	}

	r.Insert(3, fakeImage(400)) // D, mem=1200 -> evict B -> 800
	if _, ok := r.Get(1); ok {
		t.Fatal("page 1 (B) should have been evicted by D's insert")
	}
	if _, ok := r.Get(2); !ok {
		t.Fatal("page 2 (C) should still be held")
	}
	if _, ok := r.Get(3); !ok {
		t.Fatal("page 3 (D) should be held")
	}
}

func TestOversizedImageKeepsOnlyNewest(t *testing.T) {
	r := New(100)
	r.Insert(0, fakeImage(50))
	r.Insert(1, fakeImage(500)) // exceeds limit alone

	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1 (only the newest image survives)", r.Len())
	}
	if _, ok := r.Get(1); !ok {
		t.Fatal("newest image (page 1) should remain held")
	}
}

func TestInvalidateAllPreservesHeldCount(t *testing.T) {
	r := New(10_000)
	r.Insert(5, fakeImage(400))

	r.InvalidateAll()
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1 (invalidate must not evict)", r.Len())
	}
	if !r.IsInvalidated(5) {
		t.Fatal("page 5 should be invalidated")
	}

	if !r.NeedsRender(5) {
		t.Fatal("invalidated held page should need a re-render")
	}
	r.MarkScheduled(5)
	if r.NeedsRender(5) {
		t.Fatal("scheduled page should not need another render request")
	}

	oldImg, _ := r.Get(5)
	newImg := fakeImage(450)
	r.Insert(5, newImg)
	if r.IsInvalidated(5) {
		t.Fatal("invalidated flag should clear after replacement")
	}
	got, _ := r.Get(5)
	if got == oldImg {
		t.Fatal("page 5 should now hold the new image, not the old one")
	}
}

func TestRemoveOnDocumentShrink(t *testing.T) {
	r := New(10_000)
	r.Insert(5, fakeImage(400))
	r.Remove(5)

	if r.Len() != 0 {
		t.Fatalf("len = %d, want 0 after remove", r.Len())
	}
	if r.MemoryUsed() != 0 {
		t.Fatalf("memory_used = %d, want 0 after remove", r.MemoryUsed())
	}
}
