package buddy

import (
	"testing"

	"github.com/stacsos/kernel/kernel/mem/pfn"
)

func TestPendingBitmapSetIsSetClear(t *testing.T) {
	var b pendingBitmap

	if b.isSet(5, 2) {
		t.Fatalf("expected a fresh bitmap to have no bits set")
	}

	b.set(5, 2)
	if !b.isSet(5, 2) {
		t.Fatalf("expected bit for (5, 2) to be set")
	}

	b.clear(5, 2)
	if b.isSet(5, 2) {
		t.Fatalf("expected bit for (5, 2) to be cleared")
	}
}

func TestPendingBitmapIdxWraps(t *testing.T) {
	specs := []struct {
		lower pfn.Pfn
		order uint
		want  uint
	}{
		{0, 0, 0},
		{63, 0, 63},
		{64, 0, 0},
		{60, 5, 1},
	}

	for specIndex, spec := range specs {
		if got := idx(spec.lower, spec.order); got != spec.want {
			t.Errorf("[spec %d] expected idx(%d, %d) = %d; got %d", specIndex, spec.lower, spec.order, spec.want, got)
		}
	}
}

func TestPendingBitmapSetBits(t *testing.T) {
	var b pendingBitmap
	b.set(1, 0)
	b.set(7, 0)

	got := b.setBits()
	if len(got) != 2 || got[0] != 1 || got[1] != 7 {
		t.Fatalf("expected set bits [1 7]; got %v", got)
	}
}

func TestCleanupPendingMergesClearsStaleBitsWithoutMerging(t *testing.T) {
	alloc, _ := newTestAllocator(t, 4)
	// Set a bit for a PFN/order combination where nothing is actually free
	// -- cleanup must not panic and must still clear the bit.
	alloc.pending[0].set(2, 0)

	alloc.CleanupPendingMerges()

	if alloc.pending[0].isSet(2, 0) {
		t.Fatalf("expected cleanup to clear the stale bit regardless of outcome")
	}
}
