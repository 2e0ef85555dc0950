package overlay

import (
	"testing"

	"github.com/stacsos/kernel/kernel/mem/pfn"
	"github.com/stacsos/kernel/kernel/mem/pfn/arena"
)

func TestNextFreeRoundTrip(t *testing.T) {
	a, err := arena.New(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	specs := []struct {
		leader pfn.Pfn
		next   pfn.Pfn
	}{
		{0, 1},
		{1, NilPfn},
		{4, 7},
	}

	for specIndex, spec := range specs {
		SetNextFree(a, spec.leader, spec.next)
		if got := NextFree(a, spec.leader); got != spec.next {
			t.Errorf("[spec %d] expected NextFree(%d) to return %d; got %d", specIndex, spec.leader, spec.next, got)
		}
	}
}

func TestNextFreeIsolatedPerPage(t *testing.T) {
	a, err := arena.New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	SetNextFree(a, 0, 2)
	SetNextFree(a, 1, NilPfn)

	if got := NextFree(a, 0); got != 2 {
		t.Errorf("expected page 0's link to be 2; got %d", got)
	}
	if got := NextFree(a, 1); got != NilPfn {
		t.Errorf("expected page 1's link to be NilPfn; got %d", got)
	}
}
