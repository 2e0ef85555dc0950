package rr

import (
	"testing"

	"github.com/stacsos/kernel/kernel/errors"
	"github.com/stacsos/kernel/kernel/mem/pfn"
	"github.com/stacsos/kernel/kernel/mem/pfn/arena"
	"github.com/stacsos/kernel/kernel/mem/pmm"
)

func newTestAllocator(t *testing.T, pages uint64) pmm.Allocator {
	t.Helper()
	a, err := arena.New(pfn.Pfn(pages))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	alloc := pmm.New(a)
	alloc.InsertFreePages(0, pages)
	return alloc
}

func TestSelectNextTaskRotatesQueue(t *testing.T) {
	alloc := newTestAllocator(t, 4)

	a, ok := NewTcb(alloc, "a")
	if !ok {
		t.Fatalf("expected stack allocation for tcb a to succeed")
	}
	b, ok := NewTcb(alloc, "b")
	if !ok {
		t.Fatalf("expected stack allocation for tcb b to succeed")
	}

	var sched RoundRobin
	sched.AddToRunqueue(a)
	sched.AddToRunqueue(b)

	if got, err := sched.SelectNextTask(nil); err != nil || got != a {
		t.Fatalf("expected first selection to return tcb a; got %v, %v", got, err)
	}
	if got, err := sched.SelectNextTask(nil); err != nil || got != b {
		t.Fatalf("expected second selection to return tcb b; got %v, %v", got, err)
	}
	if got, err := sched.SelectNextTask(nil); err != nil || got != a {
		t.Fatalf("expected third selection to wrap back to tcb a; got %v, %v", got, err)
	}
}

func TestSelectNextTaskOnEmptyRunqueue(t *testing.T) {
	var sched RoundRobin
	got, err := sched.SelectNextTask(nil)
	if got != nil {
		t.Fatalf("expected nil from an empty runqueue; got %v", got)
	}
	if err != errors.ErrRunqueueEmpty {
		t.Fatalf("expected ErrRunqueueEmpty; got %v", err)
	}
}

func TestRemoveFromRunqueueIsSilentWhenAbsent(t *testing.T) {
	alloc := newTestAllocator(t, 2)
	a, ok := NewTcb(alloc, "a")
	if !ok {
		t.Fatalf("expected stack allocation to succeed")
	}

	var sched RoundRobin
	sched.RemoveFromRunqueue(a) // not queued; must not panic
}

func TestRemoveFromRunqueueDropsTask(t *testing.T) {
	alloc := newTestAllocator(t, 4)
	a, _ := NewTcb(alloc, "a")
	b, _ := NewTcb(alloc, "b")

	var sched RoundRobin
	sched.AddToRunqueue(a)
	sched.AddToRunqueue(b)
	sched.RemoveFromRunqueue(a)

	if got, err := sched.SelectNextTask(nil); err != nil || got != b {
		t.Fatalf("expected only remaining task b to be selected; got %v, %v", got, err)
	}
}

func TestTcbReleaseReturnsStackToAllocator(t *testing.T) {
	alloc := newTestAllocator(t, 1)

	a, ok := NewTcb(alloc, "a")
	if !ok {
		t.Fatalf("expected stack allocation to succeed")
	}
	if _, ok := NewTcb(alloc, "b"); ok {
		t.Fatalf("expected arena to be exhausted after a single page")
	}

	a.Release(alloc)

	b, ok := NewTcb(alloc, "b")
	if !ok {
		t.Fatalf("expected allocation to succeed once a's stack was released")
	}
	if b.StackPages != a.StackPages {
		t.Fatalf("expected the released page to be reused")
	}
}
