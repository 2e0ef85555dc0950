package pmm

import (
	"io"

	"github.com/stacsos/kernel/kernel/mem/buddy"
	"github.com/stacsos/kernel/kernel/mem/pfn"
	"github.com/stacsos/kernel/kernel/sync"
)

// Guarded wraps an Allocator with a spinlock so hosts that drive the
// allocator from more than one goroutine don't have to reimplement mutual
// exclusion themselves. The wrapped allocator stays lock-free and
// single-threaded internally, per spec.md §5; Guarded is the boundary where
// that contract gets enforced.
type Guarded struct {
	lock  sync.Spinlock
	inner Allocator
}

// NewGuarded wraps inner in a Guarded facade.
func NewGuarded(inner Allocator) *Guarded {
	return &Guarded{inner: inner}
}

func (g *Guarded) InsertFreePages(start pfn.Pfn, count uint64) {
	g.lock.Acquire()
	defer g.lock.Release()
	g.inner.InsertFreePages(start, count)
}

func (g *Guarded) AllocatePages(order uint, flags buddy.AllocFlags) (pfn.Pfn, bool) {
	g.lock.Acquire()
	defer g.lock.Release()
	return g.inner.AllocatePages(order, flags)
}

func (g *Guarded) FreePages(block pfn.Pfn, order uint) {
	g.lock.Acquire()
	defer g.lock.Release()
	g.inner.FreePages(block, order)
}

func (g *Guarded) TotalFree() uint64 {
	g.lock.Acquire()
	defer g.lock.Release()
	return g.inner.TotalFree()
}

func (g *Guarded) Dump(w io.Writer) {
	g.lock.Acquire()
	defer g.lock.Release()
	g.inner.Dump(w)
}

var _ Allocator = (*Guarded)(nil)
