// Package pmm exposes the physical page allocator as a capability
// interface rather than a concrete type, the way the teacher's collaborator
// packages (scheduler, device drivers) consume abstract services instead of
// depending on a specific implementation directly. mem/buddy.Allocator is
// presently the only implementation, but callers outside mem/ should always
// spell their dependency as pmm.Allocator.
package pmm

import (
	"io"

	"github.com/stacsos/kernel/kernel/mem/buddy"
	"github.com/stacsos/kernel/kernel/mem/pfn"
)

// Allocator is the capability a host or collaborator (scheduler, device,
// etc.) needs from a physical page allocator.
type Allocator interface {
	// InsertFreePages donates count pages starting at start to the
	// allocator, to be carved into free blocks at whatever orders fit.
	InsertFreePages(start pfn.Pfn, count uint64)

	// AllocatePages removes and returns the leading PFN of a free block
	// of the given order, or (pfn.Invalid, false) if none is available.
	AllocatePages(order uint, flags buddy.AllocFlags) (pfn.Pfn, bool)

	// FreePages returns a previously allocated block of the given order.
	FreePages(block pfn.Pfn, order uint)

	// TotalFree returns the number of pages currently free.
	TotalFree() uint64

	// Dump writes a diagnostic rendering of the allocator's free lists to w.
	Dump(w io.Writer)
}

// New constructs the default Allocator implementation: a mem/buddy.Allocator
// over idx, configured with opts.
func New(idx pfn.PageIndex, opts ...buddy.Option) Allocator {
	return buddy.New(idx, opts...)
}

var _ Allocator = (*buddy.Allocator)(nil)
