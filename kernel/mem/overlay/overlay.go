// Package overlay implements the free-page metadata overlay described in
// spec.md §4.1: the only persistent state the buddy allocator keeps inside
// a free page is a single forward link (next_free) stored at the page's
// base address. Reading or writing this overlay for an allocated page is a
// memory-safety violation that callers must not commit; this package has
// no way to check that for them (doing so would require tracking
// allocation state redundantly with the free lists) so it trusts its
// caller, exactly as the original page_metadata struct in
// original_source/kernel/src/mem/page-allocator-buddy.cpp does.
//
// The pointer-overlay technique is adapted from the teacher's
// kernel/mem.Memset, which overlays a []byte slice on top of a raw address
// via unsafe.Pointer + reflect.SliceHeader.
package overlay

import (
	"unsafe"

	"github.com/stacsos/kernel/kernel/mem/pfn"
)

// NilPfn is the sentinel "no next" value stored by a free list's tail
// entry, mirroring pfn.Invalid.
const NilPfn = pfn.Invalid

// NextFree reads the next_free link stored at the base of the free page
// identified by p.
func NextFree(idx pfn.PageIndex, p pfn.Pfn) pfn.Pfn {
	return *linkPtr(idx, p)
}

// SetNextFree writes the next_free link stored at the base of the free
// page identified by p.
func SetNextFree(idx pfn.PageIndex, p pfn.Pfn, next pfn.Pfn) {
	*linkPtr(idx, p) = next
}

// linkPtr returns a pointer to the next_free word stored at the base
// address of the block-leader page for p.
func linkPtr(idx pfn.PageIndex, p pfn.Pfn) *pfn.Pfn {
	base := idx.Descriptor(p).Base
	return (*pfn.Pfn)(unsafe.Pointer(base)) //nolint:govet // overlay is the point
}
