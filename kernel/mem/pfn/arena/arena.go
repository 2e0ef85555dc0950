// Package arena provides a concrete pfn.PageIndex backed by a single
// anonymous memory mapping, standing in for the contiguous run of physical
// page frames a real kernel would have handed to it by the bootloader.
//
// The mmap-and-overlay technique is grounded on
// joshuapare-hivekit/internal/mmfile/mmfile_unix.go and
// joshuapare-hivekit/hive/dirty/flush_unix.go, which map a byte range with
// golang.org/x/sys/unix and then let unsafe.Pointer arithmetic (here, via
// mem/overlay) poke through it directly -- exactly the job a simulated
// physical address space needs.
package arena

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/stacsos/kernel/kernel"
	"github.com/stacsos/kernel/kernel/mem"
	"github.com/stacsos/kernel/kernel/mem/pfn"
)

// PageBits is the host's log2(page size). spec.md §6 leaves PAGE_BITS
// host-defined; this arena fixes it to the teacher's own PageShift (4KiB
// pages).
const PageBits = mem.PageShift

// Arena backs a contiguous run of PFNs [0, count) with a single anonymous
// mapping of count*PageSize bytes. Arena implements pfn.PageIndex.
type Arena struct {
	mapping []byte
	base    uintptr
	count   pfn.Pfn
}

// New creates an Arena capable of describing count pages. The backing
// mapping is zero-filled by the kernel, matching freshly donated physical
// memory.
func New(count pfn.Pfn) (*Arena, *kernel.Error) {
	if count == 0 {
		return nil, kernel.New("arena", "page count must be > 0")
	}

	size := int(count) * int(mem.PageSize)
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, kernel.Wrap("arena", err)
	}

	return &Arena{
		mapping: data,
		base:    uintptr(unsafe.Pointer(&data[0])),
		count:   count,
	}, nil
}

// Close unmaps the arena's backing memory. Any descriptor handed out
// previously becomes invalid.
func (a *Arena) Close() *kernel.Error {
	if a.mapping == nil {
		return nil
	}
	if err := unix.Munmap(a.mapping); err != nil {
		return kernel.Wrap("arena", err)
	}
	a.mapping = nil
	return nil
}

// Count returns the number of pages this arena describes.
func (a *Arena) Count() pfn.Pfn {
	return a.count
}

// Descriptor implements pfn.PageIndex.
func (a *Arena) Descriptor(p pfn.Pfn) pfn.Descriptor {
	if p >= a.count {
		kernel.Panic(kernel.New("arena", "pfn out of range"))
	}

	return pfn.Descriptor{
		Pfn:  p,
		Base: a.base + uintptr(p)*uintptr(mem.PageSize),
	}
}

// Bytes returns the raw backing slice for page p, primarily for use by
// tests and by collaborators (e.g. the ls device) that need to read/write
// whole pages without going through the overlay.
func (a *Arena) Bytes(p pfn.Pfn) []byte {
	if p >= a.count {
		kernel.Panic(kernel.New("arena", "pfn out of range"))
	}
	off := int(p) * int(mem.PageSize)
	return a.mapping[off : off+int(mem.PageSize)]
}
