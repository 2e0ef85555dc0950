package lsdevice

import (
	"bytes"
	"io"

	"github.com/stacsos/kernel/kernel/kfmt"
	"github.com/stacsos/kernel/kernel/mem/buddy"
	"github.com/stacsos/kernel/kernel/mem/pfn"
	"github.com/stacsos/kernel/kernel/mem/pmm"
)

// Node is the minimal directory-entry shape ComputeLs needs from whatever
// filesystem the host wires in, standing in for fat_node in the original.
type Node interface {
	Name() string
	IsDir() bool
	Size() uint64
}

// bufferOrder is the buddy order of the scratch page this device reserves
// for itself on construction, standing in for the listing buffer a real
// device would keep pinned for the duration it's attached to a bus.
const bufferOrder = 0

// byteBacked is implemented by page indices (mem/pfn/arena.Arena, notably)
// that can hand back the raw bytes behind a PFN. ReadAt only works against
// an index that supports this; a PageIndex that doesn't is still a valid
// pfn.PageIndex for the buddy allocator, just not for this device.
type byteBacked interface {
	Bytes(p pfn.Pfn) []byte
}

// Device computes and caches directory listings, and serves the most
// recently computed one byte-for-byte through ReadAt, the way a real
// device node serves pread(2) calls. It holds one page from alloc for as
// long as it's open, demonstrating a device-style long-lived allocation
// rather than the scheduler's per-thread one.
type Device struct {
	alloc pmm.Allocator
	idx   pfn.PageIndex
	buf   pfn.Pfn
	cache *Cache
}

// Open reserves Device's scratch page from alloc, described through idx,
// and returns a ready Device. It reports false if the allocator could not
// satisfy the reservation.
func Open(alloc pmm.Allocator, idx pfn.PageIndex, cacheSize int) (*Device, bool) {
	buf, ok := alloc.AllocatePages(bufferOrder, buddy.FlagZero)
	if !ok {
		return nil, false
	}
	return &Device{alloc: alloc, idx: idx, buf: buf, cache: NewCache(cacheSize)}, true
}

// Close returns Device's scratch page to its allocator. Callers must not
// use the Device afterward.
func (d *Device) Close() {
	d.alloc.FreePages(d.buf, bufferOrder)
}

// ComputeLs returns the Entry for path, consulting the cache before
// walking children. A cache hit skips the walk entirely, the optimization
// the original ls_cache exists for. The rendered listing is also copied
// into the device's scratch page so a subsequent ReadAt can serve it.
func (d *Device) ComputeLs(path string, children []Node) Entry {
	if cached, err := d.cache.Lookup(path); err == nil {
		d.render(cached.Names, children)
		return cached
	}

	names := make([]string, len(children))
	for i, child := range children {
		names[i] = child.Name()
	}
	entry := Entry{NumEntries: len(children), Names: names}
	d.cache.Put(path, entry)
	d.render(names, children)
	return entry
}

// render writes a formatted listing into the device's scratch page. When a
// cache hit supplies only names (no Node, hence no kind/size), it falls
// back to rendering bare names.
func (d *Device) render(names []string, children []Node) {
	page, ok := d.idx.(byteBacked)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if len(children) == len(names) && len(children) > 0 {
		WriteLs(&buf, children)
	} else {
		for _, name := range names {
			kfmt.Fprintf(&buf, "%s\n", name)
		}
	}

	dst := page.Bytes(d.buf)
	n := copy(dst, buf.Bytes())
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// ReadAt serves bytes from the most recently rendered listing, in the
// manner of a pread(2) call against a device node.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	page, ok := d.idx.(byteBacked)
	if !ok {
		return 0, io.EOF
	}
	src := page.Bytes(d.buf)
	if off < 0 || off >= int64(len(src)) {
		return 0, io.EOF
	}
	n := copy(p, src[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteLs renders a listing of children to w in the style of the
// original's dprintf calls: "[DIR]" for directories, "[FILE] ... with
// size N" for files.
func WriteLs(w io.Writer, children []Node) {
	for _, child := range children {
		if child.IsDir() {
			kfmt.Fprintf(w, "[DIR]  %s\n", child.Name())
		} else {
			kfmt.Fprintf(w, "[FILE] %s with size %d\n", child.Name(), child.Size())
		}
	}
}
