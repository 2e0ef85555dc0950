// Package lsdevice implements a small cache and device node for listing
// directory contents, grounded on
// original_source/lib/inc/stacsos/ls-cache.h and
// original_source/kernel/src/dev/misc/ls-device.cpp. It is a second worked
// example of a collaborator built against pmm.Allocator, independent of the
// scheduler in sched/alg/rr.
package lsdevice

import "github.com/stacsos/kernel/kernel/errors"

// DefaultMaxEntries mirrors the original's max_size_ default of 8.
const DefaultMaxEntries = 8

// Entry is the cached "final product" of listing one directory: just
// enough to answer a repeated ls on the same path without recomputing it.
type Entry struct {
	NumEntries int
	Names      []string
}

// Cache maps a directory path to the Entry computed for it last time,
// evicting the oldest entry once it grows past maxEntries -- the same
// FIFO-as-LRU approximation as the original's keys_ queue.
type Cache struct {
	entries    map[string]Entry
	order      []string
	maxEntries int
}

// NewCache constructs a Cache that holds at most maxEntries entries. A
// maxEntries of 0 falls back to DefaultMaxEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
	}
}

// Put inserts or updates the cached entry for path, evicting the oldest
// entry first if the cache is already full.
func (c *Cache) Put(path string, entry Entry) {
	if _, exists := c.entries[path]; !exists {
		if len(c.order) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, path)
	}
	c.entries[path] = entry
}

// Lookup returns the cached entry for path. It reports errors.ErrNotFound
// if path has no cached entry.
func (c *Cache) Lookup(path string) (Entry, error) {
	e, ok := c.entries[path]
	if !ok {
		return Entry{}, errors.ErrNotFound
	}
	return e, nil
}
