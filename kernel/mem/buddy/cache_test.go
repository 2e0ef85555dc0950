package buddy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacsos/kernel/kernel/mem/pfn"
)

func TestRecentCacheDisabledByDefault(t *testing.T) {
	c := newRecentCache(0)
	_, evictedOK := c.push(3)
	assert.False(t, evictedOK, "a disabled cache never evicts because it never retains anything")
	_, ok := c.pop()
	assert.False(t, ok, "expected a zero-size cache to never retain entries")
}

func TestRecentCacheIsLIFO(t *testing.T) {
	c := newRecentCache(4)
	c.push(1)
	c.push(2)
	c.push(3)

	got, ok := c.pop()
	assert.True(t, ok)
	assert.Equal(t, pfn.Pfn(3), got)

	got, ok = c.pop()
	assert.True(t, ok)
	assert.Equal(t, pfn.Pfn(2), got)
}

func TestRecentCacheEvictsOldestWhenFull(t *testing.T) {
	c := newRecentCache(2)
	if _, evictedOK := c.push(1); evictedOK {
		t.Fatalf("expected no eviction while the cache has spare capacity")
	}
	if _, evictedOK := c.push(2); evictedOK {
		t.Fatalf("expected no eviction while the cache has spare capacity")
	}
	evicted, evictedOK := c.push(3)
	assert.True(t, evictedOK, "expected pushing a third entry into a 2-slot cache to evict one")
	assert.Equal(t, pfn.Pfn(1), evicted, "expected the oldest entry to be evicted")

	got, ok := c.pop()
	assert.True(t, ok)
	assert.Equal(t, pfn.Pfn(3), got)

	got, ok = c.pop()
	assert.True(t, ok)
	assert.Equal(t, pfn.Pfn(2), got)

	_, ok = c.pop()
	assert.False(t, ok, "expected evicted entry 1 to be gone")
}
