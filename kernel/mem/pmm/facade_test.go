package pmm

import (
	"sync"
	"testing"

	"github.com/stacsos/kernel/kernel/mem/buddy"
	"github.com/stacsos/kernel/kernel/mem/pfn/arena"
)

func TestGuardedSerializesConcurrentAllocations(t *testing.T) {
	a, err := arena.New(64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	inner := New(a)
	inner.InsertFreePages(0, 64)
	guarded := NewGuarded(inner)

	const goroutines = 16
	results := make(chan bool, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := guarded.AllocatePages(0, buddy.FlagNone)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	if successes != goroutines {
		t.Fatalf("expected all %d allocations to succeed without double-granting a PFN; got %d", goroutines, successes)
	}
	if got := guarded.TotalFree(); got != 64-goroutines {
		t.Fatalf("expected total_free %d; got %d", 64-goroutines, got)
	}
}
