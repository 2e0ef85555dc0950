// Package sync provides the synchronization primitive used to guard the
// buddy allocator's facade (mem/pmm.Guarded) for hosts that drive it from
// more than one goroutine. The allocator core itself stays single-threaded
// and lock-free, matching spec.md §5.
package sync

import (
	"runtime"
	"sync/atomic"
)

// yieldFn is substituted by tests to avoid busy-waiting the CPU while a
// contended Acquire() is exercised.
var yieldFn = runtime.Gosched

// Spinlock implements a lock where a caller trying to acquire it busy-waits
// until the lock becomes available, backing off to a scheduler yield after
// a handful of failed attempts. Re-acquiring a lock already held by the
// current goroutine deadlocks, exactly as in the teacher's implementation.
type Spinlock struct {
	state uint32
}

const attemptsBeforeYielding = 100

// Acquire blocks until the lock can be acquired by the caller.
func (l *Spinlock) Acquire() {
	attempts := uint32(0)
	for !l.TryToAcquire() {
		attempts++
		if attempts >= attemptsBeforeYielding {
			attempts = 0
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock without blocking and reports
// whether it succeeded.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock. Calling Release while the lock is free
// has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
