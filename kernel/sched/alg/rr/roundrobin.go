// Package rr implements a round-robin scheduling algorithm, grounded on
// original_source/kernel/src/sched/alg/rr.cpp. It exists as a worked
// example of a collaborator that leans on mem/pmm.Allocator (through TCB's
// stack allocation) without knowing anything about buddy-system internals.
package rr

import (
	"github.com/stacsos/kernel/kernel/errors"
	"github.com/stacsos/kernel/kernel/mem/buddy"
	"github.com/stacsos/kernel/kernel/mem/pfn"
	"github.com/stacsos/kernel/kernel/mem/pmm"
)

// StackOrder is the buddy order of the page block allocated for each TCB's
// stack. A single page is enough for this demonstration scheduler.
const StackOrder = 0

// Tcb is a minimal thread control block: just enough state for the
// round-robin algorithm to schedule it, plus the stack page it owns.
type Tcb struct {
	Name       string
	StackPages pfn.Pfn
}

// NewTcb allocates a stack for a new thread control block from alloc.
// It reports false if the allocator could not satisfy the stack request.
func NewTcb(alloc pmm.Allocator, name string) (*Tcb, bool) {
	stack, ok := alloc.AllocatePages(StackOrder, buddy.FlagZero)
	if !ok {
		return nil, false
	}
	return &Tcb{Name: name, StackPages: stack}, true
}

// Release returns this TCB's stack to alloc. Callers must not use the TCB
// afterward.
func (t *Tcb) Release(alloc pmm.Allocator) {
	alloc.FreePages(t.StackPages, StackOrder)
}

// RoundRobin schedules tasks by always handing out the task that has been
// waiting longest, then moving it to the back of the queue -- the
// runtime_queue.rotate() behavior from the original.
type RoundRobin struct {
	runqueue []*Tcb
}

// AddToRunqueue appends tcb to the back of the runqueue.
func (r *RoundRobin) AddToRunqueue(t *Tcb) {
	r.runqueue = append(r.runqueue, t)
}

// RemoveFromRunqueue drops tcb from the runqueue if present. Removing a
// TCB that isn't queued is a silent no-op, matching the original's
// fail-silent removal.
func (r *RoundRobin) RemoveFromRunqueue(t *Tcb) {
	for i, queued := range r.runqueue {
		if queued == t {
			r.runqueue = append(r.runqueue[:i], r.runqueue[i+1:]...)
			return
		}
	}
}

// SelectNextTask returns the task at the front of the runqueue and rotates
// it to the back. current is accepted for interface symmetry with a
// preemptive scheduler but is otherwise unused by this algorithm, matching
// the original's ignoring of it. It reports errors.ErrRunqueueEmpty if no
// task is runnable.
func (r *RoundRobin) SelectNextTask(current *Tcb) (*Tcb, error) {
	if len(r.runqueue) == 0 {
		return nil, errors.ErrRunqueueEmpty
	}

	next := r.runqueue[0]
	r.runqueue = append(r.runqueue[1:], next)
	return next, nil
}
