// Command demo wires together the physical memory allocator and its two
// collaborators -- the round-robin scheduler and the ls device -- over a
// host-provided memory arena. It stands in for the teacher's Kmain entry
// point, which wired a bootloader-provided memory map into the same kind
// of allocator instead of a simulated one.
package main

import (
	"os"

	"github.com/stacsos/kernel/kernel/dev/misc/lsdevice"
	"github.com/stacsos/kernel/kernel/kfmt"
	"github.com/stacsos/kernel/kernel/mem/pfn/arena"
	"github.com/stacsos/kernel/kernel/mem/pmm"
	"github.com/stacsos/kernel/kernel/sched/alg/rr"
)

const demoArenaPages = 1024

func main() {
	kfmt.Printf("starting buddy allocator demo\n")

	ar, err := arena.New(demoArenaPages)
	if err != nil {
		kfmt.Printf("failed to build memory arena: %s\n", err.Error())
		os.Exit(1)
	}
	defer ar.Close()

	alloc := pmm.NewGuarded(pmm.New(ar))
	alloc.InsertFreePages(0, demoArenaPages)
	kfmt.Printf("donated %d pages, total_free=%d\n", demoArenaPages, alloc.TotalFree())

	var sched rr.RoundRobin
	names := []string{"init", "idle", "shell"}
	tasks := make([]*rr.Tcb, 0, len(names))
	for _, name := range names {
		tcb, ok := rr.NewTcb(alloc, name)
		if !ok {
			kfmt.Printf("failed to allocate stack for %s\n", name)
			os.Exit(1)
		}
		sched.AddToRunqueue(tcb)
		tasks = append(tasks, tcb)
	}

	for i := 0; i < 2*len(names); i++ {
		next, err := sched.SelectNextTask(nil)
		if err != nil {
			kfmt.Printf("scheduler error: %s\n", err.Error())
			os.Exit(1)
		}
		kfmt.Printf("scheduled task %s (stack pfn %d)\n", next.Name, uint64(next.StackPages))
	}

	for _, t := range tasks {
		sched.RemoveFromRunqueue(t)
		t.Release(alloc)
	}

	dev, ok := lsdevice.Open(alloc, ar, lsdevice.DefaultMaxEntries)
	if !ok {
		kfmt.Printf("failed to open ls device\n")
		os.Exit(1)
	}
	defer dev.Close()

	entry := dev.ComputeLs("/", nil)
	kfmt.Printf("listed / (%d entries)\n", entry.NumEntries)

	alloc.Dump(os.Stdout)
}
