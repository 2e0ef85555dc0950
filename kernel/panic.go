package kernel

import (
	"os"

	"github.com/stacsos/kernel/kernel/kfmt"
)

// haltFn is called after a panic has been reported. It is mocked by
// tests and may be replaced by a host that wants os.Exit semantics
// instead of the default no-op, after which Panic unwinds only the
// calling goroutine, matching the fact that this module no longer owns
// the only CPU in the machine.
var haltFn = func() {}

// Panic reports the supplied error (if not nil) to kfmt's output sink,
// invokes haltFn, and then unwinds the calling goroutine via a real Go
// panic so that, like the teacher's CPU-halting original, control never
// falls back into the caller. Panic is the landing site for every
// precondition violation raised by the buddy allocator (bad order,
// misaligned PFN, remove-not-present, insert-already-present); spec.md
// classifies these as unrecoverable programming errors with no recovery
// policy. A host that wants the process to exit outright rather than
// unwind a single goroutine should call ExitOnPanic, whose haltFn never
// returns control to this function.
func Panic(e interface{}) {
	err := triage(e)
	report(err)
	haltFn()
	panic(err)
}

// triage normalizes whatever was panicked with into a *Error, attributing a
// bare string or foreign error to module "rt" rather than mutating a shared
// sentinel between calls -- there's no reason two panics (even on different
// goroutines) should risk clobbering each other's message before report runs.
func triage(e interface{}) *Error {
	switch t := e.(type) {
	case nil:
		return nil
	case *Error:
		return t
	case string:
		return New("rt", t)
	case error:
		return New("rt", t.Error())
	default:
		return New("rt", "unknown cause")
	}
}

// report writes a single diagnostic record to kfmt's output sink. err is
// nil when Panic was called with no cause to report.
func report(err *Error) {
	if err == nil {
		kfmt.Printf("\n-----------------------------------\n*** kernel panic: halted ***\n-----------------------------------\n")
		return
	}
	kfmt.Printf("\n-----------------------------------\n[%s] unrecoverable error: %s\n*** kernel panic: halted ***\n-----------------------------------\n", err.Module, err.Message)
}

// ExitOnPanic installs os.Exit(1) as the halt function, matching the
// semantics of the original freestanding kernel's cpu.Halt() a little more
// closely than the package default. Hosts that embed this module inside a
// larger long-running process should leave the default no-op installed.
func ExitOnPanic() {
	haltFn = func() { os.Exit(1) }
}
