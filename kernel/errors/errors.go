// Package errors collects the sentinel error values shared by the
// scheduler and ls-device collaborators. The buddy allocator core itself
// never returns one of these: precondition violations go through
// kernel.Panic and resource exhaustion is a plain boolean/zero-value
// return, per spec.md §7.
package errors

var (
	// ErrInvalidParamValue describes an out-of-range or nil argument. No
	// API in this module returns it.
	ErrInvalidParamValue = KernelError("invalid parameter value")

	// ErrRunqueueEmpty is returned by the round-robin scheduler when
	// SelectNextTask is called with no runnable threads.
	ErrRunqueueEmpty = KernelError("runqueue is empty")

	// ErrNotFound is returned when a cache lookup misses.
	ErrNotFound = KernelError("not found")
)

// KernelError is a trivial implementation of an error message that doesn't
// require allocating through the standard errors.New. It is used as an
// alternative to errors.New.
type KernelError string

// Error implements the error interface.
func (err KernelError) Error() string {
	return string(err)
}
