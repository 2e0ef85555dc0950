package kernel

// Error is the error type raised by the buddy allocator (through Panic) and
// returned by the memory arena; the scheduler and ls-device collaborators
// use the sentinels in kernel/errors instead. It carries the name
// of the raising package alongside the message so kernel.Panic and its
// callers can report where a failure originated without needing a wrapped
// error chain.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// New builds an Error attributed to module with the given message. It is
// the usual way a package constructs an Error for a precondition violation
// or an invalid argument.
func New(module, message string) *Error {
	return &Error{Module: module, Message: message}
}

// Wrap attributes an existing error (typically returned by a syscall or a
// standard library call) to module, preserving its message. arena.New uses
// this to turn a failed unix.Mmap into an Error without losing the
// underlying text.
func Wrap(module string, err error) *Error {
	return &Error{Module: module, Message: err.Error()}
}
