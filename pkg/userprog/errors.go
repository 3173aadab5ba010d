package userprog

import (
	"errors"
	"fmt"

	"nachos/pkg/machine"
)

// Load errors.
var (
	ErrExecutableNotFound   = errors.New("executable not found")
	ErrBadImage             = errors.New("malformed executable image")
	ErrFragmentedExecutable = errors.New("fragmented executable")
	ErrArgumentsTooLong     = errors.New("arguments too long")
	ErrInsufficientMemory   = errors.New("insufficient physical memory")
)

// Descriptor errors.
var (
	ErrBadDescriptor = errors.New("bad file descriptor")
	ErrNotOpen       = errors.New("file descriptor not open")
	ErrTableFull     = errors.New("file table full")
	ErrFileNotFound  = errors.New("file not found")
	ErrNoData        = errors.New("no data transferred")
)

// Syscall argument and policy errors.
var (
	ErrBadAddress     = errors.New("bad virtual address")
	ErrBadLength      = errors.New("bad length")
	ErrBadName        = errors.New("unreadable file name")
	ErrNotRoot        = errors.New("caller is not the root process")
	ErrUnknownSyscall = errors.New("unknown syscall")
	ErrUnexpected     = errors.New("unexpected exception")
)

// Kernel errors.
var (
	ErrAlreadyStarted    = errors.New("kernel already has a root process")
	ErrKernelTerminated  = errors.New("kernel terminated")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// FatalError reports an exception the kernel cannot recover from. The
// kernel is aborted with it as the cause.
type FatalError struct {
	PID     int
	Cause   machine.ExceptionCause
	Syscall int32
	Err     error
}

func (e *FatalError) Error() string {
	if e.Cause == machine.ExceptionSyscall {
		return fmt.Sprintf("process %d: syscall %d: %v", e.PID, e.Syscall, e.Err)
	}
	return fmt.Sprintf("process %d: %s: %v", e.PID, e.Cause, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
