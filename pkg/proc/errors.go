package proc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStopped is returned by operations that require the target to be
	// stopped at the operating system level.
	ErrNotStopped = errors.New("process is not stopped")
	// ErrNotStarted is returned by operations on a target that has no
	// process yet.
	ErrNotStarted = errors.New("process has not been started")
	// ErrNoBreakpoint is returned when enabling or disabling an address that
	// has no breakpoint.
	ErrNoBreakpoint = errors.New("no breakpoint at address")
	// ErrTrapPresent is returned when setting a breakpoint on an address that
	// already contains a trap instruction not owned by the debugger.
	ErrTrapPresent = errors.New("address already contains a trap instruction")
	// ErrNotOnBreakpoint is returned by StepOverBreakpoint when the
	// instruction pointer is not on an enabled breakpoint.
	ErrNotOnBreakpoint = errors.New("instruction pointer is not on a breakpoint")
	// ErrInvalidLength is returned by memory operations asked for a negative
	// or oversized number of bytes.
	ErrInvalidLength = errors.New("invalid length")
)

// ErrProcessExited indicates that the process has exited and contains both
// process id and exit status. Status is the negated signal number if the
// process was terminated by a signal.
type ErrProcessExited struct {
	Pid    int
	Status int
}

func (pe ErrProcessExited) Error() string {
	return fmt.Sprintf("Process %d has exited with status %d", pe.Pid, pe.Status)
}

// ProcessDetachedError indicates that we detached from the target process.
type ProcessDetachedError struct{}

func (pe ProcessDetachedError) Error() string {
	return "detached from the process"
}

// SpawnError is returned when a new target process cannot be created or
// the tracing relationship with it cannot be established.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not launch process %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// AttachError is returned when tracing cannot be attached to a running
// process.
type AttachError struct {
	Pid int
	Err error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("could not attach to pid %d: %v", e.Pid, e.Err)
}

func (e *AttachError) Unwrap() error { return e.Err }

// MemoryAccessError is returned when the target's memory cannot be read or
// written in full.
type MemoryAccessError struct {
	Addr  uint64
	Len   int
	Write bool
	Err   error
}

func (e *MemoryAccessError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("could not %s %d bytes at %#x: %v", op, e.Len, e.Addr, e.Err)
}

func (e *MemoryAccessError) Unwrap() error { return e.Err }

// RegisterError is returned when the register set of the target cannot be
// read or written.
type RegisterError struct {
	Write bool
	Err   error
}

func (e *RegisterError) Error() string {
	if e.Write {
		return fmt.Sprintf("could not set registers: %v", e.Err)
	}
	return fmt.Sprintf("could not get registers: %v", e.Err)
}

func (e *RegisterError) Unwrap() error { return e.Err }

// BreakpointError is returned when a breakpoint cannot be installed,
// removed or toggled.
type BreakpointError struct {
	Addr uint64
	Err  error
}

func (e *BreakpointError) Error() string {
	return fmt.Sprintf("breakpoint at %#x: %v", e.Addr, e.Err)
}

func (e *BreakpointError) Unwrap() error { return e.Err }

// ExecError wraps a failure of the tracing facility while resuming,
// stepping or waiting for the target.
type ExecError struct {
	Op  string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// DetachError is returned when the debugger cannot release the target.
type DetachError struct {
	Pid int
	Err error
}

func (e *DetachError) Error() string {
	return fmt.Sprintf("could not detach from pid %d: %v", e.Pid, e.Err)
}

func (e *DetachError) Unwrap() error { return e.Err }
