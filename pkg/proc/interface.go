package proc

// ProcessInternal is the interface a backend implements to let Target drive
// a traced process. All methods except RequestManualStop, Pid and Alive are
// only called while the process is stopped or, for Wait, while it is
// running after Resume or SingleStep.
type ProcessInternal interface {
	Pid() int
	// Memory returns an accessor for the address space of the process. It
	// knows nothing about breakpoints.
	Memory() MemoryReadWriter
	Registers() (*Registers, error)
	SetRegisters(*Registers) error

	// Resume restarts the process delivering sig (0 for none).
	Resume(sig int) error
	// SingleStep executes one instruction delivering sig (0 for none).
	SingleStep(sig int) error
	// Wait blocks until the process changes state. EINTR is retried by the
	// implementation.
	Wait() (WaitEvent, error)

	// RequestManualStop sends a stop signal to the process. It can be
	// called from any goroutine.
	RequestManualStop() error
	// Detach releases the process, letting it run freely.
	Detach() error
	// Kill terminates the process and reaps it.
	Kill() error
	// Alive reports whether the process can still be operated on.
	Alive() bool
	// Close releases all resources held by the backend.
	Close()
}

// EventKind is the kind of state change reported by Wait.
type EventKind uint8

const (
	// EventStopped means the process stopped because of a signal.
	EventStopped EventKind = iota
	// EventExited means the process exited normally.
	EventExited
	// EventSignaled means the process was terminated by a signal.
	EventSignaled
	// EventExec means the process replaced its image with execve.
	EventExec
)

// WaitEvent describes a state change of the traced process.
type WaitEvent struct {
	Kind   EventKind
	Signal int // stop or termination signal
	Status int // exit code, for EventExited
}

// LaunchFlags modify the behavior of Launch.
type LaunchFlags uint8

const (
	// LaunchForeground puts the target in the terminal's foreground
	// process group.
	LaunchForeground LaunchFlags = 1 << iota
	// LaunchDisableASLR disables address space randomization for the target.
	LaunchDisableASLR
)
