package api

// DebuggerState represents the current context of the debugger.
type DebuggerState struct {
	// Pid of the target process.
	Pid int `json:"pid"`
	// Running is true if the target is executing a continue or step command.
	Running bool `json:"running"`
	// State is the lifecycle state of the target.
	State string `json:"state"`
	// Exited indicates whether the debugged process has exited.
	Exited     bool `json:"exited"`
	ExitStatus int  `json:"exitStatus"`
	// StopReason describes the last stop of the target.
	StopReason StopReason `json:"stopReason"`
	// PC is the instruction pointer, only meaningful if the target is stopped.
	PC uint64 `json:"pc"`
	// PendingSignal is the signal the next continue will deliver.
	PendingSignal int `json:"pendingSignal,omitempty"`
	// Breakpoints is the list of user breakpoints sorted by ID.
	Breakpoints []*Breakpoint `json:"breakpoints,omitempty"`
	// Err is the error of the last command, if any.
	Err error `json:"-"`
}

// StopReason is the reason the target stopped.
type StopReason struct {
	Kind     string `json:"kind"`
	Addr     uint64 `json:"addr,omitempty"`
	Signal   int    `json:"signal,omitempty"`
	ExitCode int    `json:"exitCode,omitempty"`
	Manual   bool   `json:"manual,omitempty"`
	Err      string `json:"err,omitempty"`
}

// Breakpoint addresses a location at which process execution may be
// suspended.
type Breakpoint struct {
	// ID is a unique identifier for the breakpoint.
	ID int `json:"id"`
	// Addr is the address of the breakpoint.
	Addr uint64 `json:"addr"`
	// Enabled is true if the trap instruction is in memory.
	Enabled bool `json:"enabled"`
	// OriginalByte is the instruction byte replaced by the trap.
	OriginalByte byte `json:"originalByte"`
	// TotalHitCount is the number of times the breakpoint was hit.
	TotalHitCount uint64 `json:"totalHitCount"`
}

// Register holds the name and value of a CPU register.
type Register struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// AsmInstruction represents one assembly instruction at some address.
type AsmInstruction struct {
	// Loc is the address of the instruction.
	Loc uint64 `json:"loc"`
	// DestLoc is the destination of a direct call or jump.
	DestLoc uint64 `json:"destLoc,omitempty"`
	// Text is the formatted representation of the instruction.
	Text string `json:"text"`
	// Bytes is the instruction as read from memory, breakpoint traps
	// replaced by the original bytes.
	Bytes []byte `json:"bytes"`
	// Kind is call, ret, jump, trap or other.
	Kind string `json:"kind"`
	// Breakpoint is true if a breakpoint is set on the instruction.
	Breakpoint bool `json:"breakpoint"`
	// AtPC is true if this instruction is the current instruction pointer.
	AtPC bool `json:"atPC"`
}

// DebuggerCommand is a command which changes the debugger's execution state.
type DebuggerCommand struct {
	// Name is the command to run.
	Name string `json:"name"`
	// Addr is the breakpoint address for the breakpoint commands.
	Addr uint64 `json:"addr,omitempty"`
	// Signal is delivered by the Signal command, 0 suppresses the pending
	// signal.
	Signal int `json:"signal,omitempty"`
}

const (
	// Continue resumes process execution.
	Continue = "continue"
	// Step executes a single instruction.
	Step = "step"
	// Next executes a single instruction, running called functions to
	// completion.
	Next = "next"
	// StepOverBreakpoint executes the original instruction of the
	// breakpoint the target is stopped at.
	StepOverBreakpoint = "stepOverBreakpoint"
	// Signal resumes process execution delivering DebuggerCommand.Signal.
	Signal = "signal"
	// Halt suspends the process.
	Halt = "halt"

	SetBreakpoint     = "setBreakpoint"
	ClearBreakpoint   = "clearBreakpoint"
	EnableBreakpoint  = "enableBreakpoint"
	DisableBreakpoint = "disableBreakpoint"
)
