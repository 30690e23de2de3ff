package service

import (
	"context"

	"github.com/fdbdbg/fdb/pkg/proc"
	"github.com/fdbdbg/fdb/service/api"
)

// Client represents a debugger service client. All client methods are
// synchronous, Halt may be called while another method is in progress.
type Client interface {
	// Returns the pid of the process we are debugging.
	ProcessPid() int
	// Launched returns true if the debugger started the process.
	Launched() bool

	// Detach detaches the debugger, optionally killing the process.
	Detach(killProcess bool) error

	// State returns the current debugger state, if nowait is true it
	// returns immediately while the target is running.
	State(nowait bool) *api.DebuggerState
	// Command runs an execution or breakpoint command. Cancelling ctx stops
	// a running target.
	Command(ctx context.Context, cmd *api.DebuggerCommand) (*api.DebuggerState, error)
	// Halt suspends the process.
	Halt() error

	// Breakpoints gets all user breakpoints.
	Breakpoints() []*api.Breakpoint
	// FindBreakpoint returns the user breakpoint at addr, or nil.
	FindBreakpoint(addr uint64) *api.Breakpoint

	// ReadMemory reads n bytes of memory at addr.
	ReadMemory(addr uint64, n int) ([]byte, error)
	// WriteMemory writes data at addr.
	WriteMemory(addr uint64, data []byte) error

	// Registers returns the CPU registers of the process.
	Registers(all bool) ([]api.Register, error)
	// SetRegister changes the value of a register.
	SetRegister(name string, value uint64) error

	// Disassemble decodes count instructions starting at addr, 0 meaning
	// the current instruction pointer.
	Disassemble(addr uint64, count int, flavour proc.AssemblyFlavour) ([]api.AsmInstruction, error)
}
