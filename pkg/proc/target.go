package proc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fdbdbg/fdb/pkg/logflags"
)

// LifecycleState is the state of the process behind a Target.
type LifecycleState uint8

const (
	StateNotStarted LifecycleState = iota
	StateRunning
	StateStopped
	StateExited
	StateTerminated
	StateDetached
)

func (s LifecycleState) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateExited:
		return "exited"
	case StateTerminated:
		return "terminated"
	case StateDetached:
		return "detached"
	}
	return fmt.Sprintf("LifecycleState(%d)", uint8(s))
}

// StopKind describes why the target stopped.
type StopKind uint8

const (
	StopUnknown    StopKind = iota
	StopLaunched            // The process was just launched
	StopAttached            // The debugger attached to an existing process
	StopBreakpoint          // An enabled breakpoint was hit
	StopSingleStep          // A single step, or a next over a call, completed
	StopSignaled            // The process received a signal
	StopExited              // The process exited
	StopTerminated          // The process was killed by a signal
	StopError               // The tracing facility failed
)

func (k StopKind) String() string {
	switch k {
	case StopLaunched:
		return "launched"
	case StopAttached:
		return "attached"
	case StopBreakpoint:
		return "breakpoint hit"
	case StopSingleStep:
		return "single step complete"
	case StopSignaled:
		return "signaled"
	case StopExited:
		return "exited"
	case StopTerminated:
		return "terminated"
	case StopError:
		return "error"
	}
	return "unknown"
}

// StopReason is the outcome of an execution command.
type StopReason struct {
	Kind     StopKind
	Addr     uint64 // breakpoint address, for StopBreakpoint
	Signal   int    // for StopSignaled and StopTerminated
	ExitCode int    // for StopExited
	Manual   bool   // StopSignaled caused by RequestManualStop
	Err      error  // for StopError
}

func (sr StopReason) String() string {
	switch sr.Kind {
	case StopBreakpoint:
		return fmt.Sprintf("breakpoint hit at %#x", sr.Addr)
	case StopSignaled:
		if sr.Manual {
			return fmt.Sprintf("stopped by request (signal %d)", sr.Signal)
		}
		return fmt.Sprintf("received signal %d", sr.Signal)
	case StopExited:
		return fmt.Sprintf("exited with status %d", sr.ExitCode)
	case StopTerminated:
		return fmt.Sprintf("terminated by signal %d", sr.Signal)
	case StopError:
		return fmt.Sprintf("error: %v", sr.Err)
	}
	return sr.Kind.String()
}

// TargetConfig configures a new Target.
type TargetConfig struct {
	// StopReason is the reason of the stop the process is in when the
	// Target is created, StopLaunched or StopAttached.
	StopReason StopKind
	// PassSignals are forwarded to the target without stopping. A nil
	// slice selects DefaultPassSignals, an empty one disables passing.
	PassSignals []int
}

// Target represents the process being debugged.
type Target struct {
	proc ProcessInternal
	pid  int

	state       LifecycleState
	exitStatus  int
	breakpoints *BreakpointMap
	lastStop    StopReason

	// onBreakpoint is set when the last stop was a breakpoint hit or a
	// single step that landed at stopPC. Only then does resuming from
	// stopPC step over the breakpoint there.
	onBreakpoint bool
	stopPC       uint64

	// pendingSignal is the signal that caused the last StopSignaled, it is
	// delivered by the next Continue unless the debugger owns it.
	pendingSignal int
	// delayedSignal is a pass signal received during a single step, it is
	// delivered on the next resume.
	delayedSignal int
	passSignals   map[int]bool

	log logflags.Logger

	stopMu              sync.Mutex
	manualStopRequested bool
}

// NewTarget returns a Target driving p, which must be stopped.
func NewTarget(p ProcessInternal, cfg TargetConfig) *Target {
	pass := cfg.PassSignals
	if pass == nil {
		pass = DefaultPassSignals
	}
	t := &Target{
		proc:        p,
		pid:         p.Pid(),
		state:       StateStopped,
		breakpoints: NewBreakpointMap(p.Memory()),
		lastStop:    StopReason{Kind: cfg.StopReason},
		passSignals: make(map[int]bool, len(pass)),
		log:         logflags.ProcLogger().WithField("pid", p.Pid()),
	}
	for _, sig := range pass {
		t.passSignals[sig] = true
	}
	return t
}

// Pid returns the process id of the target.
func (t *Target) Pid() int { return t.pid }

// State returns the lifecycle state of the target.
func (t *Target) State() LifecycleState { return t.state }

// Exited returns true if the process is gone.
func (t *Target) Exited() bool {
	return t.state == StateExited || t.state == StateTerminated
}

// LastStop returns the reason of the most recent stop.
func (t *Target) LastStop() StopReason { return t.lastStop }

// ExitStatus returns the exit code of an exited process or the negated
// termination signal of a terminated one.
func (t *Target) ExitStatus() int { return t.exitStatus }

// PendingSignal returns the signal that the next Continue will deliver.
func (t *Target) PendingSignal() int {
	if t.delayedSignal != 0 {
		return t.delayedSignal
	}
	if debuggerSignal(t.pendingSignal) {
		return 0
	}
	return t.pendingSignal
}

// Breakpoints returns the user breakpoints of the target sorted by ID.
func (t *Target) Breakpoints() []*Breakpoint {
	return t.breakpoints.List(UserBreakpoint)
}

// BreakpointMap returns the breakpoint manager of the target.
func (t *Target) BreakpointMap() *BreakpointMap {
	return t.breakpoints
}

// FindBreakpoint returns the breakpoint at addr.
func (t *Target) FindBreakpoint(addr uint64) (*Breakpoint, bool) {
	bp, ok := t.breakpoints.M[addr]
	return bp, ok
}

func (t *Target) checkStopped() error {
	switch t.state {
	case StateStopped:
		return nil
	case StateExited, StateTerminated:
		return ErrProcessExited{Pid: t.pid, Status: t.exitStatus}
	case StateDetached:
		return ProcessDetachedError{}
	case StateNotStarted:
		return ErrNotStarted
	}
	return ErrNotStopped
}

// SetBreakpoint installs a user breakpoint at addr.
func (t *Target) SetBreakpoint(addr uint64) (*Breakpoint, error) {
	if err := t.checkStopped(); err != nil {
		return nil, &BreakpointError{Addr: addr, Err: err}
	}
	return t.breakpoints.Set(addr, UserBreakpoint)
}

// ClearBreakpoint removes the user breakpoint at addr, restoring its
// original byte. Clearing an address without a breakpoint does nothing.
func (t *Target) ClearBreakpoint(addr uint64) error {
	if err := t.checkStopped(); err != nil {
		return &BreakpointError{Addr: addr, Err: err}
	}
	return t.breakpoints.RemoveKind(addr, UserBreakpoint)
}

// EnableBreakpoint re-installs the trap of the breakpoint at addr.
func (t *Target) EnableBreakpoint(addr uint64) error {
	if err := t.checkStopped(); err != nil {
		return &BreakpointError{Addr: addr, Err: err}
	}
	return t.breakpoints.Enable(addr)
}

// DisableBreakpoint restores the original byte of the breakpoint at addr
// keeping the record.
func (t *Target) DisableBreakpoint(addr uint64) error {
	if err := t.checkStopped(); err != nil {
		return &BreakpointError{Addr: addr, Err: err}
	}
	return t.breakpoints.Disable(addr)
}

// MaxMemoryRead is the largest number of bytes a single ReadMemory call
// returns.
const MaxMemoryRead = 1 << 26

// ReadMemory reads n bytes at addr. Addresses of enabled breakpoints read
// as the trap instruction.
func (t *Target) ReadMemory(addr uint64, n int) ([]byte, error) {
	if err := t.checkStopped(); err != nil {
		return nil, &MemoryAccessError{Addr: addr, Len: n, Err: err}
	}
	if n < 0 || n > MaxMemoryRead {
		return nil, &MemoryAccessError{Addr: addr, Len: n, Err: ErrInvalidLength}
	}
	buf := make([]byte, n)
	if err := readFull(t.proc.Memory(), buf, addr); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadOriginalMemory is like ReadMemory but shows the original bytes in
// place of the traps of enabled breakpoints.
func (t *Target) ReadOriginalMemory(addr uint64, n int) ([]byte, error) {
	buf, err := t.ReadMemory(addr, n)
	if err != nil {
		return nil, err
	}
	t.breakpoints.MaskOriginal(buf, addr)
	return buf, nil
}

// WriteMemory writes data at addr. A write covering a breakpoint changes the
// byte restored when the breakpoint is removed, the trap stays in place.
func (t *Target) WriteMemory(addr uint64, data []byte) error {
	if err := t.checkStopped(); err != nil {
		return &MemoryAccessError{Addr: addr, Len: len(data), Write: true, Err: err}
	}
	err := t.breakpoints.WriteThrough(addr, data)
	if errors.Is(err, ErrTrapPresent) {
		return &MemoryAccessError{Addr: addr, Len: len(data), Write: true, Err: err}
	}
	return err
}

// Registers returns a fresh copy of the registers of the target.
func (t *Target) Registers() (*Registers, error) {
	if err := t.checkStopped(); err != nil {
		return nil, &RegisterError{Err: err}
	}
	regs, err := t.proc.Registers()
	if err != nil {
		return nil, &RegisterError{Err: err}
	}
	return regs, nil
}

// SetRegisters writes regs to the target.
func (t *Target) SetRegisters(regs *Registers) error {
	if err := t.checkStopped(); err != nil {
		return &RegisterError{Write: true, Err: err}
	}
	if err := t.proc.SetRegisters(regs); err != nil {
		return &RegisterError{Write: true, Err: err}
	}
	return nil
}

// PC returns the current instruction pointer.
func (t *Target) PC() (uint64, error) {
	regs, err := t.Registers()
	if err != nil {
		return 0, err
	}
	return regs.PC(), nil
}

// Detach removes every breakpoint and releases the process. Detaching
// from a process that is gone only releases the backend.
func (t *Target) Detach() error {
	switch t.state {
	case StateDetached:
		return nil
	case StateExited, StateTerminated:
		t.breakpoints.Invalidate()
		t.proc.Close()
		t.state = StateDetached
		return nil
	}
	if err := t.checkStopped(); err != nil {
		return &DetachError{Pid: t.pid, Err: err}
	}
	if err := t.breakpoints.RestoreAll(); err != nil {
		return &DetachError{Pid: t.pid, Err: err}
	}
	if err := t.proc.Detach(); err != nil {
		return &DetachError{Pid: t.pid, Err: err}
	}
	t.proc.Close()
	t.state = StateDetached
	t.log.Debugf("detached")
	return nil
}

// Kill terminates the process.
func (t *Target) Kill() error {
	if t.Exited() || t.state == StateDetached {
		return nil
	}
	if err := t.proc.Kill(); err != nil {
		return err
	}
	t.breakpoints.Invalidate()
	t.terminated(sigKILL)
	t.proc.Close()
	return nil
}

// RequestManualStop asks the running target to stop. The execution command
// in progress returns StopSignaled with Manual set. It is safe to call
// from any goroutine.
func (t *Target) RequestManualStop() error {
	t.stopMu.Lock()
	defer t.stopMu.Unlock()
	if !t.proc.Alive() {
		return nil
	}
	t.manualStopRequested = true
	return t.proc.RequestManualStop()
}

// checkAndClearManualStopRequest returns true the first time it is called
// after RequestManualStop.
func (t *Target) checkAndClearManualStopRequest() bool {
	t.stopMu.Lock()
	defer t.stopMu.Unlock()
	msr := t.manualStopRequested
	t.manualStopRequested = false
	return msr
}

func (t *Target) exited(status int) StopReason {
	t.state = StateExited
	t.exitStatus = status
	t.breakpoints.Invalidate()
	t.onBreakpoint = false
	t.lastStop = StopReason{Kind: StopExited, ExitCode: status}
	t.log.Debugf("process exited with status %d", status)
	return t.lastStop
}

func (t *Target) terminated(sig int) StopReason {
	t.state = StateTerminated
	t.exitStatus = -sig
	t.breakpoints.Invalidate()
	t.onBreakpoint = false
	t.lastStop = StopReason{Kind: StopTerminated, Signal: sig}
	t.log.Debugf("process terminated by signal %d", sig)
	return t.lastStop
}

// execFailure records a failure of the tracing facility. The target stays
// Stopped if the process is still there.
func (t *Target) execFailure(op string, err error) (StopReason, error) {
	if t.proc.Alive() {
		t.state = StateStopped
	} else {
		t.state = StateTerminated
		t.breakpoints.Invalidate()
	}
	eerr := &ExecError{Op: op, Err: err}
	t.lastStop = StopReason{Kind: StopError, Err: eerr}
	t.log.Errorf("%v", eerr)
	return t.lastStop, eerr
}
