package debugger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fdbdbg/fdb/pkg/logflags"
	"github.com/fdbdbg/fdb/pkg/proc"
	"github.com/fdbdbg/fdb/pkg/proc/native"
	"github.com/fdbdbg/fdb/service"
	"github.com/fdbdbg/fdb/service/api"
)

// Debugger service.
//
// Debugger provides a higher level of abstraction over proc.Target. It
// serializes the commands of its clients, converts from internal types to
// the types expected by clients and layers cancellation on top of the
// blocking execution commands of proc.
type Debugger struct {
	config *Config
	// arguments to launch a new process.
	processArgs []string

	targetMutex sync.Mutex
	target      *proc.Target
	log         logflags.Logger

	running      bool
	runningMutex sync.Mutex
}

var _ service.Client = (*Debugger)(nil)

// Config provides the configuration to start a Debugger.
//
// If AttachPid is set the debugger attaches to that process, otherwise it
// launches the program described by the process arguments passed to New.
type Config struct {
	// WorkingDir is working directory of the new process. This field is used
	// only when launching a new process.
	WorkingDir string

	// AttachPid is the PID of an existing process to which the debugger should
	// attach.
	AttachPid int

	// Env is the environment of the new process, nil inherits the
	// environment of the debugger.
	Env []string

	// TTY is the terminal the new process uses for its standard streams.
	TTY string

	// Foreground lets target process access stdin.
	Foreground bool

	// DisableASLR launches the process with address space randomization
	// turned off.
	DisableASLR bool

	// PassSignals are delivered to the target without stopping it. Nil
	// selects proc.DefaultPassSignals.
	PassSignals []int
}

// ErrNoProgram is returned by New when there is nothing to launch.
var ErrNoProgram = errors.New("no program to launch")

// New creates a new Debugger. ProcessArgs specify the commandline arguments for the
// new process.
func New(config *Config, processArgs []string) (*Debugger, error) {
	d := &Debugger{
		config:      config,
		processArgs: processArgs,
		log:         logflags.DebuggerLogger(),
	}
	tcfg := proc.TargetConfig{PassSignals: config.PassSignals}

	// Create the process by either attaching or launching.
	switch {
	case d.config.AttachPid > 0:
		d.log.Infof("attaching to pid %d", d.config.AttachPid)
		t, err := native.Attach(d.config.AttachPid, tcfg)
		if err != nil {
			return nil, attachErrorMessage(d.config.AttachPid, err)
		}
		d.target = t

	default:
		if len(d.processArgs) == 0 {
			return nil, ErrNoProgram
		}
		d.log.Infof("launching process with args: %v", d.processArgs)
		var flags proc.LaunchFlags
		if d.config.Foreground {
			flags |= proc.LaunchForeground
		}
		if d.config.DisableASLR {
			flags |= proc.LaunchDisableASLR
		}
		t, err := native.Launch(d.processArgs, d.config.WorkingDir, flags, d.config.Env, d.config.TTY, tcfg)
		if err != nil {
			return nil, fmt.Errorf("could not launch process: %w", err)
		}
		d.target = t
	}
	return d, nil
}

// ProcessPid returns the PID of the process
// the debugger is debugging.
func (d *Debugger) ProcessPid() int {
	return d.target.Pid()
}

// Launched returns true if the process was started by the debugger.
func (d *Debugger) Launched() bool {
	return d.config.AttachPid == 0
}

// Detach detaches from the target process.
// If `kill` is true we will kill the process after
// detaching.
func (d *Debugger) Detach(kill bool) error {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()

	if kill {
		d.log.Debug("killing process")
		if err := d.target.Kill(); err != nil {
			return err
		}
	}
	return d.target.Detach()
}

// State returns the current state of the debugger. If nowait is true and
// a command is executing only the Running field is set.
func (d *Debugger) State(nowait bool) *api.DebuggerState {
	if d.isRunning() && nowait {
		return &api.DebuggerState{Pid: d.target.Pid(), Running: true}
	}

	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	return d.state()
}

func (d *Debugger) state() *api.DebuggerState {
	t := d.target
	state := &api.DebuggerState{
		Pid:           t.Pid(),
		State:         t.State().String(),
		Exited:        t.Exited(),
		ExitStatus:    t.ExitStatus(),
		StopReason:    api.ConvertStopReason(t.LastStop()),
		PendingSignal: t.PendingSignal(),
		Breakpoints:   api.ConvertBreakpoints(t.Breakpoints()),
	}
	if t.State() == proc.StateStopped {
		if pc, err := t.PC(); err == nil {
			state.PC = pc
		}
	}
	return state
}

func (d *Debugger) setRunning(running bool) {
	d.runningMutex.Lock()
	d.running = running
	d.runningMutex.Unlock()
}

func (d *Debugger) isRunning() bool {
	d.runningMutex.Lock()
	defer d.runningMutex.Unlock()
	return d.running
}

// Halt asks the running target to stop. It is safe to call while another
// goroutine is executing Command.
func (d *Debugger) Halt() error {
	// RequestManualStop does not invoke any ptrace syscalls, so it's safe to
	// access the process directly.
	d.log.Debug("halting")
	return d.target.RequestManualStop()
}

// Command handles commands which control the debugger lifecycle. The
// returned state is valid even when an error is returned.
func (d *Debugger) Command(ctx context.Context, command *api.DebuggerCommand) (*api.DebuggerState, error) {
	var err error

	if command.Name == api.Halt {
		err = d.Halt()
	}

	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()

	switch command.Name {
	case api.Continue:
		d.log.Debug("continuing")
		err = d.resume(ctx, d.target.Continue)
	case api.Signal:
		d.log.Debugf("continuing with signal %d", command.Signal)
		err = d.resume(ctx, func() (proc.StopReason, error) {
			return d.target.ContinueWithSignal(command.Signal)
		})
	case api.Step:
		d.log.Debug("single stepping")
		err = d.resume(ctx, d.target.StepInstruction)
	case api.Next:
		d.log.Debug("nexting")
		err = d.resume(ctx, d.target.NextInstruction)
	case api.StepOverBreakpoint:
		d.log.Debug("stepping over breakpoint")
		err = d.resume(ctx, d.target.StepOverBreakpoint)
	case api.SetBreakpoint:
		var bp *proc.Breakpoint
		bp, err = d.target.SetBreakpoint(command.Addr)
		if err == nil {
			d.log.Infof("created breakpoint: %s", bp)
		}
	case api.ClearBreakpoint:
		err = d.target.ClearBreakpoint(command.Addr)
	case api.EnableBreakpoint:
		err = d.target.EnableBreakpoint(command.Addr)
	case api.DisableBreakpoint:
		err = d.target.DisableBreakpoint(command.Addr)
	case api.Halt:
		// RequestManualStop already called
	default:
		return nil, fmt.Errorf("unknown command %q", command.Name)
	}

	state := d.state()
	state.Err = err
	return state, err
}

// resume runs fn on a separate goroutine. If ctx is done before fn returns
// the target is asked to stop and resume waits for the stop to be reported.
func (d *Debugger) resume(ctx context.Context, fn func() (proc.StopReason, error)) error {
	d.setRunning(true)
	defer d.setRunning(false)

	done := make(chan error, 1)
	go func() {
		_, err := fn()
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}
	select {
	case err := <-done:
		return err
	default:
	}
	d.log.Debugf("%v, requesting stop", ctx.Err())
	if err := d.target.RequestManualStop(); err != nil {
		d.log.Errorf("could not stop target: %v", err)
	}
	return <-done
}

// Breakpoints returns the list of current user breakpoints.
func (d *Debugger) Breakpoints() []*api.Breakpoint {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	return api.ConvertBreakpoints(d.target.Breakpoints())
}

// FindBreakpoint returns the breakpoint at addr.
func (d *Debugger) FindBreakpoint(addr uint64) *api.Breakpoint {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	bp, ok := d.target.FindBreakpoint(addr)
	if !ok || !bp.IsUser() {
		return nil
	}
	return api.ConvertBreakpoint(bp)
}

// ReadMemory reads n bytes of target memory at addr.
func (d *Debugger) ReadMemory(addr uint64, n int) ([]byte, error) {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	return d.target.ReadMemory(addr, n)
}

// WriteMemory writes data to target memory at addr.
func (d *Debugger) WriteMemory(addr uint64, data []byte) error {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	return d.target.WriteMemory(addr, data)
}

// Registers returns the general purpose registers, all of them if all is
// set.
func (d *Debugger) Registers(all bool) ([]api.Register, error) {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	regs, err := d.target.Registers()
	if err != nil {
		return nil, err
	}
	return api.ConvertRegisters(regs.Slice(all)), nil
}

// SetRegister changes the value of the register called name.
func (d *Debugger) SetRegister(name string, value uint64) error {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	regs, err := d.target.Registers()
	if err != nil {
		return err
	}
	if err := regs.Set(name, value); err != nil {
		return err
	}
	return d.target.SetRegisters(regs)
}

// Disassemble decodes count instructions starting at addr, or at the
// current instruction pointer if addr is 0.
func (d *Debugger) Disassemble(addr uint64, count int, flavour proc.AssemblyFlavour) ([]api.AsmInstruction, error) {
	d.targetMutex.Lock()
	defer d.targetMutex.Unlock()
	if addr == 0 {
		pc, err := d.target.PC()
		if err != nil {
			return nil, err
		}
		addr = pc
	}
	insts, err := d.target.Disassemble(addr, count)
	if err != nil {
		return nil, err
	}
	r := make([]api.AsmInstruction, len(insts))
	for i := range insts {
		r[i] = api.ConvertAsmInstruction(&insts[i], insts[i].Text(flavour))
	}
	return r, nil
}
