package proc

import "errors"

// Continue resumes the target until it hits an enabled breakpoint, stops
// because of a signal, or exits. If the target is stopped on a breakpoint
// the original instruction is executed first.
// The signal that caused the previous stop is delivered unless the
// debugger itself caused it.
func (t *Target) Continue() (StopReason, error) {
	sig := t.pendingSignal
	if debuggerSignal(sig) {
		sig = 0
	}
	return t.continueWith(sig)
}

// ContinueWithSignal is like Continue but delivers sig, 0 for no signal,
// instead of the pending one. A pass signal deferred by a single step is
// still delivered, on a later resume if sig is not 0.
func (t *Target) ContinueWithSignal(sig int) (StopReason, error) {
	return t.continueWith(sig)
}

func (t *Target) continueWith(sig int) (StopReason, error) {
	if err := t.checkStopped(); err != nil {
		return StopReason{Kind: StopError, Err: err}, &ExecError{Op: "continue", Err: err}
	}
	t.pendingSignal = 0

	regs, err := t.proc.Registers()
	if err != nil {
		return t.execFailure("continue", err)
	}
	if pc := regs.PC(); t.onBreakpoint && pc == t.stopPC && t.breakpoints.IsBreakpointAddress(pc) {
		t.log.Debugf("stepping over breakpoint at %#x", pc)
		sr, err := t.step()
		if err != nil || sr.Kind != StopSingleStep {
			return sr, err
		}
	}

	for {
		if sig == 0 {
			sig, t.delayedSignal = t.delayedSignal, 0
		}
		t.state = StateRunning
		if err := t.proc.Resume(sig); err != nil {
			return t.execFailure("continue", err)
		}
		sig = 0
		ev, err := t.proc.Wait()
		if err != nil {
			return t.execFailure("wait", err)
		}

		switch ev.Kind {
		case EventExited:
			return t.exited(ev.Status), nil
		case EventSignaled:
			return t.terminated(ev.Signal), nil
		case EventExec:
			t.log.Debugf("process called execve, breakpoints invalidated")
			t.breakpoints.Invalidate()
			continue
		}

		switch {
		case ev.Signal == sigTRAP:
			regs, err := t.proc.Registers()
			if err != nil {
				return t.execFailure("continue", err)
			}
			pc := regs.PC()
			bp := t.breakpoints.enabledAt(pc - BreakpointSize)
			if bp == nil {
				// A trap instruction that the debugger did not place, the
				// instruction pointer is left after it.
				return t.signaled(sigTRAP, false), nil
			}
			regs.SetPC(bp.Addr)
			if err := t.proc.SetRegisters(regs); err != nil {
				return t.execFailure("continue", &RegisterError{Write: true, Err: err})
			}
			return t.breakpointHit(bp), nil
		case t.passSignals[ev.Signal]:
			t.log.Debugf("passing signal %d", ev.Signal)
			sig = ev.Signal
		case ev.Signal == sigSTOP && t.checkAndClearManualStopRequest():
			return t.signaled(sigSTOP, true), nil
		default:
			return t.signaled(ev.Signal, false), nil
		}
	}
}

// StepInstruction executes exactly one machine instruction. If the
// instruction pointer is on an enabled breakpoint the original instruction
// is executed and the trap is put back afterwards.
// Landing on a breakpoint address still reports StopSingleStep.
func (t *Target) StepInstruction() (StopReason, error) {
	if err := t.checkStopped(); err != nil {
		return StopReason{Kind: StopError, Err: err}, &ExecError{Op: "step", Err: err}
	}
	return t.step()
}

// StepOverBreakpoint executes the original instruction under the enabled
// breakpoint at the instruction pointer, then re-installs the trap.
func (t *Target) StepOverBreakpoint() (StopReason, error) {
	if err := t.checkStopped(); err != nil {
		return StopReason{Kind: StopError, Err: err}, &ExecError{Op: "step over breakpoint", Err: err}
	}
	regs, err := t.proc.Registers()
	if err != nil {
		return t.execFailure("step over breakpoint", err)
	}
	if !t.breakpoints.IsBreakpointAddress(regs.PC()) {
		err := &BreakpointError{Addr: regs.PC(), Err: ErrNotOnBreakpoint}
		return StopReason{Kind: StopError, Err: err}, err
	}
	return t.step()
}

// NextInstruction is like StepInstruction except that a CALL is executed
// until it returns to the instruction that follows it.
func (t *Target) NextInstruction() (StopReason, error) {
	if err := t.checkStopped(); err != nil {
		return StopReason{Kind: StopError, Err: err}, &ExecError{Op: "next", Err: err}
	}
	regs, err := t.proc.Registers()
	if err != nil {
		return t.execFailure("next", err)
	}
	pc, sp := regs.PC(), regs.SP()
	inst, err := t.decodeAt(pc)
	if err != nil || !inst.IsCall() {
		return t.step()
	}

	ret := pc + uint64(inst.Size)
	prev, existed := t.breakpoints.M[ret]
	wasDisabled := existed && !prev.Enabled
	bp, err := t.breakpoints.Set(ret, NextBreakpoint)
	if err != nil {
		if errors.Is(err, ErrTrapPresent) {
			return t.step()
		}
		return StopReason{Kind: StopError, Err: err}, err
	}
	hits := bp.TotalHitCount
	if t.breakpoints.IsBreakpointAddress(pc) {
		// The call itself must run, not report the breakpoint under it.
		t.onBreakpoint = true
		t.stopPC = pc
	}
	if wasDisabled {
		if err := t.breakpoints.Enable(ret); err != nil {
			return StopReason{Kind: StopError, Err: err}, err
		}
	}
	defer func() {
		if t.state != StateStopped {
			return
		}
		if wasDisabled {
			if err := t.breakpoints.Disable(ret); err != nil {
				t.log.Errorf("could not disable breakpoint at %#x: %v", ret, err)
			}
		}
		if err := t.breakpoints.RemoveKind(ret, NextBreakpoint); err != nil {
			t.log.Errorf("could not remove next breakpoint at %#x: %v", ret, err)
		}
	}()

	for {
		sr, err := t.Continue()
		if err != nil || sr.Kind != StopBreakpoint || sr.Addr != ret {
			return sr, err
		}
		if wasDisabled {
			bp.TotalHitCount = hits
		}
		regs, err := t.proc.Registers()
		if err != nil {
			return t.execFailure("next", err)
		}
		if regs.SP() >= sp {
			t.lastStop = StopReason{Kind: StopSingleStep, Addr: ret}
			return t.lastStop, nil
		}
		// Hit by a recursive call, deeper in the stack.
		if bp.IsUser() && !wasDisabled {
			return sr, nil
		}
	}
}

// step single steps the target with the trap at the instruction pointer,
// if any, removed for the duration of the step.
func (t *Target) step() (StopReason, error) {
	regs, err := t.proc.Registers()
	if err != nil {
		return t.execFailure("step", err)
	}
	pc := regs.PC()
	bp := t.breakpoints.enabledAt(pc)
	if bp != nil {
		if err := t.breakpoints.restore(bp); err != nil {
			return t.execFailure("step", err)
		}
	}
	sr, err := t.stepLoop()
	if bp != nil && t.state == StateStopped && t.breakpoints.M[pc] == bp {
		if perr := t.breakpoints.patch(bp); perr != nil && err == nil {
			return t.execFailure("step", perr)
		}
	}
	return sr, err
}

func (t *Target) stepLoop() (StopReason, error) {
	for {
		t.state = StateRunning
		if err := t.proc.SingleStep(0); err != nil {
			return t.execFailure("single step", err)
		}
		ev, err := t.proc.Wait()
		if err != nil {
			return t.execFailure("wait", err)
		}

		switch ev.Kind {
		case EventExited:
			return t.exited(ev.Status), nil
		case EventSignaled:
			return t.terminated(ev.Signal), nil
		case EventExec:
			t.log.Debugf("process called execve during step, breakpoints invalidated")
			t.breakpoints.Invalidate()
			return t.stepComplete()
		}

		switch {
		case ev.Signal == sigTRAP:
			return t.stepComplete()
		case t.passSignals[ev.Signal]:
			// The instruction did not execute, deliver the signal on the
			// next resume and try again.
			if t.delayedSignal == 0 {
				t.delayedSignal = ev.Signal
			}
		case ev.Signal == sigSTOP && t.checkAndClearManualStopRequest():
		default:
			return t.signaled(ev.Signal, false), nil
		}
	}
}

func (t *Target) stepComplete() (StopReason, error) {
	regs, err := t.proc.Registers()
	if err != nil {
		return t.execFailure("step", err)
	}
	t.state = StateStopped
	t.onBreakpoint = true
	t.stopPC = regs.PC()
	t.lastStop = StopReason{Kind: StopSingleStep, Addr: regs.PC()}
	return t.lastStop, nil
}

func (t *Target) breakpointHit(bp *Breakpoint) StopReason {
	t.state = StateStopped
	if bp.IsUser() {
		bp.TotalHitCount++
	}
	t.onBreakpoint = true
	t.stopPC = bp.Addr
	t.lastStop = StopReason{Kind: StopBreakpoint, Addr: bp.Addr}
	t.log.Debugf("breakpoint hit at %#x", bp.Addr)
	return t.lastStop
}

func (t *Target) signaled(sig int, manual bool) StopReason {
	t.state = StateStopped
	t.pendingSignal = sig
	t.onBreakpoint = false
	t.lastStop = StopReason{Kind: StopSignaled, Signal: sig, Manual: manual}
	t.log.Debugf("stopped by signal %d (manual=%v)", sig, manual)
	return t.lastStop
}
