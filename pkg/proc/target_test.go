package proc

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func newFakeTarget(t *testing.T, code []byte) (*Target, *fakeProcess) {
	t.Helper()
	p := newFakeProcess(code)
	return NewTarget(p, TargetConfig{StopReason: StopLaunched}), p
}

func assertStop(t *testing.T, sr StopReason, err error, kind StopKind) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.Kind != kind {
		t.Fatalf("stop reason %v, expected %v", sr, kind)
	}
}

func assertPC(t *testing.T, tgt *Target, pc uint64) {
	t.Helper()
	got, err := tgt.PC()
	if err != nil {
		t.Fatal(err)
	}
	if got != pc {
		t.Fatalf("pc %#x, expected %#x", got, pc)
	}
}

func TestContinueToExit(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0xf4})
	p.regs.Rdi = 3
	if tgt.LastStop().Kind != StopLaunched {
		t.Fatalf("initial stop %v", tgt.LastStop())
	}
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if sr.ExitCode != 3 || tgt.State() != StateExited || tgt.ExitStatus() != 3 {
		t.Fatalf("wrong exit status %v %v %d", sr, tgt.State(), tgt.ExitStatus())
	}
}

func TestContinueHitsBreakpoint(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0x90, 0x90, 0x90, 0xf4})
	bp, err := tgt.SetBreakpoint(fakeBase + 2)
	if err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopBreakpoint)
	if sr.Addr != fakeBase+2 {
		t.Fatalf("hit at %#x", sr.Addr)
	}
	assertPC(t, tgt, fakeBase+2)
	if bp.TotalHitCount != 1 {
		t.Fatalf("hit count %d", bp.TotalHitCount)
	}
	mem, err := tgt.ReadMemory(fakeBase+2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if mem[0] != 0xcc {
		t.Fatalf("trap missing while stopped on breakpoint: %#x", mem[0])
	}

	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
}

func TestContinueBreakpointAtEntry(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0x90, 0xf4})
	if _, err := tgt.SetBreakpoint(fakeBase); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopBreakpoint)
	if sr.Addr != fakeBase {
		t.Fatalf("hit at %#x", sr.Addr)
	}
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
}

func TestContinueLoopHitsEveryIteration(t *testing.T) {
	// nop; nop; jmp -4
	tgt, _ := newFakeTarget(t, []byte{0x90, 0x90, 0xeb, 0xfc})
	bp, err := tgt.SetBreakpoint(fakeBase + 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		sr, err := tgt.Continue()
		assertStop(t, sr, err, StopBreakpoint)
		assertPC(t, tgt, fakeBase+1)
		if bp.TotalHitCount != uint64(i) {
			t.Fatalf("iteration %d: hit count %d", i, bp.TotalHitCount)
		}
	}
}

func TestStepOverBreakpoint(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0x90, 0xf4})
	if _, err := tgt.SetBreakpoint(fakeBase + 1); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.StepOverBreakpoint()
	if !errors.Is(err, ErrNotOnBreakpoint) || sr.Kind != StopError {
		t.Fatalf("step over without breakpoint: %v %v", sr, err)
	}

	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopBreakpoint)
	sr, err = tgt.StepOverBreakpoint()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+2)
	if p.byteAt(fakeBase+1) != 0xcc {
		t.Fatal("trap not re-installed after step over")
	}
}

func TestStepInstruction(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0x90, 0xf4})
	bp, err := tgt.SetBreakpoint(fakeBase + 1)
	if err != nil {
		t.Fatal(err)
	}

	sr, err := tgt.StepInstruction()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+1)
	if bp.TotalHitCount != 0 {
		t.Fatal("landing on a breakpoint with a step counted as a hit")
	}

	// Stepping from the breakpoint executes the original instruction.
	sr, err = tgt.StepInstruction()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+2)
	if p.byteAt(fakeBase+1) != 0xcc {
		t.Fatal("trap not re-installed after step")
	}

	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
}

func TestContinueAfterStepLandsOnBreakpoint(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0x90, 0x90, 0xf4})
	if _, err := tgt.SetBreakpoint(fakeBase + 1); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.StepInstruction()
	assertStop(t, sr, err, StopSingleStep)
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
}

func TestSignalForwarding(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0xf4})
	p.queued = []int{sigUSR1}

	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopSignaled)
	if sr.Signal != sigUSR1 || sr.Manual {
		t.Fatalf("wrong signal stop %v", sr)
	}
	if tgt.State() != StateStopped || tgt.PendingSignal() != sigUSR1 {
		t.Fatalf("state %v pending %d", tgt.State(), tgt.PendingSignal())
	}
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if last := p.resumes[len(p.resumes)-1]; last != sigUSR1 {
		t.Fatalf("pending signal not delivered, resumed with %d", last)
	}
}

func TestContinueWithSignalOverrides(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0xf4})
	p.queued = []int{sigUSR1}

	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopSignaled)
	sr, err = tgt.ContinueWithSignal(0)
	assertStop(t, sr, err, StopExited)
	if last := p.resumes[len(p.resumes)-1]; last != 0 {
		t.Fatalf("suppressed signal delivered: %d", last)
	}
}

func TestContinueWithSignalKeepsDeferredPassSignal(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0x90, 0xf4})
	for _, addr := range []uint64{fakeBase, fakeBase + 2} {
		if _, err := tgt.SetBreakpoint(addr); err != nil {
			t.Fatal(err)
		}
	}
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopBreakpoint)

	// SIGURG arrives while the breakpoint at fakeBase is stepped over.
	p.queued = []int{sigURG}
	sr, err = tgt.ContinueWithSignal(sigUSR1)
	assertStop(t, sr, err, StopBreakpoint)
	if sr.Addr != fakeBase+2 {
		t.Fatalf("hit at %#x", sr.Addr)
	}
	if last := p.resumes[len(p.resumes)-1]; last != sigUSR1 {
		t.Fatalf("requested signal not delivered, resumed with %d", last)
	}
	if tgt.PendingSignal() != sigURG {
		t.Fatalf("deferred signal dropped, pending %d", tgt.PendingSignal())
	}

	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if last := p.resumes[len(p.resumes)-1]; last != sigURG {
		t.Fatalf("deferred signal not delivered, resumes %v", p.resumes)
	}
}

func TestPassSignals(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0xf4})
	p.queued = []int{sigURG}

	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if len(p.resumes) != 2 || p.resumes[1] != sigURG {
		t.Fatalf("pass signal not forwarded: %v", p.resumes)
	}
}

func TestPassSignalsDisabled(t *testing.T) {
	p := newFakeProcess([]byte{0x90, 0xf4})
	tgt := NewTarget(p, TargetConfig{StopReason: StopLaunched, PassSignals: []int{}})
	p.queued = []int{sigURG}

	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopSignaled)
	if sr.Signal != sigURG {
		t.Fatalf("wrong signal %d", sr.Signal)
	}
}

func TestStepDefersPassSignal(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0xf4})
	p.queued = []int{sigURG}

	sr, err := tgt.StepInstruction()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+1)
	if tgt.PendingSignal() != sigURG {
		t.Fatalf("pass signal not deferred, pending %d", tgt.PendingSignal())
	}
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if last := p.resumes[len(p.resumes)-1]; last != sigURG {
		t.Fatalf("deferred signal not delivered, resumed with %d", last)
	}
}

func TestHardcodedTrap(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0xcc, 0x90, 0xf4})

	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopSignaled)
	if sr.Signal != sigTRAP {
		t.Fatalf("expected SIGTRAP, got %d", sr.Signal)
	}
	assertPC(t, tgt, fakeBase+2)
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if last := p.resumes[len(p.resumes)-1]; last != 0 {
		t.Fatalf("SIGTRAP forwarded to the target")
	}
}

func TestSynchronousFault(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0x90, 0x0f, 0x0b})
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopSignaled)
	if sr.Signal != sigILL {
		t.Fatalf("expected SIGILL, got %d", sr.Signal)
	}
	assertPC(t, tgt, fakeBase+1)

	sr, err = tgt.StepInstruction()
	assertStop(t, sr, err, StopSignaled)
}

func TestManualStop(t *testing.T) {
	// jmp .
	tgt, _ := newFakeTarget(t, []byte{0xeb, 0xfe})
	if err := tgt.RequestManualStop(); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopSignaled)
	if !sr.Manual || sr.Signal != sigSTOP {
		t.Fatalf("expected manual stop, got %v", sr)
	}
	if tgt.PendingSignal() != 0 {
		t.Fatal("SIGSTOP would be delivered to the target")
	}
}

func TestExecInvalidatesBreakpoints(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0xf1, 0x90, 0x90, 0xf4})
	if _, err := tgt.SetBreakpoint(fakeBase + 3); err != nil {
		t.Fatal(err)
	}
	// The new image has the original byte where the breakpoint was.
	p.mem[3] = 0x90
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if len(tgt.Breakpoints()) != 0 {
		t.Fatal("breakpoints survived execve")
	}
}

func TestOperationsAfterExit(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0xf4})
	if _, err := tgt.SetBreakpoint(fakeBase); err != nil {
		t.Fatal(err)
	}
	// Exit was reached through the breakpoint: step over it.
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopBreakpoint)
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if len(tgt.Breakpoints()) != 0 {
		t.Fatal("breakpoints survived exit")
	}

	_, err = tgt.ReadMemory(fakeBase, 1)
	var merr *MemoryAccessError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MemoryAccessError, got %v", err)
	}
	var pe ErrProcessExited
	if !errors.As(err, &pe) || pe.Pid != tgt.Pid() {
		t.Fatalf("expected ErrProcessExited inside %v", err)
	}

	_, err = tgt.Continue()
	var eerr *ExecError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if _, err := tgt.Registers(); err == nil {
		t.Fatal("registers of an exited process")
	}
	if err := tgt.Detach(); err != nil {
		t.Fatalf("detach after exit: %v", err)
	}
}

func TestDetachRestoresMemory(t *testing.T) {
	code := []byte{0x90, 0x55, 0x48, 0xf4}
	tgt, p := newFakeTarget(t, code)
	for _, addr := range []uint64{fakeBase + 1, fakeBase + 2} {
		if _, err := tgt.SetBreakpoint(addr); err != nil {
			t.Fatal(err)
		}
	}
	if err := tgt.DisableBreakpoint(fakeBase + 2); err != nil {
		t.Fatal(err)
	}
	if err := tgt.Detach(); err != nil {
		t.Fatal(err)
	}
	for i, b := range code {
		if p.mem[i] != b {
			t.Fatalf("byte %d left as %#x after detach", i, p.mem[i])
		}
	}
	if !p.detached || !p.closed || tgt.State() != StateDetached {
		t.Fatal("backend not released")
	}
	if _, err := tgt.SetBreakpoint(fakeBase); !errors.As(err, new(ProcessDetachedError)) {
		t.Fatalf("expected detached error, got %v", err)
	}
}

func TestKill(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90})
	if err := tgt.Kill(); err != nil {
		t.Fatal(err)
	}
	if p.alive || tgt.State() != StateTerminated || tgt.LastStop().Signal != sigKILL {
		t.Fatalf("target not terminated: %v", tgt.LastStop())
	}
}

func TestWriteMemoryKeepsTrap(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0x90})
	if _, err := tgt.SetBreakpoint(fakeBase + 1); err != nil {
		t.Fatal(err)
	}
	if err := tgt.WriteMemory(fakeBase, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if p.byteAt(fakeBase+1) != 0xcc {
		t.Fatal("trap overwritten")
	}
	mem, err := tgt.ReadOriginalMemory(fakeBase, 3)
	if err != nil {
		t.Fatal(err)
	}
	if mem[0] != 1 || mem[1] != 2 || mem[2] != 3 {
		t.Fatalf("original view %v", mem)
	}
	err = tgt.WriteMemory(fakeBase+fakeMemSize-1, []byte{1, 2})
	var merr *MemoryAccessError
	if !errors.As(err, &merr) || !merr.Write {
		t.Fatalf("expected write MemoryAccessError, got %v", err)
	}
}

func TestWriteTrapOverBreakpoint(t *testing.T) {
	tgt, p := newFakeTarget(t, []byte{0x90, 0x90, 0x90})
	if _, err := tgt.SetBreakpoint(fakeBase + 1); err != nil {
		t.Fatal(err)
	}
	err := tgt.WriteMemory(fakeBase, []byte{0x90, 0xcc})
	var merr *MemoryAccessError
	if !errors.As(err, &merr) || !merr.Write || merr.Addr != fakeBase || merr.Len != 2 {
		t.Fatalf("expected write MemoryAccessError, got %#v", err)
	}
	if !errors.Is(err, ErrTrapPresent) {
		t.Fatalf("expected ErrTrapPresent, got %v", err)
	}
	bp, _ := tgt.FindBreakpoint(fakeBase + 1)
	if p.byteAt(fakeBase+1) != 0xcc || bp.OriginalData[0] != 0x90 {
		t.Fatal("refused write changed the breakpoint")
	}
}

func TestReadMemoryInvalidLength(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0x90})
	for _, n := range []int{-1, MaxMemoryRead + 1} {
		_, err := tgt.ReadMemory(fakeBase, n)
		var merr *MemoryAccessError
		if !errors.As(err, &merr) || !errors.Is(err, ErrInvalidLength) {
			t.Errorf("length %d: expected ErrInvalidLength, got %v", n, err)
		}
		if _, err := tgt.ReadOriginalMemory(fakeBase, n); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("original length %d: expected ErrInvalidLength, got %v", n, err)
		}
	}
}

func TestSetRegisters(t *testing.T) {
	tgt, _ := newFakeTarget(t, []byte{0x90, 0x90, 0xf4})
	regs, err := tgt.Registers()
	if err != nil {
		t.Fatal(err)
	}
	if err := regs.Set("rip", fakeBase+2); err != nil {
		t.Fatal(err)
	}
	if err := regs.Set("rdi", 7); err != nil {
		t.Fatal(err)
	}
	if err := tgt.SetRegisters(regs); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.Continue()
	assertStop(t, sr, err, StopExited)
	if sr.ExitCode != 7 {
		t.Fatalf("exit code %d", sr.ExitCode)
	}
}

// callProgram is
//
//	0x00 call 0x10
//	0x05 nop
//	0x06 exit
//	0x10 nop
//	0x11 ret
func callProgram() []byte {
	code := make([]byte, 0x12)
	code[0] = 0xe8
	binary.LittleEndian.PutUint32(code[1:], 0x10-5)
	code[5] = 0x90
	code[6] = 0xf4
	code[0x10] = 0x90
	code[0x11] = 0xc3
	return code
}

func TestNextInstructionOverCall(t *testing.T) {
	tgt, _ := newFakeTarget(t, callProgram())
	sr, err := tgt.NextInstruction()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+5)
	if len(tgt.BreakpointMap().M) != 0 {
		t.Fatal("internal breakpoint left behind")
	}

	// Not a call: a plain step.
	sr, err = tgt.NextInstruction()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+6)
}

func TestNextInstructionFromBreakpointAtCall(t *testing.T) {
	tgt, p := newFakeTarget(t, callProgram())
	bp, err := tgt.SetBreakpoint(fakeBase)
	if err != nil {
		t.Fatal(err)
	}
	// The launch stop is not a breakpoint stop.
	sr, err := tgt.NextInstruction()
	assertStop(t, sr, err, StopSingleStep)
	if sr.Addr != fakeBase+5 {
		t.Fatalf("stopped at %#x", sr.Addr)
	}
	assertPC(t, tgt, fakeBase+5)
	if bp.TotalHitCount != 0 || p.byteAt(fakeBase) != 0xcc {
		t.Fatalf("breakpoint at call changed: %v", bp)
	}
	sr, err = tgt.Continue()
	assertStop(t, sr, err, StopExited)
}

func TestNextInstructionStopsInsideCall(t *testing.T) {
	tgt, p := newFakeTarget(t, callProgram())
	if _, err := tgt.SetBreakpoint(fakeBase + 0x10); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.NextInstruction()
	assertStop(t, sr, err, StopBreakpoint)
	if sr.Addr != fakeBase+0x10 {
		t.Fatalf("hit at %#x", sr.Addr)
	}
	if p.byteAt(fakeBase+5) != 0x90 {
		t.Fatal("internal breakpoint not removed")
	}
}

func TestNextInstructionDisabledBreakpointAtReturn(t *testing.T) {
	tgt, p := newFakeTarget(t, callProgram())
	bp, err := tgt.SetBreakpoint(fakeBase + 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := tgt.DisableBreakpoint(fakeBase + 5); err != nil {
		t.Fatal(err)
	}
	sr, err := tgt.NextInstruction()
	assertStop(t, sr, err, StopSingleStep)
	assertPC(t, tgt, fakeBase+5)
	if bp.Enabled || p.byteAt(fakeBase+5) != 0x90 || bp.TotalHitCount != 0 {
		t.Fatalf("disabled breakpoint modified: %v", bp)
	}
	if _, ok := tgt.FindBreakpoint(fakeBase + 5); !ok {
		t.Fatal("user breakpoint removed")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		mem  []byte
		kind AsmInstructionKind
		size int
		dest uint64
	}{
		{[]byte{0xe8, 0x0b, 0x00, 0x00, 0x00}, CallInstruction, 5, 0x1010},
		{[]byte{0xc3}, RetInstruction, 1, 0},
		{[]byte{0x90}, OtherInstruction, 1, 0},
		{[]byte{0xeb, 0xfe}, JmpInstruction, 2, 0x1000},
		{[]byte{0x74, 0x02}, JmpInstruction, 2, 0x1004},
		{[]byte{0x48, 0x89, 0xe5}, OtherInstruction, 3, 0},
	}
	for _, tc := range tests {
		inst, err := Decode(tc.mem, 0x1000)
		if err != nil {
			t.Fatalf("%x: %v", tc.mem, err)
		}
		if inst.Kind != tc.kind || inst.Size != tc.size || inst.DestLoc != tc.dest {
			t.Errorf("%x: kind %v size %d dest %#x", tc.mem, inst.Kind, inst.Size, inst.DestLoc)
		}
		if inst.Text(IntelFlavour) == "" || inst.Text(GNUFlavour) == "" || inst.Text(GoFlavour) == "" {
			t.Errorf("%x: empty text", tc.mem)
		}
	}
	if _, err := Decode(nil, 0); err == nil {
		t.Fatal("decoded an empty buffer")
	}
}

func TestDisassembleMasksBreakpoints(t *testing.T) {
	tgt, _ := newFakeTarget(t, callProgram())
	if _, err := tgt.SetBreakpoint(fakeBase); err != nil {
		t.Fatal(err)
	}
	insts, err := tgt.Disassemble(fakeBase, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 3 {
		t.Fatalf("%d instructions", len(insts))
	}
	if !insts[0].IsCall() || !insts[0].Breakpoint || !insts[0].AtPC {
		t.Fatalf("first instruction %#v", insts[0])
	}
	if insts[1].Loc != fakeBase+5 || insts[2].Loc != fakeBase+6 {
		t.Fatalf("wrong instruction addresses %#x %#x", insts[1].Loc, insts[2].Loc)
	}
}

func TestDisassembleInvalidCount(t *testing.T) {
	tgt, _ := newFakeTarget(t, callProgram())
	for _, count := range []int{MaxDisassembleCount + 1, 614891469123651721} {
		if _, err := tgt.Disassemble(fakeBase, count); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("count %d: expected ErrInvalidLength, got %v", count, err)
		}
	}
}

func TestRegistersLookup(t *testing.T) {
	regs := &Registers{Rip: 1, Rsp: 2, Eflags: 3}
	for name, want := range map[string]uint64{"RIP": 1, "pc": 1, "sp": 2, "rflags": 3, "eflags": 3} {
		got, err := regs.Get(name)
		if err != nil || got != want {
			t.Errorf("%s: %d %v", name, got, err)
		}
	}
	if _, err := regs.Get("xmm0"); err == nil {
		t.Error("unknown register accepted")
	}
	if n := len(regs.Slice(false)); n != numGeneralRegisters {
		t.Errorf("general registers %d", n)
	}
	if n := len(regs.Slice(true)); n != len(registerNames) {
		t.Errorf("all registers %d", n)
	}
	gen := regs.Slice(false)
	if gen[0].Name != "rip" || gen[1].Name != "rsp" || gen[2].Name != "rax" {
		t.Errorf("register names %v", gen[:3])
	}
	if !strings.Contains(regs.String(), "     rip = 0x0000000000000001") {
		t.Errorf("registers string %q", regs.String())
	}
}

func TestDefaultPassSignals(t *testing.T) {
	// Linux numbering: SIGURG, SIGCHLD, SIGWINCH, SIGPROF, SIGALRM.
	want := []int{23, 17, 28, 27, 14}
	for i, sig := range DefaultPassSignals {
		if sig != want[i] {
			t.Fatalf("DefaultPassSignals %v, expected %v", DefaultPassSignals, want)
		}
	}
	if !debuggerSignal(5) || !debuggerSignal(19) || debuggerSignal(10) {
		t.Fatal("wrong debugger owned signals")
	}
}
