//go:build linux && amd64

package native

import (
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/fdbdbg/fdb/pkg/logflags"
)

// ptraceAttach executes the sys.PtraceAttach call.
func ptraceAttach(pid int) error {
	logPtrace("PTRACE_ATTACH pid=%d", pid)
	return sys.PtraceAttach(pid)
}

// ptraceDetach calls ptrace(PTRACE_DETACH).
func ptraceDetach(tid, sig int) error {
	logPtrace("PTRACE_DETACH tid=%d sig=%d", tid, sig)
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(tid), 1, uintptr(sig), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceCont executes ptrace PTRACE_CONT
func ptraceCont(tid, sig int) error {
	logPtrace("PTRACE_CONT tid=%d sig=%d", tid, sig)
	return sys.PtraceCont(tid, sig)
}

// ptraceSingleStep executes ptrace PTRACE_SINGLESTEP
func ptraceSingleStep(pid, sig int) error {
	logPtrace("PTRACE_SINGLESTEP pid=%d sig=%d", pid, sig)
	_, _, e1 := sys.Syscall6(sys.SYS_PTRACE, uintptr(sys.PTRACE_SINGLESTEP), uintptr(pid), uintptr(0), uintptr(sig), 0, 0)
	if e1 != 0 {
		return e1
	}
	return nil
}

// ptraceSetOptions executes ptrace PTRACE_SETOPTIONS
func ptraceSetOptions(pid, options int) error {
	logPtrace("PTRACE_SETOPTIONS pid=%d options=%#x", pid, options)
	return sys.PtraceSetOptions(pid, options)
}

func ptracePeekData(pid int, addr uintptr, buf []byte) (int, error) {
	n, err := sys.PtracePeekData(pid, addr, buf)
	logPtrace("PTRACE_PEEKDATA pid=%d addr=%#x len=%d read=%d err=%v", pid, addr, len(buf), n, err)
	return n, err
}

func ptracePokeData(pid int, addr uintptr, data []byte) (int, error) {
	n, err := sys.PtracePokeData(pid, addr, data)
	logPtrace("PTRACE_POKEDATA pid=%d addr=%#x len=%d written=%d err=%v", pid, addr, len(data), n, err)
	return n, err
}

func ptraceGetRegs(pid int, regs *sys.PtraceRegs) error {
	err := sys.PtraceGetRegs(pid, regs)
	logPtrace("PTRACE_GETREGS pid=%d rip=%#x err=%v", pid, regs.Rip, err)
	return err
}

func ptraceSetRegs(pid int, regs *sys.PtraceRegs) error {
	logPtrace("PTRACE_SETREGS pid=%d rip=%#x", pid, regs.Rip)
	return sys.PtraceSetRegs(pid, regs)
}

func logPtrace(format string, args ...interface{}) {
	if logflags.Ptrace() {
		logflags.PtraceLogger().Debugf(format, args...)
	}
}
