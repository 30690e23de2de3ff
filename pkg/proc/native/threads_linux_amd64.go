//go:build linux && amd64

package native

import (
	sys "golang.org/x/sys/unix"

	"github.com/fdbdbg/fdb/pkg/proc"
)

// ReadMemory reads len(buf) bytes of the target at addr. PEEKDATA reads
// whole words, unaligned ranges are handled by x/sys.
func (dbp *nativeProcess) ReadMemory(buf []byte, addr uint64) (n int, err error) {
	if len(buf) == 0 {
		return 0, nil
	}
	dbp.execPtraceFunc(func() { n, err = ptracePeekData(dbp.pid, uintptr(addr), buf) })
	if err == nil && n != len(buf) {
		err = sys.EIO
	}
	return n, err
}

// WriteMemory writes data at addr. Partial words are written by reading
// the word first, so writing a single byte never clobbers its neighbours.
func (dbp *nativeProcess) WriteMemory(addr uint64, data []byte) (written int, err error) {
	if len(data) == 0 {
		return 0, nil
	}
	dbp.execPtraceFunc(func() { written, err = ptracePokeData(dbp.pid, uintptr(addr), data) })
	if err == nil && written != len(data) {
		err = sys.EIO
	}
	return written, err
}

// Registers returns a copy of the general purpose registers of the
// thread group leader.
func (dbp *nativeProcess) Registers() (*proc.Registers, error) {
	var (
		regs proc.Registers
		err  error
	)
	dbp.execPtraceFunc(func() { err = ptraceGetRegs(dbp.pid, (*sys.PtraceRegs)(&regs)) })
	if err != nil {
		return nil, err
	}
	return &regs, nil
}

// SetRegisters writes regs to the thread group leader.
func (dbp *nativeProcess) SetRegisters(regs *proc.Registers) error {
	var err error
	dbp.execPtraceFunc(func() { err = ptraceSetRegs(dbp.pid, (*sys.PtraceRegs)(regs)) })
	return err
}
