//go:build linux && amd64

package native

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fdbdbg/fdb/pkg/logflags"
	"github.com/fdbdbg/fdb/pkg/proc"
)

// nativeProcess represents all of the information the debugger
// is holding onto regarding the process we are debugging.
type nativeProcess struct {
	pid int // Process Pid

	ptraceChan     chan func()
	ptraceDoneChan chan interface{}
	childProcess   bool // this process was launched, not attached to
	registered     bool

	exited, detached atomic.Bool

	ctty      *os.File
	closeOnce sync.Once
	log       logflags.Logger
}

// newProcess returns an initialized nativeProcess struct. Before returning,
// it will also launch a goroutine in order to handle ptrace(2)
// functions. For more information, see the documentation on
// `handlePtraceFuncs`.
func newProcess(pid int) *nativeProcess {
	dbp := &nativeProcess{
		pid:            pid,
		ptraceChan:     make(chan func()),
		ptraceDoneChan: make(chan interface{}),
		log:            logflags.PtraceLogger(),
	}
	go dbp.handlePtraceFuncs()
	return dbp
}

var _ proc.ProcessInternal = (*nativeProcess)(nil)

// Pid returns the process ID.
func (dbp *nativeProcess) Pid() int {
	return dbp.pid
}

// Memory returns the process itself, reads and writes go through ptrace.
func (dbp *nativeProcess) Memory() proc.MemoryReadWriter {
	return dbp
}

// Alive returns false once the process has exited or we detached from it.
func (dbp *nativeProcess) Alive() bool {
	return !dbp.exited.Load() && !dbp.detached.Load()
}

// Close stops the ptrace goroutine and releases the pid. It is safe to call
// more than once.
func (dbp *nativeProcess) Close() {
	dbp.closeOnce.Do(func() {
		close(dbp.ptraceChan)
		close(dbp.ptraceDoneChan)
		if dbp.ctty != nil {
			dbp.ctty.Close()
		}
		if dbp.registered {
			unregister(dbp.pid)
		}
	})
}

func (dbp *nativeProcess) handlePtraceFuncs() {
	// We must ensure here that we are running on the same thread during
	// while invoking the ptrace(2) syscall. This is due to the fact that ptrace(2) expects
	// all commands after PTRACE_ATTACH to come from the same thread.
	runtime.LockOSThread()

	for fn := range dbp.ptraceChan {
		fn()
		dbp.ptraceDoneChan <- nil
	}
	runtime.UnlockOSThread()
}

func (dbp *nativeProcess) execPtraceFunc(fn func()) {
	dbp.ptraceChan <- fn
	<-dbp.ptraceDoneChan
}

func (dbp *nativeProcess) postExit() {
	dbp.exited.Store(true)
}
