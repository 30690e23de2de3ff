//go:build linux && amd64

package native

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sys "golang.org/x/sys/unix"

	"github.com/fdbdbg/fdb/pkg/proc"

	isatty "github.com/mattn/go-isatty"
)

// Process statuses
const (
	statusSleeping  = 'S'
	statusRunning   = 'R'
	statusTraceStop = 't'
	statusZombie    = 'Z'
	statusDead      = 'X'

	// Job control stop. Also reported for a traced stop by 2.6 kernels.
	statusStopped = 'T'

	personalityGetPersonality = 0xffffffff // argument to pass to personality syscall to get the current personality
	_ADDR_NO_RANDOMIZE        = 0x0040000  // ADDR_NO_RANDOMIZE linux constant
)

// Launch creates and begins debugging a new process. First entry in
// `cmd` is the program to run, and then rest are the arguments
// to be supplied to that process. `wd` is working directory of the program.
// If env is nil the process inherits the environment of the debugger.
// If tty is not empty the process uses it as its controlling terminal and
// for its standard streams.
// The returned Target is stopped at the entry point of the program.
func Launch(cmd []string, wd string, flags proc.LaunchFlags, env []string, tty string, cfg proc.TargetConfig) (*proc.Target, error) {
	if len(cmd) == 0 {
		return nil, &proc.SpawnError{Err: errors.New("empty command line")}
	}
	path, err := exec.LookPath(cmd[0])
	if err != nil {
		return nil, &proc.SpawnError{Path: cmd[0], Err: err}
	}
	if wd != "" && !filepath.IsAbs(path) {
		// exec.Cmd resolves relative paths against Dir.
		if path, err = filepath.Abs(path); err != nil {
			return nil, &proc.SpawnError{Path: cmd[0], Err: err}
		}
	}

	var process *exec.Cmd

	foreground := flags&proc.LaunchForeground != 0
	if tty != "" || !isatty.IsTerminal(os.Stdin.Fd()) {
		// exec.(*Process).Start will fail if we try to send a process to
		// foreground but we are not attached to a terminal.
		foreground = false
	}

	dbp := newProcess(0)
	dbp.execPtraceFunc(func() {
		if flags&proc.LaunchDisableASLR != 0 {
			oldPersonality, _, err := syscall.Syscall(sys.SYS_PERSONALITY, personalityGetPersonality, 0, 0)
			if err == syscall.Errno(0) {
				newPersonality := oldPersonality | _ADDR_NO_RANDOMIZE
				syscall.Syscall(sys.SYS_PERSONALITY, newPersonality, 0, 0)
				defer syscall.Syscall(sys.SYS_PERSONALITY, oldPersonality, 0, 0)
			}
		}

		process = exec.Command(path)
		process.Args = cmd
		process.Stdin = os.Stdin
		process.Stdout = os.Stdout
		process.Stderr = os.Stderr
		process.Env = env
		process.SysProcAttr = &syscall.SysProcAttr{
			Ptrace:     true,
			Setpgid:    true,
			Foreground: foreground,
		}
		if foreground {
			signal.Ignore(syscall.SIGTTOU, syscall.SIGTTIN)
		}
		if tty != "" {
			dbp.ctty, err = attachProcessToTTY(process, tty)
			if err != nil {
				return
			}
		}
		if wd != "" {
			process.Dir = wd
		}
		err = process.Start()
	})
	if err != nil {
		dbp.Close()
		return nil, &proc.SpawnError{Path: path, Err: err}
	}
	dbp.pid = process.Process.Pid
	dbp.childProcess = true
	dbp.log = dbp.log.WithField("pid", dbp.pid)

	fail := func(err error) (*proc.Target, error) {
		_ = sys.Kill(dbp.pid, sys.SIGKILL)
		_, _, _ = dbp.wait(dbp.pid, 0)
		dbp.Close()
		return nil, &proc.SpawnError{Path: path, Err: err}
	}

	// The child stops with SIGTRAP right after execve, before the first
	// instruction of the program.
	_, status, err := dbp.wait(dbp.pid, 0)
	if err != nil {
		return fail(fmt.Errorf("waiting for target execve failed: %v", err))
	}
	if status == nil || !status.Stopped() || status.StopSignal() != sys.SIGTRAP {
		return fail(fmt.Errorf("unexpected status %#x after execve", waitStatusValue(status)))
	}
	dbp.execPtraceFunc(func() { err = ptraceSetOptions(dbp.pid, sys.PTRACE_O_EXITKILL|sys.PTRACE_O_TRACEEXEC) })
	if err != nil {
		return fail(err)
	}
	if err := register(dbp.pid); err != nil {
		return fail(err)
	}
	dbp.registered = true

	cfg.StopReason = proc.StopLaunched
	return proc.NewTarget(dbp, cfg), nil
}

// Attach to an existing process with the given PID. Any signal other than
// the stop caused by PTRACE_ATTACH received before it is forwarded to the
// process.
func Attach(pid int, cfg proc.TargetConfig) (*proc.Target, error) {
	if err := register(pid); err != nil {
		return nil, &proc.AttachError{Pid: pid, Err: err}
	}
	dbp := newProcess(pid)
	dbp.registered = true
	dbp.log = dbp.log.WithField("pid", pid)

	var err error
	dbp.execPtraceFunc(func() { err = ptraceAttach(dbp.pid) })
	if err != nil {
		dbp.Close()
		return nil, &proc.AttachError{Pid: pid, Err: err}
	}

	for {
		_, status, err := dbp.wait(dbp.pid, 0)
		if err != nil {
			dbp.Close()
			return nil, &proc.AttachError{Pid: pid, Err: err}
		}
		if status == nil || status.Exited() || status.Signaled() {
			dbp.postExit()
			dbp.Close()
			return nil, &proc.AttachError{Pid: pid, Err: proc.ErrProcessExited{Pid: pid, Status: waitStatusValue(status)}}
		}
		if !status.Stopped() {
			continue
		}
		if sig := status.StopSignal(); sig != sys.SIGSTOP {
			dbp.log.Debugf("forwarding signal %d received while attaching", sig)
			dbp.execPtraceFunc(func() { err = ptraceCont(dbp.pid, int(sig)) })
			if err != nil {
				dbp.Close()
				return nil, &proc.AttachError{Pid: pid, Err: err}
			}
			continue
		}
		break
	}

	dbp.execPtraceFunc(func() { err = ptraceSetOptions(dbp.pid, sys.PTRACE_O_TRACEEXEC) })
	if err != nil {
		_ = dbp.Detach()
		dbp.Close()
		return nil, &proc.AttachError{Pid: pid, Err: err}
	}

	cfg.StopReason = proc.StopAttached
	return proc.NewTarget(dbp, cfg), nil
}

// Resume lets the process run delivering sig.
func (dbp *nativeProcess) Resume(sig int) (err error) {
	dbp.execPtraceFunc(func() { err = ptraceCont(dbp.pid, sig) })
	return err
}

// SingleStep executes one instruction delivering sig.
func (dbp *nativeProcess) SingleStep(sig int) (err error) {
	dbp.execPtraceFunc(func() { err = ptraceSingleStep(dbp.pid, sig) })
	return err
}

// Wait waits for the next state change of the process.
func (dbp *nativeProcess) Wait() (proc.WaitEvent, error) {
	for {
		_, status, err := dbp.wait(dbp.pid, 0)
		if err != nil {
			if errors.Is(err, sys.ECHILD) {
				dbp.postExit()
			}
			return proc.WaitEvent{}, err
		}
		switch {
		case status == nil:
			// Zombie leader, the exit status is never reported to us.
			dbp.log.Warnf("thread group leader became a zombie")
			dbp.postExit()
			return proc.WaitEvent{Kind: proc.EventExited}, nil
		case status.Exited():
			dbp.postExit()
			return proc.WaitEvent{Kind: proc.EventExited, Status: status.ExitStatus()}, nil
		case status.Signaled():
			dbp.postExit()
			return proc.WaitEvent{Kind: proc.EventSignaled, Signal: int(status.Signal())}, nil
		case status.Stopped():
			sig := status.StopSignal()
			if sig == sys.SIGTRAP && status.TrapCause() == sys.PTRACE_EVENT_EXEC {
				return proc.WaitEvent{Kind: proc.EventExec, Signal: int(sig)}, nil
			}
			return proc.WaitEvent{Kind: proc.EventStopped, Signal: int(sig)}, nil
		}
	}
}

// wait calls wait4 on pid retrying on EINTR.
func (dbp *nativeProcess) wait(pid, options int) (int, *sys.WaitStatus, error) {
	var s sys.WaitStatus
	if (dbp == nil) || (pid != dbp.pid) || (options != 0) {
		for {
			wpid, err := sys.Wait4(pid, &s, sys.WALL|options, nil)
			if err == sys.EINTR {
				continue
			}
			return wpid, &s, err
		}
	}
	// If we call wait4/waitpid on a thread that is the leader of its group,
	// with options == 0, while ptracing and the thread leader has exited leaving
	// zombies of its own then waitpid hangs forever this is apparently intended
	// behaviour in the linux kernel.
	// Therefore we call wait4 in a loop with WNOHANG, sleeping a while between
	// calls and exiting when either wait4 succeeds or we find out that the thread
	// has become a zombie.
	// References:
	// https://sourceware.org/bugzilla/show_bug.cgi?id=12702
	// https://sourceware.org/bugzilla/show_bug.cgi?id=10095
	delay := time.Millisecond
	for {
		wpid, err := sys.Wait4(pid, &s, sys.WNOHANG|sys.WALL|options, nil)
		if err == sys.EINTR {
			continue
		}
		if err != nil {
			return 0, nil, err
		}
		if wpid != 0 {
			return wpid, &s, err
		}
		if status(pid) == statusZombie {
			return pid, nil, nil
		}
		time.Sleep(delay)
		if delay < 200*time.Millisecond {
			delay *= 2
		}
	}
}

// status returns the state field of /proc/pid/stat, 0 if it cannot be
// read.
func status(pid int) rune {
	return statFileState(fmt.Sprintf("/proc/%d/stat", pid))
}

func statFileState(path string) rune {
	buf, err := os.ReadFile(path)
	if err != nil {
		return '\000'
	}
	// The second field of /proc/pid/stat is the name of the task in
	// parentheses, it can contain both parentheses and spaces.
	i := bytes.LastIndexByte(buf, ')')
	if i < 0 || i+2 >= len(buf) {
		return '\000'
	}
	return rune(buf[i+2])
}

func waitStatusValue(s *sys.WaitStatus) int {
	if s == nil {
		return 0
	}
	if s.Exited() {
		return s.ExitStatus()
	}
	if s.Signaled() {
		return -int(s.Signal())
	}
	return int(*s)
}

// RequestManualStop sends SIGSTOP to the thread group leader.
func (dbp *nativeProcess) RequestManualStop() error {
	if !dbp.Alive() {
		return nil
	}
	return sys.Tgkill(dbp.pid, dbp.pid, sys.SIGSTOP)
}

// Detach stops tracing the process and lets it run.
func (dbp *nativeProcess) Detach() error {
	var err error
	dbp.execPtraceFunc(func() { err = ptraceDetach(dbp.pid, 0) })
	if err != nil {
		return err
	}
	dbp.detached.Store(true)
	// For some reason the process will sometimes enter stopped state after a
	// detach, this doesn't happen immediately either.
	// We have to wait a bit here, then check if any thread is stopped and
	// SIGCONT the process if it is.
	time.Sleep(50 * time.Millisecond)
	if anyThreadStopped(dbp.pid) {
		dbp.log.Debugf("process left in group-stop after detach, sending SIGCONT")
		_ = sys.Kill(dbp.pid, sys.SIGCONT)
	}
	return nil
}

func anyThreadStopped(pid int) bool {
	tasks, _ := filepath.Glob(fmt.Sprintf("/proc/%d/task/*/stat", pid))
	for _, task := range tasks {
		if statFileState(task) == statusStopped {
			return true
		}
	}
	return false
}

// ThreadCount returns the number of threads of process pid.
func ThreadCount(pid int) (int, error) {
	tasks, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// Kill kills the process and reaps it.
func (dbp *nativeProcess) Kill() error {
	if dbp.exited.Load() {
		return nil
	}
	if err := sys.Kill(dbp.pid, sys.SIGKILL); err != nil {
		return errors.New("could not deliver signal " + err.Error())
	}
	for {
		wpid, status, err := dbp.wait(dbp.pid, 0)
		if err != nil {
			if errors.Is(err, sys.ECHILD) {
				break
			}
			return err
		}
		if status == nil {
			break
		}
		if wpid == dbp.pid && (status.Signaled() || status.Exited()) {
			break
		}
	}
	dbp.postExit()
	return nil
}
