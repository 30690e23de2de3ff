package proc

import "golang.org/x/sys/unix"

const (
	sigALRM  = int(unix.SIGALRM)
	sigCHLD  = int(unix.SIGCHLD)
	sigKILL  = int(unix.SIGKILL)
	sigPROF  = int(unix.SIGPROF)
	sigSTOP  = int(unix.SIGSTOP)
	sigTRAP  = int(unix.SIGTRAP)
	sigURG   = int(unix.SIGURG)
	sigWINCH = int(unix.SIGWINCH)
)
