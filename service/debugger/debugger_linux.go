package debugger

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// attachErrorMessage adds a hint on how to fix the most common causes of
// EPERM to an attach error.
func attachErrorMessage(pid int, err error) error {
	if !errors.Is(err, syscall.EPERM) {
		return err
	}
	bs, rerr := os.ReadFile("/proc/sys/kernel/yama/ptrace_scope")
	if rerr == nil && len(bs) >= 1 && bs[0] != '0' {
		// Yama documentation: https://www.kernel.org/doc/Documentation/security/Yama.txt
		return fmt.Errorf("%w (this could be caused by a kernel security setting, try writing \"0\" to /proc/sys/kernel/yama/ptrace_scope)", err)
	}
	fi, serr := os.Stat(fmt.Sprintf("/proc/%d", pid))
	if serr != nil {
		return err
	}
	if fi.Sys().(*syscall.Stat_t).Uid != uint32(os.Getuid()) {
		return fmt.Errorf("%w (current user does not own the process)", err)
	}
	return err
}
