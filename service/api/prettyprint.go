package api

import (
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func (sr StopReason) String() string {
	switch sr.Kind {
	case "breakpoint hit":
		return fmt.Sprintf("breakpoint hit at %#x", sr.Addr)
	case "signaled":
		if sr.Manual {
			return "stopped by request"
		}
		return fmt.Sprintf("received signal %d (%s)", sr.Signal, SignalName(sr.Signal))
	case "exited":
		return fmt.Sprintf("exited with status %d", sr.ExitCode)
	case "terminated":
		return fmt.Sprintf("terminated by signal %d (%s)", sr.Signal, SignalName(sr.Signal))
	case "error":
		return "error: " + sr.Err
	}
	return sr.Kind
}

func (bp *Breakpoint) String() string {
	state := "enabled"
	if !bp.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("Breakpoint %d at %#x (%s) hits=%d", bp.ID, bp.Addr, state, bp.TotalHitCount)
}

// HexBytes formats b as space separated hex bytes.
func HexBytes(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}

// SignalName returns the conventional name of a signal number.
func SignalName(sig int) string {
	if name := unix.SignalName(syscall.Signal(sig)); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", sig)
}
