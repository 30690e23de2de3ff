//go:build !linux || !amd64

package native

import (
	"errors"

	"github.com/fdbdbg/fdb/pkg/proc"
)

// ErrNativeBackendDisabled is returned when trying to use the native
// backend on anything but linux/amd64.
var ErrNativeBackendDisabled = errors.New("native backend only supported on linux/amd64")

// Launch returns ErrNativeBackendDisabled.
func Launch(_ []string, _ string, _ proc.LaunchFlags, _ []string, _ string, _ proc.TargetConfig) (*proc.Target, error) {
	return nil, &proc.SpawnError{Err: ErrNativeBackendDisabled}
}

// Attach returns ErrNativeBackendDisabled.
func Attach(pid int, _ proc.TargetConfig) (*proc.Target, error) {
	return nil, &proc.AttachError{Pid: pid, Err: ErrNativeBackendDisabled}
}

// ThreadCount returns ErrNativeBackendDisabled.
func ThreadCount(pid int) (int, error) {
	return 0, ErrNativeBackendDisabled
}
