//go:build !linux

package debugger

func attachErrorMessage(pid int, err error) error {
	return err
}
