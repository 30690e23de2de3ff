//go:build linux && amd64

package native

import (
	"errors"
	"sync"
)

var errAlreadyTraced = errors.New("process is already being debugged")

// traced holds the pids this process has a live handle for.
var traced = struct {
	sync.Mutex
	pids map[int]struct{}
}{pids: make(map[int]struct{})}

func register(pid int) error {
	traced.Lock()
	defer traced.Unlock()
	if _, ok := traced.pids[pid]; ok {
		return errAlreadyTraced
	}
	traced.pids[pid] = struct{}{}
	return nil
}

func unregister(pid int) {
	traced.Lock()
	defer traced.Unlock()
	delete(traced.pids, pid)
}
