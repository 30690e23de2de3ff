package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	pid := syscall.Getpid()
	if len(os.Args) > 1 && os.Args[1] == "term" {
		syscall.Tgkill(pid, syscall.Gettid(), syscall.SIGTERM)
		time.Sleep(5 * time.Second)
		os.Exit(1)
	}
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGUSR1)
	syscall.Tgkill(pid, syscall.Gettid(), syscall.SIGUSR1)
	select {
	case <-c:
		os.Exit(0)
	case <-time.After(500 * time.Millisecond):
		os.Exit(2)
	}
}
