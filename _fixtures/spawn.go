package main

import (
	"os"
	"runtime"
	"syscall"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "child" {
		os.Exit(7)
	}
	exe, err := os.Executable()
	if err != nil {
		os.Exit(1)
	}
	syscall.Exec(exe, []string{exe, "child"}, os.Environ())
	os.Exit(1)
}
