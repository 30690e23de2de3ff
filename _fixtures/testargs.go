package main

import (
	"os"
	"runtime"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// expects exactly the arguments "test" and "pass flag".
	if len(os.Args) != 3 || os.Args[1] != "test" || os.Args[2] != "pass flag" {
		os.Exit(1)
	}
}
