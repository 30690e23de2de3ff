package main

import (
	"os"
	"runtime"
)

// marker is read back by the debugger while the program is stopped.
var marker [8]byte

func init() {
	runtime.LockOSThread()
}

func main() {
	marker = [8]byte{0xde, 0xad, 0xbe, 0xef, 0xfe, 0xed, 0xfa, 0xce}
	runtime.Breakpoint()
	os.Exit(0)
}
