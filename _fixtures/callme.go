package main

import (
	"os"
	"runtime"
)

func init() {
	runtime.LockOSThread()
}

//go:noinline
func callme(i int) int {
	return i*2 + 1
}

var result int

func main() {
	result = callme(20)
	os.Exit(result)
}
