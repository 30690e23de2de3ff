package main

import (
	"fmt"
	"os"
	"runtime"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	fmt.Println("exitcode fixture")
	os.Exit(3)
}
