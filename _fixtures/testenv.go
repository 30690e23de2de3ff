package main

import (
	"os"
	"runtime"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if os.Getenv("FDB_TESTENV") != "skywalker" {
		os.Exit(1)
	}
	if _, ok := os.LookupEnv("FDB_UNSET"); ok {
		os.Exit(2)
	}
	wd, _ := os.Getwd()
	if want := os.Getenv("FDB_WANTWD"); want != "" && wd != want {
		os.Exit(3)
	}
}
