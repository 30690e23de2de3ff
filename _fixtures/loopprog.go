package main

import (
	"fmt"
	"runtime"
	"time"
)

func init() {
	runtime.LockOSThread()
}

func loop() {
	i := 0
	for {
		i++
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Println(i)
}

func main() {
	fmt.Println("past main")
	loop()
}
