// Package native implements the ptrace(2) backend of pkg/proc for
// linux/amd64 processes.
//
// Only the thread group leader of a target is traced: threads created by
// clone(2) run untraced and a breakpoint they hit kills the process with
// SIGTRAP. Targets are expected to run their interesting code on the main
// thread.
package native
