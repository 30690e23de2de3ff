package proc

// DefaultPassSignals are delivered to the target without stopping it.
// The Go runtime uses SIGURG for preemption, the others are routine
// notifications that would otherwise stop the target constantly.
var DefaultPassSignals = []int{sigURG, sigCHLD, sigWINCH, sigPROF, sigALRM}

// debuggerSignal returns true for signals the debugger itself causes, they
// are never delivered to the target.
func debuggerSignal(sig int) bool {
	return sig == sigTRAP || sig == sigSTOP
}
