//go:build !linux

package proc

// Targets are always Linux processes, use the Linux numbering.
const (
	sigALRM  = 14
	sigCHLD  = 17
	sigKILL  = 9
	sigPROF  = 27
	sigSTOP  = 19
	sigTRAP  = 5
	sigURG   = 23
	sigWINCH = 28
)
