package proc

const (
	// maxInstructionLength is the longest instruction the amd64 decoder
	// can be handed.
	maxInstructionLength = 15
	pageSize             = 0x1000
)

// breakpointInstruction is INT3.
var breakpointInstruction = []byte{0xCC}

// BreakpointSize is the length of the software breakpoint instruction.
const BreakpointSize = 1
