package api

import (
	"github.com/fdbdbg/fdb/pkg/proc"
)

// ConvertBreakpoint converts from a proc.Breakpoint to an api.Breakpoint.
func ConvertBreakpoint(bp *proc.Breakpoint) *Breakpoint {
	b := &Breakpoint{
		ID:            bp.ID,
		Addr:          bp.Addr,
		Enabled:       bp.Enabled,
		TotalHitCount: bp.TotalHitCount,
	}
	if len(bp.OriginalData) > 0 {
		b.OriginalByte = bp.OriginalData[0]
	}
	return b
}

// ConvertBreakpoints converts a slice of breakpoints.
func ConvertBreakpoints(bps []*proc.Breakpoint) []*Breakpoint {
	if len(bps) == 0 {
		return nil
	}
	r := make([]*Breakpoint, len(bps))
	for i, bp := range bps {
		r[i] = ConvertBreakpoint(bp)
	}
	return r
}

// ConvertStopReason converts from proc.StopReason to api.StopReason.
func ConvertStopReason(sr proc.StopReason) StopReason {
	r := StopReason{
		Kind:     sr.Kind.String(),
		Addr:     sr.Addr,
		Signal:   sr.Signal,
		ExitCode: sr.ExitCode,
		Manual:   sr.Manual,
	}
	if sr.Err != nil {
		r.Err = sr.Err.Error()
	}
	return r
}

// ConvertRegisters converts proc registers to api registers.
func ConvertRegisters(regs []proc.Register) []Register {
	r := make([]Register, len(regs))
	for i := range regs {
		r[i] = Register{Name: regs[i].Name, Value: regs[i].Value}
	}
	return r
}

// ConvertAsmInstruction converts from proc.AsmInstruction to
// api.AsmInstruction.
func ConvertAsmInstruction(inst *proc.AsmInstruction, text string) AsmInstruction {
	return AsmInstruction{
		Loc:        inst.Loc,
		DestLoc:    inst.DestLoc,
		Text:       text,
		Bytes:      inst.Bytes,
		Kind:       inst.Kind.String(),
		Breakpoint: inst.Breakpoint,
		AtPC:       inst.AtPC,
	}
}
