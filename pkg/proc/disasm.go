package proc

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// AsmInstruction represents one assembly instruction.
type AsmInstruction struct {
	Loc        uint64 // address of the instruction
	DestLoc    uint64 // destination of a direct call or jump, 0 otherwise
	Bytes      []byte
	Breakpoint bool // an enabled breakpoint is set on the instruction
	AtPC       bool // the instruction pointer is on the instruction

	Size int
	Kind AsmInstructionKind

	inst *x86asm.Inst
}

// AsmInstructionKind is the class of an instruction, as far as stepping is
// concerned.
type AsmInstructionKind uint8

const (
	OtherInstruction AsmInstructionKind = iota
	CallInstruction
	RetInstruction
	JmpInstruction
	HardBreakInstruction
)

func (k AsmInstructionKind) String() string {
	switch k {
	case CallInstruction:
		return "call"
	case RetInstruction:
		return "ret"
	case JmpInstruction:
		return "jump"
	case HardBreakInstruction:
		return "trap"
	}
	return "other"
}

func (instr *AsmInstruction) IsCall() bool {
	return instr.Kind == CallInstruction
}

func (instr *AsmInstruction) IsRet() bool {
	return instr.Kind == RetInstruction
}

func (instr *AsmInstruction) IsJmp() bool {
	return instr.Kind == JmpInstruction
}

// AssemblyFlavour is the assembly syntax to display.
type AssemblyFlavour int

const (
	// GNUFlavour will display GNU assembly syntax.
	GNUFlavour = AssemblyFlavour(iota)
	// IntelFlavour will display Intel assembly syntax.
	IntelFlavour
	// GoFlavour will display Go assembly syntax.
	GoFlavour
)

// ParseAssemblyFlavour parses the names intel, gnu and go.
func ParseAssemblyFlavour(s string) (AssemblyFlavour, error) {
	switch strings.ToLower(s) {
	case "", "intel":
		return IntelFlavour, nil
	case "gnu", "att":
		return GNUFlavour, nil
	case "go":
		return GoFlavour, nil
	}
	return IntelFlavour, fmt.Errorf("unknown assembly flavor %q", s)
}

// Decode decodes the instruction starting at mem[0:], located at address pc
// of the target.
func Decode(mem []byte, pc uint64) (*AsmInstruction, error) {
	if len(mem) > maxInstructionLength {
		mem = mem[:maxInstructionLength]
	}
	inst, err := x86asm.Decode(mem, 64)
	if err != nil {
		return nil, fmt.Errorf("could not decode instruction at %#x: %v", pc, err)
	}
	asmInst := &AsmInstruction{
		Loc:   pc,
		Bytes: mem[:inst.Len],
		Size:  inst.Len,
		Kind:  OtherInstruction,
	}
	patchPCRel(pc, &inst)
	asmInst.inst = &inst

	switch inst.Op {
	case x86asm.CALL, x86asm.LCALL:
		asmInst.Kind = CallInstruction
	case x86asm.RET, x86asm.LRET:
		asmInst.Kind = RetInstruction
	case x86asm.INT:
		asmInst.Kind = HardBreakInstruction
	case x86asm.JMP, x86asm.LJMP,
		x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE,
		x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ,
		x86asm.JS, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		asmInst.Kind = JmpInstruction
	}
	if asmInst.Kind == CallInstruction || asmInst.Kind == JmpInstruction {
		if imm, ok := inst.Args[0].(x86asm.Imm); ok {
			asmInst.DestLoc = uint64(imm)
		}
	}
	return asmInst, nil
}

// converts PC relative arguments to absolute addresses
func patchPCRel(pc uint64, inst *x86asm.Inst) {
	for i := range inst.Args {
		rel, isrel := inst.Args[i].(x86asm.Rel)
		if isrel {
			inst.Args[i] = x86asm.Imm(int64(pc) + int64(rel) + int64(inst.Len))
		}
	}
}

// Text returns the assembly text of the instruction in the given flavour.
func (instr *AsmInstruction) Text(flavour AssemblyFlavour) string {
	if instr.inst == nil {
		return "?"
	}
	switch flavour {
	case GNUFlavour:
		return x86asm.GNUSyntax(*instr.inst, instr.Loc, nil)
	case GoFlavour:
		return x86asm.GoSyntax(*instr.inst, instr.Loc, nil)
	default:
		return x86asm.IntelSyntax(*instr.inst, instr.Loc, nil)
	}
}

// readInstructionBytes reads up to n bytes at addr with breakpoint traps
// replaced by the original bytes. If the range crosses into an unreadable
// page only the bytes up to the page boundary are returned.
func (t *Target) readInstructionBytes(addr uint64, n int) ([]byte, error) {
	buf, err := t.ReadOriginalMemory(addr, n)
	if err == nil {
		return buf, nil
	}
	toPageEnd := int(pageSize - addr%pageSize)
	if toPageEnd >= n {
		return nil, err
	}
	return t.ReadOriginalMemory(addr, toPageEnd)
}

func (t *Target) decodeAt(pc uint64) (*AsmInstruction, error) {
	mem, err := t.readInstructionBytes(pc, maxInstructionLength)
	if err != nil {
		return nil, err
	}
	return Decode(mem, pc)
}

// MaxDisassembleCount is the largest count accepted by Disassemble.
const MaxDisassembleCount = MaxMemoryRead / maxInstructionLength

// Disassemble decodes count instructions starting at addr. Bytes that
// cannot be decoded produce one-byte instructions shown as "?".
func (t *Target) Disassemble(addr uint64, count int) ([]AsmInstruction, error) {
	if count <= 0 {
		return nil, nil
	}
	if count > MaxDisassembleCount {
		return nil, &MemoryAccessError{Addr: addr, Len: count, Err: ErrInvalidLength}
	}
	pc, err := t.PC()
	if err != nil {
		return nil, err
	}
	mem, err := t.readInstructionBytes(addr, count*maxInstructionLength)
	if err != nil {
		return nil, err
	}
	r := make([]AsmInstruction, 0, count)
	loc := addr
	for len(r) < count && len(mem) > 0 {
		inst, err := Decode(mem, loc)
		if err != nil {
			inst = &AsmInstruction{Loc: loc, Bytes: mem[:1], Size: 1}
		}
		inst.AtPC = loc == pc
		inst.Breakpoint = t.breakpoints.IsBreakpointAddress(loc)
		r = append(r, *inst)
		loc += uint64(inst.Size)
		mem = mem[inst.Size:]
	}
	return r, nil
}
