package proc

import (
	"bytes"
	"fmt"
	"strings"
)

// Registers is a copy of the amd64 user_regs_struct of a stopped target.
// The field layout matches golang.org/x/sys/unix.PtraceRegs so that the
// native backend can convert between the two without copying.
type Registers struct {
	R15      uint64
	R14      uint64
	R13      uint64
	R12      uint64
	Rbp      uint64
	Rbx      uint64
	R11      uint64
	R10      uint64
	R9       uint64
	R8       uint64
	Rax      uint64
	Rcx      uint64
	Rdx      uint64
	Rsi      uint64
	Rdi      uint64
	Orig_rax uint64
	Rip      uint64
	Cs       uint64
	Eflags   uint64
	Rsp      uint64
	Ss       uint64
	Fs_base  uint64
	Gs_base  uint64
	Ds       uint64
	Es       uint64
	Fs       uint64
	Gs       uint64
}

// Register is a single named register value.
type Register struct {
	Name  string
	Value uint64
}

// PC returns the value of RIP.
func (r *Registers) PC() uint64 { return r.Rip }

// SP returns the value of RSP.
func (r *Registers) SP() uint64 { return r.Rsp }

// BP returns the value of RBP.
func (r *Registers) BP() uint64 { return r.Rbp }

// SetPC changes RIP. The change only reaches the target through
// Target.SetRegisters.
func (r *Registers) SetPC(pc uint64) { r.Rip = pc }

func (r *Registers) fields() []*uint64 {
	return []*uint64{
		&r.Rip, &r.Rsp, &r.Rax, &r.Rbx, &r.Rcx, &r.Rdx, &r.Rdi, &r.Rsi, &r.Rbp,
		&r.R8, &r.R9, &r.R10, &r.R11, &r.R12, &r.R13, &r.R14, &r.R15,
		&r.Orig_rax, &r.Cs, &r.Eflags, &r.Ss, &r.Fs_base, &r.Gs_base,
		&r.Ds, &r.Es, &r.Fs, &r.Gs,
	}
}

var registerNames = []string{
	"rip", "rsp", "rax", "rbx", "rcx", "rdx", "rdi", "rsi", "rbp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"orig_rax", "cs", "eflags", "ss", "fs_base", "gs_base",
	"ds", "es", "fs", "gs",
}

// the first 17 entries of registerNames are the general purpose registers.
const numGeneralRegisters = 17

// Slice returns the registers as a list of (name, value) pairs. If all is
// false only RIP and the general purpose registers are returned.
func (r *Registers) Slice(all bool) []Register {
	fields := r.fields()
	n := numGeneralRegisters
	if all {
		n = len(fields)
	}
	out := make([]Register, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Register{Name: registerNames[i], Value: *fields[i]})
	}
	return out
}

func (r *Registers) lookup(name string) (*uint64, bool) {
	fields := r.fields()
	for i, n := range registerNames {
		if strings.EqualFold(n, name) {
			return fields[i], true
		}
	}
	switch strings.ToLower(name) {
	case "pc":
		return &r.Rip, true
	case "sp":
		return &r.Rsp, true
	case "rflags", "flags":
		return &r.Eflags, true
	}
	return nil, false
}

// Get returns the value of the register called name. Names are case
// insensitive; pc, sp and rflags are accepted as aliases.
func (r *Registers) Get(name string) (uint64, error) {
	p, ok := r.lookup(name)
	if !ok {
		return 0, fmt.Errorf("unknown register %q", name)
	}
	return *p, nil
}

// Set changes the value of the register called name in this snapshot.
func (r *Registers) Set(name string, val uint64) error {
	p, ok := r.lookup(name)
	if !ok {
		return fmt.Errorf("unknown register %q", name)
	}
	*p = val
	return nil
}

func (r *Registers) String() string {
	var buf bytes.Buffer
	for _, reg := range r.Slice(false) {
		fmt.Fprintf(&buf, "%8s = %#016x\n", reg.Name, reg.Value)
	}
	return buf.String()
}
