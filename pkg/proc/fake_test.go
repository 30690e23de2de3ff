package proc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// fakeProcess is an in-memory process running a tiny subset of amd64:
//
//	0x90          nop
//	0xcc          int3
//	0xe8 rel32    call
//	0xc3          ret
//	0xeb rel8     jmp
//	0x0f 0x0b     ud2, raises SIGILL
//	0xf1          execve marker
//	0xf4          exit with the status in rdi
type fakeProcess struct {
	pid   int
	base  uint64
	mem   []byte
	regs  Registers
	alive bool

	stepping bool
	queued   []int // signals stopping the process before its next instruction
	resumes  []int // signals delivered by Resume and SingleStep

	detached bool
	closed   bool
}

const (
	fakeBase     = 0x400000
	fakeMemSize  = 0x2000
	fakeMaxSteps = 100000

	sigILL  = 4
	sigUSR1 = 10
)

var errFakeFault = errors.New("input/output error")

func newFakeProcess(code []byte) *fakeProcess {
	p := &fakeProcess{pid: 1234, base: fakeBase, mem: make([]byte, fakeMemSize), alive: true}
	copy(p.mem, code)
	p.regs.Rip = fakeBase
	p.regs.Rsp = fakeBase + fakeMemSize
	return p
}

func (p *fakeProcess) Pid() int                 { return p.pid }
func (p *fakeProcess) Memory() MemoryReadWriter { return p }
func (p *fakeProcess) Alive() bool              { return p.alive }
func (p *fakeProcess) Close()                   { p.closed = true }

func (p *fakeProcess) inRange(addr uint64, n int) bool {
	return addr >= p.base && addr+uint64(n) <= p.base+uint64(len(p.mem))
}

func (p *fakeProcess) ReadMemory(buf []byte, addr uint64) (int, error) {
	if !p.alive {
		return 0, errors.New("no such process")
	}
	if !p.inRange(addr, len(buf)) {
		return 0, errFakeFault
	}
	return copy(buf, p.mem[addr-p.base:]), nil
}

func (p *fakeProcess) WriteMemory(addr uint64, data []byte) (int, error) {
	if !p.alive {
		return 0, errors.New("no such process")
	}
	if !p.inRange(addr, len(data)) {
		return 0, errFakeFault
	}
	return copy(p.mem[addr-p.base:], data), nil
}

func (p *fakeProcess) byteAt(addr uint64) byte {
	return p.mem[addr-p.base]
}

func (p *fakeProcess) Registers() (*Registers, error) {
	if !p.alive {
		return nil, errors.New("no such process")
	}
	regs := p.regs
	return &regs, nil
}

func (p *fakeProcess) SetRegisters(regs *Registers) error {
	if !p.alive {
		return errors.New("no such process")
	}
	p.regs = *regs
	return nil
}

func (p *fakeProcess) Resume(sig int) error {
	p.stepping = false
	p.resumes = append(p.resumes, sig)
	return nil
}

func (p *fakeProcess) SingleStep(sig int) error {
	p.stepping = true
	p.resumes = append(p.resumes, sig)
	return nil
}

func (p *fakeProcess) RequestManualStop() error {
	p.queued = append(p.queued, sigSTOP)
	return nil
}

func (p *fakeProcess) Detach() error {
	p.detached = true
	return nil
}

func (p *fakeProcess) Kill() error {
	p.alive = false
	return nil
}

func (p *fakeProcess) Wait() (WaitEvent, error) {
	if p.resumes[len(p.resumes)-1] == sigKILL {
		p.alive = false
		return WaitEvent{Kind: EventSignaled, Signal: sigKILL}, nil
	}
	for i := 0; i < fakeMaxSteps; i++ {
		if len(p.queued) > 0 {
			sig := p.queued[0]
			p.queued = p.queued[1:]
			return WaitEvent{Kind: EventStopped, Signal: sig}, nil
		}
		ev, stopped, err := p.exec()
		if err != nil || stopped {
			return ev, err
		}
		if p.stepping {
			return WaitEvent{Kind: EventStopped, Signal: sigTRAP}, nil
		}
	}
	return WaitEvent{}, fmt.Errorf("program did not stop after %d instructions", fakeMaxSteps)
}

// exec executes the instruction at rip.
func (p *fakeProcess) exec() (WaitEvent, bool, error) {
	pc := p.regs.Rip
	if !p.inRange(pc, 1) {
		return WaitEvent{}, false, fmt.Errorf("pc out of range %#x", pc)
	}
	switch op := p.byteAt(pc); op {
	case 0x90:
		p.regs.Rip++
	case 0xcc:
		p.regs.Rip++
		return WaitEvent{Kind: EventStopped, Signal: sigTRAP}, true, nil
	case 0xe8:
		rel := int32(binary.LittleEndian.Uint32(p.mem[pc-p.base+1:]))
		ret := pc + 5
		p.regs.Rsp -= 8
		binary.LittleEndian.PutUint64(p.mem[p.regs.Rsp-p.base:], ret)
		p.regs.Rip = uint64(int64(ret) + int64(rel))
	case 0xc3:
		p.regs.Rip = binary.LittleEndian.Uint64(p.mem[p.regs.Rsp-p.base:])
		p.regs.Rsp += 8
	case 0xeb:
		rel := int8(p.byteAt(pc + 1))
		p.regs.Rip = uint64(int64(pc+2) + int64(rel))
	case 0x0f:
		return WaitEvent{Kind: EventStopped, Signal: sigILL}, true, nil
	case 0xf1:
		p.regs.Rip++
		return WaitEvent{Kind: EventExec, Signal: sigTRAP}, true, nil
	case 0xf4:
		p.alive = false
		return WaitEvent{Kind: EventExited, Status: int(p.regs.Rdi)}, true, nil
	default:
		return WaitEvent{}, false, fmt.Errorf("unknown opcode %#x at %#x", op, pc)
	}
	return WaitEvent{}, false, nil
}

// dropWrites accepts writes without storing them.
type dropWrites struct {
	*fakeProcess
}

func (d dropWrites) WriteMemory(addr uint64, data []byte) (int, error) {
	return len(data), nil
}
