package proc

import (
	"fmt"
	"sort"

	"github.com/fdbdbg/fdb/pkg/logflags"
)

// Breakpoint represents a physical breakpoint. Stores information on the break
// point including the byte of data that originally was stored at that
// address.
type Breakpoint struct {
	ID           int    // Assigned to user breakpoints only, starting at 1.
	Addr         uint64 // Address breakpoint is set for.
	OriginalData []byte // The data we replace with the breakpoint instruction.
	Enabled      bool

	// Kind describes whether this is a user breakpoint, an internal
	// breakpoint used by NextInstruction, or both.
	Kind BreakpointKind

	TotalHitCount uint64 // Number of times a user breakpoint has been reached
}

// BreakpointKind determines the behavior of the debugger when the
// breakpoint is reached.
type BreakpointKind uint16

const (
	// UserBreakpoint is a user set breakpoint
	UserBreakpoint BreakpointKind = (1 << iota)
	// NextBreakpoint is a breakpoint set by NextInstruction on the return
	// address of a CALL, it is removed as soon as NextInstruction returns.
	NextBreakpoint
)

func (bp *Breakpoint) String() string {
	state := "enabled"
	if !bp.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("Breakpoint %d at %#x %s (%d)", bp.ID, bp.Addr, state, bp.TotalHitCount)
}

// IsUser returns true if bp was set by the user.
func (bp *Breakpoint) IsUser() bool {
	return bp.Kind&UserBreakpoint != 0
}

func (bp *Breakpoint) checkOriginal() {
	if len(bp.OriginalData) != BreakpointSize || bp.OriginalData[0] == breakpointInstruction[0] {
		panic(fmt.Sprintf("breakpoint at %#x has corrupt original data %#v", bp.Addr, bp.OriginalData))
	}
}

// BreakpointMap represents the breakpoints of a target.
type BreakpointMap struct {
	M map[uint64]*Breakpoint

	mem       MemoryReadWriter
	idCounter int
	log       logflags.Logger
}

// NewBreakpointMap creates a new BreakpointMap patching the memory
// accessed through mem.
func NewBreakpointMap(mem MemoryReadWriter) *BreakpointMap {
	return &BreakpointMap{
		M:   make(map[uint64]*Breakpoint),
		mem: mem,
		log: logflags.ProcLogger(),
	}
}

// Set installs a breakpoint of the given kind at addr.
// The original byte is saved and the trap written as a single transaction:
// if the trap cannot be verified in memory the original byte is written back
// and no record is created.
// Setting a breakpoint where one already exists returns the existing record
// with kind added to it.
func (bpmap *BreakpointMap) Set(addr uint64, kind BreakpointKind) (*Breakpoint, error) {
	if bp, ok := bpmap.M[addr]; ok {
		if kind&UserBreakpoint != 0 && !bp.IsUser() {
			bpmap.idCounter++
			bp.ID = bpmap.idCounter
		}
		bp.Kind |= kind
		return bp, nil
	}

	originalData := make([]byte, BreakpointSize)
	if err := readFull(bpmap.mem, originalData, addr); err != nil {
		return nil, &BreakpointError{Addr: addr, Err: err}
	}
	if originalData[0] == breakpointInstruction[0] {
		return nil, &BreakpointError{Addr: addr, Err: ErrTrapPresent}
	}
	if err := writeFull(bpmap.mem, addr, breakpointInstruction); err != nil {
		return nil, &BreakpointError{Addr: addr, Err: err}
	}
	check := make([]byte, BreakpointSize)
	if err := readFull(bpmap.mem, check, addr); err != nil || check[0] != breakpointInstruction[0] {
		if err == nil {
			err = fmt.Errorf("trap instruction not found after write, read back %#x", check[0])
		}
		if rerr := writeFull(bpmap.mem, addr, originalData); rerr != nil {
			bpmap.log.Errorf("could not roll back breakpoint at %#x: %v", addr, rerr)
		}
		return nil, &BreakpointError{Addr: addr, Err: err}
	}

	bp := &Breakpoint{
		Addr:         addr,
		OriginalData: originalData,
		Enabled:      true,
		Kind:         kind,
	}
	bp.checkOriginal()
	if bp.IsUser() {
		bpmap.idCounter++
		bp.ID = bpmap.idCounter
	}
	bpmap.M[addr] = bp
	bpmap.log.Debugf("breakpoint set at %#x (kind %d), original byte %#x", addr, kind, originalData[0])
	return bp, nil
}

// Remove restores the original byte at addr and deletes the breakpoint.
// Removing an address without a breakpoint does nothing.
func (bpmap *BreakpointMap) Remove(addr uint64) error {
	bp, ok := bpmap.M[addr]
	if !ok {
		return nil
	}
	if bp.Enabled {
		if err := bpmap.restore(bp); err != nil {
			return &BreakpointError{Addr: addr, Err: err}
		}
	}
	delete(bpmap.M, addr)
	bpmap.log.Debugf("breakpoint removed at %#x", addr)
	return nil
}

// RemoveKind removes kind from the breakpoint at addr, deleting the
// breakpoint once it has no kind left.
func (bpmap *BreakpointMap) RemoveKind(addr uint64, kind BreakpointKind) error {
	bp, ok := bpmap.M[addr]
	if !ok {
		return nil
	}
	bp.Kind &^= kind
	if kind&UserBreakpoint != 0 {
		bp.ID = 0
	}
	if bp.Kind != 0 {
		return nil
	}
	return bpmap.Remove(addr)
}

// Enable writes the trap back at addr without touching the saved byte.
func (bpmap *BreakpointMap) Enable(addr uint64) error {
	bp, ok := bpmap.M[addr]
	if !ok {
		return &BreakpointError{Addr: addr, Err: ErrNoBreakpoint}
	}
	if bp.Enabled {
		return nil
	}
	if err := bpmap.patch(bp); err != nil {
		return &BreakpointError{Addr: addr, Err: err}
	}
	bp.Enabled = true
	return nil
}

// Disable restores the original byte at addr keeping the breakpoint record.
func (bpmap *BreakpointMap) Disable(addr uint64) error {
	bp, ok := bpmap.M[addr]
	if !ok {
		return &BreakpointError{Addr: addr, Err: ErrNoBreakpoint}
	}
	if !bp.Enabled {
		return nil
	}
	if err := bpmap.restore(bp); err != nil {
		return &BreakpointError{Addr: addr, Err: err}
	}
	bp.Enabled = false
	return nil
}

// IsBreakpointAddress returns true if an enabled breakpoint exists at addr.
func (bpmap *BreakpointMap) IsBreakpointAddress(addr uint64) bool {
	return bpmap.enabledAt(addr) != nil
}

func (bpmap *BreakpointMap) enabledAt(addr uint64) *Breakpoint {
	bp, ok := bpmap.M[addr]
	if !ok || !bp.Enabled {
		return nil
	}
	return bp
}

func (bpmap *BreakpointMap) patch(bp *Breakpoint) error {
	bp.checkOriginal()
	return writeFull(bpmap.mem, bp.Addr, breakpointInstruction)
}

func (bpmap *BreakpointMap) restore(bp *Breakpoint) error {
	bp.checkOriginal()
	return writeFull(bpmap.mem, bp.Addr, bp.OriginalData)
}

// RestoreAll writes back the original byte of every enabled breakpoint and
// forgets all of them. Every breakpoint is attempted, the first error is
// returned.
func (bpmap *BreakpointMap) RestoreAll() error {
	var firstErr error
	for addr, bp := range bpmap.M {
		if bp.Enabled {
			if err := bpmap.restore(bp); err != nil {
				if firstErr == nil {
					firstErr = &BreakpointError{Addr: addr, Err: err}
				}
				continue
			}
		}
		delete(bpmap.M, addr)
	}
	return firstErr
}

// Invalidate forgets every breakpoint without touching memory, used when the
// image the breakpoints were written to no longer exists.
func (bpmap *BreakpointMap) Invalidate() {
	if len(bpmap.M) > 0 {
		bpmap.log.Debugf("invalidating %d breakpoints", len(bpmap.M))
	}
	bpmap.M = make(map[uint64]*Breakpoint)
}

// MaskOriginal replaces, in buf, every trap written by an enabled breakpoint
// with the original byte. buf must contain memory read starting at addr.
func (bpmap *BreakpointMap) MaskOriginal(buf []byte, addr uint64) {
	for bpaddr, bp := range bpmap.M {
		if !bp.Enabled || bpaddr < addr || bpaddr >= addr+uint64(len(buf)) {
			continue
		}
		buf[bpaddr-addr] = bp.OriginalData[0]
	}
}

// WriteThrough writes data at addr. Bytes that fall on a breakpoint update
// its saved original byte instead of overwriting the trap of an enabled
// breakpoint. Writing the trap instruction over a breakpoint is refused.
func (bpmap *BreakpointMap) WriteThrough(addr uint64, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	var covered []*Breakpoint
	for bpaddr, bp := range bpmap.M {
		if bpaddr < addr || bpaddr >= addr+uint64(len(buf)) {
			continue
		}
		off := bpaddr - addr
		if buf[off] == breakpointInstruction[0] {
			return &BreakpointError{Addr: bpaddr, Err: ErrTrapPresent}
		}
		if bp.Enabled {
			buf[off] = breakpointInstruction[0]
		}
		covered = append(covered, bp)
	}
	if err := writeFull(bpmap.mem, addr, buf); err != nil {
		return err
	}
	for _, bp := range covered {
		bp.OriginalData = []byte{data[bp.Addr-addr]}
	}
	return nil
}

// List returns the breakpoints that have any of the bits of kind set, sorted
// by ID and then address.
func (bpmap *BreakpointMap) List(kind BreakpointKind) []*Breakpoint {
	r := make([]*Breakpoint, 0, len(bpmap.M))
	for _, bp := range bpmap.M {
		if bp.Kind&kind != 0 {
			r = append(r, bp)
		}
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].ID != r[j].ID {
			return r[i].ID < r[j].ID
		}
		return r[i].Addr < r[j].Addr
	})
	return r
}
