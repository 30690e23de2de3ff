package proc

import "fmt"

// MemoryReader is like io.ReaderAt, but the offset is a uint64 so that it
// can address all of 64-bit memory.
type MemoryReader interface {
	// ReadMemory is just like io.ReaderAt.ReadAt.
	ReadMemory(buf []byte, addr uint64) (n int, err error)
}

// MemoryReadWriter is an interface for reading or writing to
// the targets memory. This allows us to read from the actual
// target memory or possibly a cache.
type MemoryReadWriter interface {
	MemoryReader
	WriteMemory(addr uint64, data []byte) (written int, err error)
}

// readFull reads len(buf) bytes at addr, treating a short read as an error.
func readFull(mem MemoryReader, buf []byte, addr uint64) error {
	n, err := mem.ReadMemory(buf, addr)
	if err != nil {
		return &MemoryAccessError{Addr: addr, Len: len(buf), Err: err}
	}
	if n != len(buf) {
		return &MemoryAccessError{Addr: addr, Len: len(buf), Err: errShortTransfer(n)}
	}
	return nil
}

// writeFull writes data at addr, treating a short write as an error.
func writeFull(mem MemoryReadWriter, addr uint64, data []byte) error {
	n, err := mem.WriteMemory(addr, data)
	if err != nil {
		return &MemoryAccessError{Addr: addr, Len: len(data), Write: true, Err: err}
	}
	if n != len(data) {
		return &MemoryAccessError{Addr: addr, Len: len(data), Write: true, Err: errShortTransfer(n)}
	}
	return nil
}

type errShortTransfer int

func (e errShortTransfer) Error() string {
	return fmt.Sprintf("short transfer after %d bytes", int(e))
}
