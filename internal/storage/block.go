package storage

import "fmt"

// BlockDevice is the contract for the raw MMC/eMMC driver, modeled as a
// plain random-access device: no erase-before-write requirement. The real
// driver is out of scope for this repository; MemBlock is the in-memory
// reference implementation used by tests and hosts with no MMC attached.
//
// Per SPEC_FULL.md §9 decision 3, writes are treated as best-effort durable:
// a successful WriteAt has landed in the device's write cache, not
// necessarily survived an immediate power loss. Callers that need a
// durability barrier call Flush.
type BlockDevice interface {
	Name() string
	Size() uint64
	ReadAt(dst []byte, off uint64) (int, error)
	WriteAt(data []byte, off uint64) (int, error)
	Flush() error
}

// MemBlock is an in-memory BlockDevice.
type MemBlock struct {
	name string
	data []byte
}

// NewMemBlock allocates a zero-filled device of the given size.
func NewMemBlock(name string, size uint64) *MemBlock {
	return &MemBlock{name: name, data: make([]byte, size)}
}

func (m *MemBlock) Name() string { return m.name }
func (m *MemBlock) Size() uint64 { return uint64(len(m.data)) }

func (m *MemBlock) ReadAt(dst []byte, off uint64) (int, error) {
	if off > uint64(len(m.data)) {
		return 0, fmt.Errorf("storage: read offset 0x%x out of range", off)
	}
	n := copy(dst, m.data[off:])
	return n, nil
}

func (m *MemBlock) WriteAt(data []byte, off uint64) (int, error) {
	if off+uint64(len(data)) > uint64(len(m.data)) {
		return 0, fmt.Errorf("storage: write at 0x%x exceeds device size", off)
	}
	return copy(m.data[off:], data), nil
}

// Flush is a no-op for the in-memory reference device; a real MMC backend
// would issue a cache-flush/barrier here.
func (m *MemBlock) Flush() error { return nil }
