package storage

import "fmt"

// FlashDevice is the contract for the raw MTD driver. The real driver lives
// below this interface and is out of scope for this repository (see
// spec.md §1); MemFlash below is the in-memory reference implementation
// used by tests and by hosts with no MTD device attached.
//
// Method names mirror the original's mtd_read_skip_bad / mtd_erase_skip_bad
// / mtd_write_skip_bad: bad blocks are skipped transparently so the caller
// always sees a contiguous logical address space (see GLOSSARY "Bad-block
// skip" in spec.md).
type FlashDevice interface {
	Name() string
	Size() uint64
	EraseSize() uint32

	// ReadSkipBad fills dst starting at logical offset off, skipping bad
	// blocks, and returns the number of bytes actually copied (less than
	// len(dst) only at end of device).
	ReadSkipBad(off uint64, dst []byte) (int, error)

	// EraseBlockSkipBad erases the erase-block at or after off, advancing
	// past any blocks marked bad, and returns the physical offset erased.
	EraseBlockSkipBad(off uint64) (physOff uint64, err error)

	// WriteBlockSkipBad writes data (one or more erase-blocks' worth) at or
	// after off, mirroring mtd_write_skip_bad's arbitrary-length contract
	// (same bad-block advance rule as EraseBlockSkipBad for the start
	// offset).
	WriteBlockSkipBad(off uint64, data []byte) (physOff uint64, err error)
}

// MemFlash is an in-memory FlashDevice used as the reference backend for
// hosts without a real MTD device and for tests.
type MemFlash struct {
	name      string
	eraseSize uint32
	data      []byte
	bad       map[uint64]bool // block index -> bad
}

// NewMemFlash allocates a 0xFF-filled (as erased flash reads) device
// of the given size and erase-block granularity.
func NewMemFlash(name string, size uint64, eraseSize uint32) *MemFlash {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xff
	}
	return &MemFlash{name: name, eraseSize: eraseSize, data: data, bad: map[uint64]bool{}}
}

// MarkBad flags the erase-block containing off as a factory bad block.
func (m *MemFlash) MarkBad(off uint64) {
	m.bad[off/uint64(m.eraseSize)] = true
}

func (m *MemFlash) Name() string      { return m.name }
func (m *MemFlash) Size() uint64      { return uint64(len(m.data)) }
func (m *MemFlash) EraseSize() uint32 { return m.eraseSize }

func (m *MemFlash) nextGoodBlock(blockIdx uint64) uint64 {
	for m.bad[blockIdx] {
		blockIdx++
	}
	return blockIdx
}

func (m *MemFlash) ReadSkipBad(off uint64, dst []byte) (int, error) {
	erase := uint64(m.eraseSize)
	got := 0
	phys := off
	for got < len(dst) && phys < uint64(len(m.data)) {
		blk := m.nextGoodBlock(phys / erase)
		if blk != phys/erase {
			phys = blk * erase
		}
		if phys >= uint64(len(m.data)) {
			break
		}
		blkEnd := (blk + 1) * erase
		if blkEnd > uint64(len(m.data)) {
			blkEnd = uint64(len(m.data))
		}
		n := copy(dst[got:], m.data[phys:blkEnd])
		got += n
		phys += uint64(n)
	}
	return got, nil
}

func (m *MemFlash) EraseBlockSkipBad(off uint64) (uint64, error) {
	erase := uint64(m.eraseSize)
	blk := m.nextGoodBlock(off / erase)
	phys := blk * erase
	if phys >= uint64(len(m.data)) {
		return 0, fmt.Errorf("storage: erase offset 0x%x out of range", off)
	}
	end := phys + erase
	if end > uint64(len(m.data)) {
		end = uint64(len(m.data))
	}
	for i := phys; i < end; i++ {
		m.data[i] = 0xff
	}
	return phys, nil
}

func (m *MemFlash) WriteBlockSkipBad(off uint64, data []byte) (uint64, error) {
	erase := uint64(m.eraseSize)
	blk := m.nextGoodBlock(off / erase)
	phys := blk * erase
	if phys+uint64(len(data)) > uint64(len(m.data)) {
		return 0, fmt.Errorf("storage: write at 0x%x exceeds device size", off)
	}
	copy(m.data[phys:phys+uint64(len(data))], data)
	return phys, nil
}
