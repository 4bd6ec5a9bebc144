// Package storage implements the storage-selection and flash/block edit
// semantics behind the backup, flash and restore endpoints: choosing a
// target by name, reading an arbitrary byte range out of it, and the two
// distinct write paths (erase-block read-modify-write for flash, direct
// random-access write for block devices).
package storage

import (
	"errors"
	"fmt"
)

// Kind identifies which family of device a Target belongs to.
type Kind int

const (
	KindFlash Kind = iota
	KindBlock
)

func (k Kind) String() string {
	if k == KindBlock {
		return "mmc"
	}
	return "mtd"
}

// ErrUnknownTarget is returned by Open when no partition or device matches
// the requested name.
var ErrUnknownTarget = errors.New("storage: unknown target")

// ErrSizeMismatch is returned by Restore when the supplied payload does not
// exactly fill [start, end).
var ErrSizeMismatch = errors.New("storage: restore payload size mismatch")

// Partition names one addressable region of a device.
type Partition struct {
	Name   string
	Offset uint64
	Size   uint64
}

// Target is a single open, bounded region of a flash or block device,
// addressed with offsets relative to the partition (not the whole device).
type Target struct {
	Kind Kind
	Name string
	Base uint64
	Size uint64

	flash     FlashDevice
	block     BlockDevice
	eraseSize uint32
}

// Facade resolves target names to Targets across whichever backends are
// configured. Either Flash or Block (or both) may be nil.
type Facade struct {
	Flash      FlashDevice
	flashParts map[string]Partition
	Block      BlockDevice
	blockParts map[string]Partition
}

// NewFacade wires a facade over the given backends and partition tables.
// A nil partition table for a present block device exposes the whole block
// device under the name "raw", matching the original firmware's convention
// for MMC; a nil flash partition table exposes no flash targets.
func NewFacade(flash FlashDevice, flashParts map[string]Partition, block BlockDevice, blockParts map[string]Partition) *Facade {
	f := &Facade{Flash: flash, flashParts: flashParts, Block: block, blockParts: blockParts}
	if block != nil && blockParts == nil {
		f.blockParts = map[string]Partition{"raw": {Name: "raw", Offset: 0, Size: block.Size()}}
	}
	return f
}

// Partitions lists the partition table known for the given device kind, in
// no particular order. Used by /backup/info to report device inventory.
func (f *Facade) Partitions(kind Kind) []Partition {
	table := f.flashParts
	if kind == KindBlock {
		table = f.blockParts
	}
	out := make([]Partition, 0, len(table))
	for _, p := range table {
		out = append(out, p)
	}
	return out
}

// Present reports whether a backend of the given kind is configured at all.
func (f *Facade) Present(kind Kind) bool {
	if kind == KindBlock {
		return f.Block != nil
	}
	return f.Flash != nil
}

// Open resolves name to a Target. storageSel is one of "auto", "mtd" or
// "mmc"; "auto" prefers a flash partition match, falling back to block.
func (f *Facade) Open(storageSel, name string) (*Target, error) {
	tryFlash := storageSel == "auto" || storageSel == "mtd"
	tryBlock := storageSel == "auto" || storageSel == "mmc"

	if tryFlash && f.Flash != nil {
		if p, ok := f.flashParts[name]; ok {
			return &Target{
				Kind: KindFlash, Name: p.Name, Base: p.Offset, Size: p.Size,
				flash: f.Flash, eraseSize: f.Flash.EraseSize(),
			}, nil
		}
	}
	if tryBlock && f.Block != nil {
		if p, ok := f.blockParts[name]; ok {
			return &Target{Kind: KindBlock, Name: p.Name, Base: p.Offset, Size: p.Size, block: f.Block}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
}

// ReadRange returns target-relative bytes [start, end). For flash targets
// the read transparently skips bad blocks (see FlashDevice.ReadSkipBad).
func (t *Target) ReadRange(start, end uint64) ([]byte, error) {
	if end < start || end > t.Size {
		return nil, fmt.Errorf("storage: range [0x%x,0x%x) out of bounds for %s (size 0x%x)", start, end, t.Name, t.Size)
	}
	buf := make([]byte, end-start)
	var n int
	var err error
	if t.Kind == KindFlash {
		n, err = t.flash.ReadSkipBad(t.Base+start, buf)
	} else {
		n, err = t.block.ReadAt(buf, t.Base+start)
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// WriteRange writes data at target-relative offset start. Flash targets are
// updated erase-block by erase-block: each touched block is read in full,
// spliced with the new bytes, erased, then written back whole (mirroring
// flash_mtd_update_range in the original firmware). Block targets are
// written directly with no erase step.
func (t *Target) WriteRange(start uint64, data []byte) error {
	end := start + uint64(len(data))
	if end > t.Size {
		return fmt.Errorf("storage: write [0x%x,0x%x) out of bounds for %s (size 0x%x)", start, end, t.Name, t.Size)
	}
	if t.Kind == KindBlock {
		_, err := t.block.WriteAt(data, t.Base+start)
		return err
	}

	erase := uint64(t.eraseSize)
	blockStart := (start / erase) * erase
	blockEnd := ((end + erase - 1) / erase) * erase
	buf := make([]byte, erase)

	for blk := blockStart; blk < blockEnd; blk += erase {
		if _, err := t.flash.ReadSkipBad(t.Base+blk, buf); err != nil {
			return fmt.Errorf("storage: read-modify-write read at 0x%x: %w", blk, err)
		}
		dataStart, dataEnd := maxU64(start, blk), minU64(end, blk+erase)
		if dataEnd > dataStart {
			copy(buf[dataStart-blk:dataEnd-blk], data[dataStart-start:dataEnd-start])
		}
		if _, err := t.flash.EraseBlockSkipBad(t.Base + blk); err != nil {
			return fmt.Errorf("storage: erase at 0x%x: %w", blk, err)
		}
		if _, err := t.flash.WriteBlockSkipBad(t.Base+blk, buf); err != nil {
			return fmt.Errorf("storage: write at 0x%x: %w", blk, err)
		}
	}
	return nil
}

// Restore erases [start, end) in full and writes data, which must be
// exactly end-start bytes, over it in one pass (mirroring
// flash_mtd_restore_range: whole-range erase, then a single sequential
// write, as opposed to WriteRange's per-block read-modify-write).
func (t *Target) Restore(start, end uint64, data []byte) error {
	if uint64(len(data)) != end-start {
		return ErrSizeMismatch
	}
	if end > t.Size {
		return fmt.Errorf("storage: restore range [0x%x,0x%x) out of bounds for %s (size 0x%x)", start, end, t.Name, t.Size)
	}
	if t.Kind == KindBlock {
		_, err := t.block.WriteAt(data, t.Base+start)
		return err
	}

	erase := uint64(t.eraseSize)
	blockStart := (start / erase) * erase
	blockEnd := ((end + erase - 1) / erase) * erase
	for blk := blockStart; blk < blockEnd; blk += erase {
		if _, err := t.flash.EraseBlockSkipBad(t.Base + blk); err != nil {
			return fmt.Errorf("storage: restore erase at 0x%x: %w", blk, err)
		}
	}
	if _, err := t.flash.WriteBlockSkipBad(t.Base+blockStart, padToBlocks(data, start-blockStart, blockEnd-blockStart, erase)); err != nil {
		return fmt.Errorf("storage: restore write: %w", err)
	}
	return nil
}

// padToBlocks embeds data (which starts at logical offset dataOff within a
// blockStart-aligned, blockLen-long erase-aligned window) into a full-width
// buffer so WriteBlockSkipBad's single call covers every touched block.
// Bytes outside [dataOff, dataOff+len(data)) but inside the window keep
// whatever EraseBlockSkipBad left them at (0xFF).
func padToBlocks(data []byte, dataOff, blockLen uint64, eraseSize uint64) []byte {
	buf := make([]byte, blockLen)
	for i := range buf {
		buf[i] = 0xff
	}
	copy(buf[dataOff:], data)
	return buf
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
