package dse

import (
	"bytes"
	"encoding/binary"
)

const (
	// MagicNumber identifies the output image format.
	MagicNumber uint32 = 0xAD130AD6
	// VersionNumber is the image format version.
	VersionNumber uint32 = 0x00010000

	headerSize            = 8
	pointerTableEntrySize = 12
	pointerTableSize      = pointerTableEntrySize * numRegionSlots // 384
	tableRegionSize       = headerSize + pointerTableSize          // 392
)

// SetBaseAddress assigns target-memory base addresses to every real region,
// in slot order, starting at start+392 (the header plus pointer table), and
// resolves every reference slot's effective base against the real region
// whose outbound handle it names. It is pure with respect to execution
// state: calling it twice with the same start recomputes identical bases,
// since it always walks the table from scratch rather than accumulating.
func (vm *VM) SetBaseAddress(start uint32) {
	vm.startAddress = start

	offset := uint32(tableRegionSize)
	for slot := 0; slot < numRegionSlots; slot++ {
		r := vm.regions.slots[slot]
		if r == nil || r.kind != RegionReal {
			continue
		}
		r.baseAddress = start + offset
		offset += r.Capacity()
	}

	for slot := 0; slot < numRegionSlots; slot++ {
		r := vm.regions.slots[slot]
		if r == nil || r.kind != RegionReference {
			continue
		}
		if target := vm.regions.findReferenceable(r.inbound); target != nil {
			r.baseAddress = target.baseAddress
		}
	}
}

// TotalSpaceAllocated is the sum of every real region's capacity.
func (vm *VM) TotalSpaceAllocated() uint32 {
	return vm.regions.totalAllocated()
}

// ConstructedDataSize is the total byte length of the assembled image:
// header + pointer table + every real region's full capacity.
func (vm *VM) ConstructedDataSize() uint32 {
	return tableRegionSize + vm.regions.totalAllocated()
}

// EmitHeader writes the 8-byte magic+version header.
func (vm *VM) EmitHeader(buf *bytes.Buffer) {
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], MagicNumber)
	buf.Write(word[:])
	binary.LittleEndian.PutUint32(word[:], VersionNumber)
	buf.Write(word[:])
}

// EmitPointerTable writes the 32 fixed-size (base, checksum, word_count)
// entries in slot order: zeros for an empty slot, (resolved_base, 0, 0) for
// a reference, and (base, checksum, word_count) for a real region.
func (vm *VM) EmitPointerTable(buf *bytes.Buffer) {
	var word [4]byte
	for slot := 0; slot < numRegionSlots; slot++ {
		r := vm.regions.slots[slot]

		var base, checksum, words uint32
		if r != nil {
			base = r.baseAddress
			if r.kind == RegionReal {
				words = wordCount(r.maxWritePointer)
				checksum = r.checksum(words)
			}
		}

		binary.LittleEndian.PutUint32(word[:], base)
		buf.Write(word[:])
		binary.LittleEndian.PutUint32(word[:], checksum)
		buf.Write(word[:])
		binary.LittleEndian.PutUint32(word[:], words)
		buf.Write(word[:])
	}
}

// Assemble renders the complete output image: header, pointer table, then
// every real region's buffer (full capacity, trailing bytes past the
// high-water mark left at their default zero value) in slot order.
func (vm *VM) Assemble() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(int(vm.ConstructedDataSize()))

	vm.EmitHeader(buf)
	vm.EmitPointerTable(buf)
	for slot := 0; slot < numRegionSlots; slot++ {
		r := vm.regions.slots[slot]
		if r != nil && r.kind == RegionReal {
			buf.Write(r.buffer)
		}
	}

	return buf.Bytes()
}

func wordCount(highWater uint32) uint32 {
	return (highWater + 3) / 4
}
