package dse

import "encoding/binary"

// RegionKind tags which variant a region-table slot currently holds.
type RegionKind uint8

const (
	RegionEmpty RegionKind = iota
	RegionReal
	RegionReference
)

func (k RegionKind) String() string {
	switch k {
	case RegionReal:
		return "real"
	case RegionReference:
		return "reference"
	default:
		return "empty"
	}
}

// Region is one region-table slot. Real and reference regions share only an
// identity (kind, assigned base address); rather than model that with an
// interface and two implementations, it is a single tagged struct - the
// two variants never need independent virtual dispatch, just different
// populated fields, and a downcast would otherwise be needed on every
// access from the assembler.
type Region struct {
	kind RegionKind

	// populated when kind == RegionReal
	buffer          []byte
	writePointer    uint32
	maxWritePointer uint32
	unfilled        bool
	outbound        *ReferenceHandle // non-nil when declared referenceable

	// populated when kind == RegionReference
	inbound ReferenceHandle

	baseAddress uint32
}

func newRealRegion(capacity uint32, unfilled bool, outbound *ReferenceHandle) *Region {
	return &Region{
		kind:     RegionReal,
		buffer:   make([]byte, capacity),
		unfilled: unfilled,
		outbound: outbound,
	}
}

func newReferenceRegion(handle ReferenceHandle) *Region {
	return &Region{kind: RegionReference, inbound: handle}
}

// Kind reports which variant this slot holds.
func (r *Region) Kind() RegionKind { return r.kind }

// Capacity is the region's fixed byte size, a multiple of 4, set at RESERVE.
func (r *Region) Capacity() uint32 { return uint32(len(r.buffer)) }

// Remaining is the capacity not yet consumed by the write cursor.
func (r *Region) Remaining() uint32 { return r.Capacity() - r.writePointer }

// WritePointer is the current write cursor, in bytes.
func (r *Region) WritePointer() uint32 { return r.writePointer }

// MaxWritePointer is the high-water mark: the largest value the write
// cursor has ever held.
func (r *Region) MaxWritePointer() uint32 { return r.maxWritePointer }

// Unfilled reports whether RESERVE declared this region's output content
// to be filler (all-zero) rather than meaningful data.
func (r *Region) Unfilled() bool { return r.unfilled }

// Referenceable reports whether this real region has an outbound reference
// handle attached, i.e. some REFERENCE slot may alias it.
func (r *Region) Referenceable() bool { return r.outbound != nil }

// BaseAddress is the target-memory base assigned by VM.SetBaseAddress,
// valid only after it has run.
func (r *Region) BaseAddress() uint32 { return r.baseAddress }

// setWritePointer repositions the cursor and advances the high-water mark
// if the new position exceeds it. spec.md §4.2 allows SET_WR_PTR to name an
// address past capacity, deferring the failure to the next write; addr is
// clamped to capacity here so that deferral happens without ever letting
// the cursor or high-water mark leave [0, capacity] - the invariant every
// other Region method (Remaining, checksum) relies on. The next write then
// legitimately fails OutOfSpace, since remaining is 0 at a clamped cursor.
func (r *Region) setWritePointer(addr uint32) {
	if capacity := r.Capacity(); addr > capacity {
		addr = capacity
	}
	r.writePointer = addr
	if addr > r.maxWritePointer {
		r.maxWritePointer = addr
	}
}

// write appends data at the cursor and advances it, returning false (and
// mutating nothing) if there is not enough remaining capacity. Callers are
// expected to have already checked Remaining() so this never partially
// writes.
func (r *Region) write(data []byte) bool {
	if r.Remaining() < uint32(len(data)) {
		return false
	}
	copy(r.buffer[r.writePointer:], data)
	r.setWritePointer(r.writePointer + uint32(len(data)))
	return true
}

// checksum sums the first `words` little-endian 32-bit words of the
// buffer, modulo 2^32.
func (r *Region) checksum(words uint32) uint32 {
	var sum uint32
	for i := uint32(0); i < words; i++ {
		sum += binary.LittleEndian.Uint32(r.buffer[i*4 : i*4+4])
	}
	return sum
}

func roundUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}
