package dse

import "fmt"

// Register is a general-purpose register index, 0..15.
type Register uint8

// WordCount is the total number of 32-bit words (including the command word
// itself) that one instruction occupies in the byte stream. It comes from
// bits 31..30 of the command word: 0 -> 1, 1 -> 2, 2 -> 3, 3 -> 4.
type WordCount uint8

// NumWords returns the actual word count (1..4) this field encodes.
func (w WordCount) NumWords() int { return int(w) + 1 }

// DecodedCommand is the pure, stateless result of decoding one 32-bit
// command word per the bit layout below. It performs no I/O and reads no
// further bytes; reading the immediates that follow (per Size) is the
// VM's job once it knows which opcode is in play.
//
//	31..30  size              total word count: 0->1, 1->2, 2->3, 3->4
//	27..20  opcode
//	18      dest-flag         bit set => bits 15..12 are a dest register
//	17      src1-flag         bit set => bits 11..8 are a src1 register
//	16      src2-flag         bit set => bits 7..4 are a src2 register
//	15..12  dest / data-length / unused    (aliased by opcode)
//	11..8   src1
//	7..4    src2 / unfilled(7) / referenceable(6)
//	4..0    region (RESERVE/REFERENCE) / repeats (WRITE, bits 7..0)
//	0       relative (SET_WR_PTR)
type DecodedCommand struct {
	Raw    uint32
	Size   WordCount
	Opcode Opcode

	// Dest/Src1/Src2 always carry the raw field value regardless of
	// whether the corresponding flag bit is set - the flag tells a
	// consumer whether the field means anything, not whether it decodes.
	Dest, Src1, Src2          Register
	HasDest, HasSrc1, HasSrc2 bool
}

// Decode extracts opcode, word count, and the three optional register
// fields from a little-endian 32-bit command word. Unknown opcodes decode
// without error; only dispatch rejects them.
func Decode(word uint32) DecodedCommand {
	return DecodedCommand{
		Raw:     word,
		Size:    WordCount((word >> 30) & 0x3),
		Opcode:  Opcode((word >> 20) & 0xFF),
		Dest:    Register((word >> 12) & 0xF),
		Src1:    Register((word >> 8) & 0xF),
		Src2:    Register((word >> 4) & 0xF),
		HasDest: word&(1<<18) != 0,
		HasSrc1: word&(1<<17) != 0,
		HasSrc2: word&(1<<16) != 0,
	}
}

// DataLength decodes the data-width alias of bits 13..12 (shared with Dest)
// used by WRITE: raw 0..3 widens to 1, 2, 4, or 8 bytes.
func (c DecodedCommand) DataLength() int {
	return 1 << ((c.Raw >> 12) & 0x3)
}

// RegionSlot decodes the region-index alias of bits 4..0 (0..31), used by
// RESERVE and REFERENCE.
func (c DecodedCommand) RegionSlot() int {
	return int(c.Raw & 0x1F)
}

// UnfilledFlag decodes the RESERVE alias of bit 7.
func (c DecodedCommand) UnfilledFlag() bool {
	return c.Raw&(1<<7) != 0
}

// ReferenceableFlag decodes the RESERVE alias of bit 6.
func (c DecodedCommand) ReferenceableFlag() bool {
	return c.Raw&(1<<6) != 0
}

// RelativeFlag decodes the SET_WR_PTR alias of bit 0.
func (c DecodedCommand) RelativeFlag() bool {
	return c.Raw&0x1 != 0
}

// Repeats decodes the WRITE alias of bits 7..0, the immediate repeat count
// used when no src2 register supplies it.
func (c DecodedCommand) Repeats() uint32 {
	return c.Raw & 0xFF
}

// String renders a one-line disassembly of the command, used by the VM's
// trace output (see VM.SetTrace). Error messages name only the opcode.
func (c DecodedCommand) String() string {
	s := fmt.Sprintf("%s [%dw]", c.Opcode, c.Size.NumWords())
	if c.HasDest {
		s += fmt.Sprintf(" dest=r%d", c.Dest)
	}
	if c.HasSrc1 {
		s += fmt.Sprintf(" src1=r%d", c.Src1)
	}
	if c.HasSrc2 {
		s += fmt.Sprintf(" src2=r%d", c.Src2)
	}
	return s
}
