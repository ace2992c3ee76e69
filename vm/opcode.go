package dse

import "fmt"

// Opcode identifies an operation within a command word (bits 27..20).
//
// The mandatory set below (NOP, BREAK, RESERVE, REFERENCE, SWITCH_FOCUS,
// SET_WR_PTR, MV, WRITE, WRITE_ARRAY, END_SPEC) is the set this
// implementation executes. The remaining constants are declared because
// the source instruction set names them, but nothing downstream emits
// them and they carry no handler - dispatching one reports
// UnimplementedOpcode rather than panicking or silently doing nothing.
type Opcode uint8

const (
	OpBreak       Opcode = 0x00
	OpNop         Opcode = 0x01
	OpReserve     Opcode = 0x02
	OpReference   Opcode = 0x04
	OpWrite       Opcode = 0x42
	OpWriteArray  Opcode = 0x43
	OpSwitchFocus Opcode = 0x50
	OpMv          Opcode = 0x60
	OpSetWrPtr    Opcode = 0x64
	OpEndSpec     Opcode = 0xFF

	// Declared by the source ISA, never wired to a handler: struct
	// definitions, loop constructs, RNG fill, and bit-packing. No known
	// spec emitter uses these; see DESIGN.md.
	OpLoop   Opcode = 0x0A
	OpStruct Opcode = 0x0B
	OpPack   Opcode = 0x0C
	OpRandom Opcode = 0x0D
)

var opcodeNames = map[Opcode]string{
	OpBreak:       "BREAK",
	OpNop:         "NOP",
	OpReserve:     "RESERVE",
	OpReference:   "REFERENCE",
	OpWrite:       "WRITE",
	OpWriteArray:  "WRITE_ARRAY",
	OpSwitchFocus: "SWITCH_FOCUS",
	OpMv:          "MV",
	OpSetWrPtr:    "SET_WR_PTR",
	OpEndSpec:     "END_SPEC",
	OpLoop:        "LOOP",
	OpStruct:      "STRUCT",
	OpPack:        "PACK",
	OpRandom:      "RANDOM",
}

// String renders the opcode's mnemonic, or a hex fallback for anything the
// source ISA never named at all (decode never rejects these; dispatch does).
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02X)", uint8(op))
}

// known reports whether this opcode corresponds to a command the source ISA
// actually declares, implemented or not. Dispatch uses this to distinguish
// UnknownOpcode from UnimplementedOpcode.
func (op Opcode) known() bool {
	_, ok := opcodeNames[op]
	return ok
}
