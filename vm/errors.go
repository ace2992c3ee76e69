package dse

import "fmt"

// CommandError is embedded by every execution error below. It pins down
// where in the byte stream execution was when things went wrong, and which
// opcode was being run - the context spec.md demands for diagnosing a
// faulty spec.
type CommandError struct {
	Offset uint32
	Opcode Opcode
}

func (c *CommandError) context() string {
	return fmt.Sprintf(" at offset %d (opcode %s)", c.Offset, c.Opcode)
}

func cmdErr(cmd DecodedCommand, offset uint32) *CommandError {
	return &CommandError{Offset: offset, Opcode: cmd.Opcode}
}

// UnknownOpcodeError: the opcode field does not match any command the
// source ISA declares.
type UnknownOpcodeError struct{ *CommandError }

func (e *UnknownOpcodeError) Error() string { return "unknown opcode" + e.context() }

// UnimplementedOpcodeError: the opcode is declared but this implementation
// has no handler for it.
type UnimplementedOpcodeError struct{ *CommandError }

func (e *UnimplementedOpcodeError) Error() string { return "unimplemented opcode" + e.context() }

// MalformedInstructionError: the size/register-flag combination is invalid
// for the opcode, an immediate has an illegal value, or the stream ran out
// of bytes mid-instruction.
type MalformedInstructionError struct {
	*CommandError
	Reason string
}

func (e *MalformedInstructionError) Error() string {
	return fmt.Sprintf("malformed instruction: %s%s", e.Reason, e.context())
}

// RegionInUseError: RESERVE/REFERENCE targets a slot that is already filled.
type RegionInUseError struct {
	*CommandError
	Slot int
}

func (e *RegionInUseError) Error() string {
	return fmt.Sprintf("region %d already in use%s", e.Slot, e.context())
}

// RegionNotAllocatedError: a write or write-pointer op targets an empty slot.
type RegionNotAllocatedError struct {
	*CommandError
	Slot int
}

func (e *RegionNotAllocatedError) Error() string {
	return fmt.Sprintf("region %d not allocated%s", e.Slot, e.context())
}

// RegionUnfilledError: the target slot is a reference, or is a real region
// marked unfilled, when an operation needs a writable real buffer. SWITCH_FOCUS
// also reports it for an empty or out-of-range slot.
type RegionUnfilledError struct {
	*CommandError
	Slot int
}

func (e *RegionUnfilledError) Error() string {
	return fmt.Sprintf("region %d is unfilled or a reference%s", e.Slot, e.context())
}

// NoRegionSelectedError: a write or write-pointer op executed before any
// SWITCH_FOCUS selected a current region.
type NoRegionSelectedError struct{ *CommandError }

func (e *NoRegionSelectedError) Error() string { return "no region selected" + e.context() }

// OutOfSpaceError: a write exceeds the target region's remaining capacity.
// Requested/Remaining are uint64 even though a region's capacity is a
// uint32: WRITE's repeat count can come from a register, so the requested
// byte count (repeats * data-length) must be computed and reported without
// wrapping around uint32.
type OutOfSpaceError struct {
	*CommandError
	Slot      int
	Requested uint64
	Remaining uint64
}

func (e *OutOfSpaceError) Error() string {
	return fmt.Sprintf("out of space in region %d: requested %d bytes, %d remaining%s",
		e.Slot, e.Requested, e.Remaining, e.context())
}

// RegionSizeOutOfBoundsError: RESERVE requested a size that is negative
// (signed interpretation) or >= the caller-supplied per-region limit.
type RegionSizeOutOfBoundsError struct {
	*CommandError
	Slot      int
	Requested int64
	Limit     uint32
}

func (e *RegionSizeOutOfBoundsError) Error() string {
	return fmt.Sprintf("region %d size %d out of bounds (limit %d)%s",
		e.Slot, e.Requested, e.Limit, e.context())
}

// UnknownTypeLengthError: the WRITE data-length field decoded to a value
// other than 1, 2, 4, or 8.
type UnknownTypeLengthError struct {
	*CommandError
	DataLength int
}

func (e *UnknownTypeLengthError) Error() string {
	return fmt.Sprintf("unknown data length %d%s", e.DataLength, e.context())
}

// BreakHitError: BREAK executed. Fatal, but distinguished from a bug - it
// is an intentional abort the spec author placed there on purpose.
type BreakHitError struct{ *CommandError }

func (e *BreakHitError) Error() string { return "BREAK hit" + e.context() }
