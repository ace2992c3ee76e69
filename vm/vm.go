// Package dse implements the Data Specification Executor: a stack-free,
// register/memory-region hybrid byte-code interpreter that turns a compact
// binary program into a laid-out block of target SDRAM content, byte-exact
// down to padding and checksums.
//
// A VM is single-use: construct it over a fully materialized input buffer,
// call Execute once, then (on success) SetBaseAddress and read the image
// back out with Assemble or the Emit* methods. It holds no OS resources and
// is not safe for concurrent use by multiple goroutines, but independent
// VM instances share no state and may run concurrently.
package dse

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

const numRegisters = 16

type execState uint8

const (
	stateRunning execState = iota
	stateTerminated
	stateFailed
)

// VM is the fetch-decode-execute core. Registers and the region table are
// owned exclusively by the VM and destroyed with it; the "current region"
// is kept as a slot index into the table (an arena, not a pointer) so that
// reading the instruction stream and mutating the selected region can never
// alias each other.
type VM struct {
	input  []byte
	cursor uint32

	registers [numRegisters]uint32
	regions   RegionTable

	currentRegion    int
	hasCurrentRegion bool

	perRegionCapacityLimit uint32

	state execState
	err   error

	startAddress uint32

	trace io.Writer
}

// SetTrace directs Execute to write one line per decoded command to w
// before it runs. Passing nil (the default) disables tracing.
func (vm *VM) SetTrace(w io.Writer) {
	vm.trace = w
}

// NewVM constructs a VM over a fully materialized spec byte sequence.
// perRegionCapacityLimit bounds how large a single RESERVE may request -
// normally the amount of SDRAM available on the target core.
func NewVM(input []byte, perRegionCapacityLimit uint32) *VM {
	return &VM{
		input:                  input,
		perRegionCapacityLimit: perRegionCapacityLimit,
	}
}

// Execute runs the fetch-decode-execute loop to completion. It returns nil
// only on a clean END_SPEC; any other outcome - an unknown/unimplemented
// opcode, a malformed instruction, a region error, or BREAK - is fatal and
// returned unchanged. Calling Execute again after it has already finished
// (successfully or not) is a no-op that returns the original outcome.
func (vm *VM) Execute() error {
	if vm.state != stateRunning {
		return vm.err
	}

	for {
		offset := vm.cursor
		word, err := vm.fetchWord()
		if err != nil {
			return vm.fail(err)
		}

		cmd := Decode(word)
		if vm.trace != nil {
			fmt.Fprintf(vm.trace, "%06d: %s\n", offset, cmd)
		}

		handler, ok := dispatchTable[cmd.Opcode]
		if !ok {
			if cmd.Opcode.known() {
				return vm.fail(&UnimplementedOpcodeError{cmdErr(cmd, offset)})
			}
			return vm.fail(&UnknownOpcodeError{cmdErr(cmd, offset)})
		}

		terminal, err := handler(vm, cmd, offset)
		if err != nil {
			return vm.fail(err)
		}
		if terminal {
			vm.state = stateTerminated
			return nil
		}
	}
}

func (vm *VM) fail(err error) error {
	vm.state = stateFailed
	vm.err = err
	return err
}

func (vm *VM) fetchWord() (uint32, error) {
	return vm.readImmediate32()
}

func (vm *VM) readImmediate32() (uint32, error) {
	b, err := vm.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (vm *VM) readImmediate64() (uint64, error) {
	b, err := vm.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (vm *VM) readBytes(n uint32) ([]byte, error) {
	if vm.cursor+n > uint32(len(vm.input)) || vm.cursor+n < vm.cursor {
		return nil, &MalformedInstructionError{
			&CommandError{Offset: vm.cursor},
			"unexpected end of input",
		}
	}
	b := vm.input[vm.cursor : vm.cursor+n]
	vm.cursor += n
	return b, nil
}

// Region returns the region at slot, or (Region{}, false) if empty.
func (vm *VM) Region(slot int) (Region, bool) {
	r, ok := vm.regions.Get(slot)
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Regions iterates every occupied slot in index order. Copies are returned;
// mutating them has no effect on the VM.
func (vm *VM) Regions() iter.Seq2[int, Region] {
	return func(yield func(int, Region) bool) {
		for slot, r := range vm.regions.slots {
			if r == nil {
				continue
			}
			if !yield(slot, *r) {
				return
			}
		}
	}
}

// ReferenceableRegions iterates the slots of real regions that declared an
// outbound reference handle via RESERVE's referenceable flag.
func (vm *VM) ReferenceableRegions() iter.Seq[int] {
	return func(yield func(int) bool) {
		for slot, r := range vm.regions.slots {
			if r != nil && r.kind == RegionReal && r.outbound != nil {
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// RegionsToFill iterates the slots occupied by reference regions - the
// placeholders the assembler must resolve against a real region's base.
func (vm *VM) RegionsToFill() iter.Seq[int] {
	return func(yield func(int) bool) {
		for slot, r := range vm.regions.slots {
			if r != nil && r.kind == RegionReference {
				if !yield(slot) {
					return
				}
			}
		}
	}
}
