package dse

import "encoding/binary"

// opHandler executes one decoded command, possibly consuming further
// immediates from the VM's byte stream. terminal=true signals normal
// program end (only END_SPEC returns this).
type opHandler func(vm *VM, cmd DecodedCommand, offset uint32) (terminal bool, err error)

var dispatchTable = map[Opcode]opHandler{
	OpBreak:       opBreak,
	OpNop:         opNop,
	OpReserve:     opReserve,
	OpReference:   opReference,
	OpSwitchFocus: opSwitchFocus,
	OpSetWrPtr:    opSetWrPtr,
	OpMv:          opMv,
	OpWrite:       opWrite,
	OpWriteArray:  opWriteArray,
	OpEndSpec:     opEndSpec,
}

func opBreak(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	return false, &BreakHitError{cmdErr(cmd, offset)}
}

func opNop(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	return false, nil
}

func opReserve(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	referenceable := cmd.ReferenceableFlag()
	unfilled := cmd.UnfilledFlag()
	slot := cmd.RegionSlot()

	wantWords := 2
	if referenceable {
		wantWords = 3
	}
	if cmd.Size.NumWords() != wantWords {
		return false, &MalformedInstructionError{cmdErr(cmd, offset), "RESERVE word count doesn't match referenceable flag"}
	}

	rawSize, err := vm.readImmediate32()
	if err != nil {
		return false, err
	}

	var handle ReferenceHandle
	if referenceable {
		h, err := vm.readImmediate32()
		if err != nil {
			return false, err
		}
		handle = ReferenceHandle(h)
	}

	if signed := int32(rawSize); signed < 0 || rawSize >= vm.perRegionCapacityLimit {
		return false, &RegionSizeOutOfBoundsError{cmdErr(cmd, offset), slot, int64(signed), vm.perRegionCapacityLimit}
	}

	var outbound *ReferenceHandle
	if referenceable {
		h := handle
		outbound = &h
	}

	if !vm.regions.reserve(slot, roundUp4(rawSize), unfilled, outbound) {
		return false, &RegionInUseError{cmdErr(cmd, offset), slot}
	}
	return false, nil
}

func opReference(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	if cmd.Size.NumWords() != 2 {
		return false, &MalformedInstructionError{cmdErr(cmd, offset), "REFERENCE requires exactly one immediate"}
	}
	slot := cmd.RegionSlot()

	h, err := vm.readImmediate32()
	if err != nil {
		return false, err
	}

	if !vm.regions.reference(slot, ReferenceHandle(h)) {
		return false, &RegionInUseError{cmdErr(cmd, offset), slot}
	}
	return false, nil
}

func opSwitchFocus(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	slot := uint32(cmd.Src1)
	if cmd.HasSrc1 {
		slot = vm.registers[cmd.Src1]
	}

	region, ok := vm.regions.Get(int(slot))
	if !ok || region.kind != RegionReal {
		return false, &RegionUnfilledError{cmdErr(cmd, offset), int(slot)}
	}

	vm.currentRegion = int(slot)
	vm.hasCurrentRegion = true
	return false, nil
}

func opSetWrPtr(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	var addr uint32
	if cmd.HasSrc1 {
		addr = vm.registers[cmd.Src1]
	} else {
		v, err := vm.readImmediate32()
		if err != nil {
			return false, err
		}
		addr = v
	}

	if !vm.hasCurrentRegion {
		return false, &NoRegionSelectedError{cmdErr(cmd, offset)}
	}
	region, _ := vm.regions.Get(vm.currentRegion)

	if cmd.RelativeFlag() {
		addr += region.WritePointer()
	}

	if region.kind != RegionReal || region.unfilled {
		return false, &RegionUnfilledError{cmdErr(cmd, offset), vm.currentRegion}
	}

	region.setWritePointer(addr)
	return false, nil
}

func opMv(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	if !cmd.HasDest {
		return false, &MalformedInstructionError{cmdErr(cmd, offset), "MV requires a destination register"}
	}

	var value uint32
	if cmd.HasSrc1 {
		value = vm.registers[cmd.Src1]
	} else {
		v, err := vm.readImmediate32()
		if err != nil {
			return false, err
		}
		value = v
	}

	vm.registers[cmd.Dest] = value
	return false, nil
}

func opWrite(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	dataLength := cmd.DataLength()
	if dataLength != 1 && dataLength != 2 && dataLength != 4 && dataLength != 8 {
		return false, &UnknownTypeLengthError{cmdErr(cmd, offset), dataLength}
	}

	repeats := cmd.Repeats()
	if cmd.HasSrc2 {
		repeats = vm.registers[cmd.Src2]
	}

	var value uint64
	switch {
	case cmd.HasSrc1:
		value = uint64(vm.registers[cmd.Src1])
	case cmd.Size.NumWords() == 2 && dataLength != 8:
		v, err := vm.readImmediate32()
		if err != nil {
			return false, err
		}
		value = uint64(v)
	case cmd.Size.NumWords() == 3 && dataLength == 8:
		v, err := vm.readImmediate64()
		if err != nil {
			return false, err
		}
		value = v
	default:
		return false, &MalformedInstructionError{cmdErr(cmd, offset), "WRITE requires a src1 register or a matching-width immediate"}
	}

	if !vm.hasCurrentRegion {
		return false, &NoRegionSelectedError{cmdErr(cmd, offset)}
	}
	region, _ := vm.regions.Get(vm.currentRegion)
	if region.kind != RegionReal || region.unfilled {
		return false, &RegionUnfilledError{cmdErr(cmd, offset), vm.currentRegion}
	}

	// repeats may come straight from a register, so compute in uint64:
	// repeats*dataLength can exceed 2^32 and must not wrap around to a
	// small value that slips past this check.
	needed := uint64(repeats) * uint64(dataLength)
	remaining := uint64(region.Remaining())
	if remaining < needed {
		return false, &OutOfSpaceError{cmdErr(cmd, offset), vm.currentRegion, needed, remaining}
	}

	word := make([]byte, dataLength)
	for i := uint32(0); i < repeats; i++ {
		switch dataLength {
		case 1:
			word[0] = byte(value)
		case 2:
			binary.LittleEndian.PutUint16(word, uint16(value))
		case 4:
			binary.LittleEndian.PutUint32(word, uint32(value))
		case 8:
			binary.LittleEndian.PutUint64(word, value)
		}
		region.write(word)
	}
	return false, nil
}

func opWriteArray(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	if !vm.hasCurrentRegion {
		return false, &NoRegionSelectedError{cmdErr(cmd, offset)}
	}
	region, _ := vm.regions.Get(vm.currentRegion)
	if region.kind != RegionReal || region.unfilled {
		return false, &RegionUnfilledError{cmdErr(cmd, offset), vm.currentRegion}
	}

	n, err := vm.readImmediate32()
	if err != nil {
		return false, err
	}
	needed := n * 4

	data, err := vm.readBytes(needed)
	if err != nil {
		return false, err
	}

	if remaining := region.Remaining(); remaining < needed {
		return false, &OutOfSpaceError{cmdErr(cmd, offset), vm.currentRegion, uint64(needed), uint64(remaining)}
	}

	region.write(data)
	return false, nil
}

func opEndSpec(vm *VM, cmd DecodedCommand, offset uint32) (bool, error) {
	if cmd.Size.NumWords() != 2 {
		return false, &MalformedInstructionError{cmdErr(cmd, offset), "END_SPEC requires exactly one immediate"}
	}

	v, err := vm.readImmediate32()
	if err != nil {
		return false, err
	}
	if int32(v) != -1 {
		return false, &MalformedInstructionError{cmdErr(cmd, offset), "END_SPEC sentinel must be -1"}
	}
	return true, nil
}
