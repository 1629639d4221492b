package vm

import (
	"fmt"

	"github.com/mnill/tycho-vm/protocol/cell"
)

// Debug instructions write to the machine's debug writer and
// never change its state. Unassigned FExx opcodes are no-ops.
var debugOps = []opEntry{
	opArgs("DEBUG", 0xFE, 8, 8, func(*Machine, *Instruction) error { return nil }).shows(showX),
	op("DUMPSTK", 0xFE00, 16, func(vm *Machine, _ *Instruction) error {
		vm.debugf("#DEBUG#: stack(%d values) : %s\n", vm.stack.Depth(), vm.stack)
		return nil
	}),
	op("STRDUMP", 0xFE14, 16, func(vm *Machine, _ *Instruction) error {
		if vm.stack.Depth() == 0 {
			vm.debugf("#DEBUG#: s0 is absent\n")
			return nil
		}
		s, ok := vm.stack.at(0).(cell.Slice)
		if !ok {
			vm.debugf("#DEBUG#: is not a slice\n")
			return nil
		}
		data, err := byteData(s)
		if err != nil {
			vm.debugf("#DEBUG#: slice contains not valid bits count\n")
			return nil
		}
		vm.debugf("#DEBUG#: %s\n", data)
		return nil
	}),
	opArgs("DUMP", 0xFE2, 12, 4, func(vm *Machine, ins *Instruction) error {
		if ins.x >= vm.stack.Depth() {
			vm.debugf("#DEBUG#: s%d is absent\n", ins.x)
			return nil
		}
		vm.debugf("#DEBUG#: s%d = %s\n", ins.x, FormatValue(vm.stack.at(ins.x)))
		return nil
	}).shows(showS),
	opArgs("DEBUGSTR", 0xFEF, 12, 4, func(vm *Machine, ins *Instruction) error {
		vm.debugf("#DEBUG#: %s\n", ins.str)
		return nil
	}).decodes(func(ins *Instruction, code *cell.Slice) error {
		data, err := code.LoadBits(8 * (ins.x + 1))
		if err != nil {
			return err
		}
		ins.str = data
		return nil
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %q", ins.Name, ins.str)
	}),
}
