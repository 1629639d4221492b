package vm

import "fmt"

var codepageOps = []opEntry{
	opArgs("SETCP", 0xFF, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.setCP(ins.x)
	}).checks(func(x int) bool { return x < 0xF0 }).shows(showX),
	opArgs("SETCP", 0xFFF, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.setCP(ins.x - 16)
	}).checks(func(x int) bool { return x != 0 }).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d", ins.Name, ins.x-16)
	}),
	op("SETCPX", 0xFFF0, 16, func(vm *Machine, _ *Instruction) error {
		cp, err := vm.stack.PopSmallInt(-1<<15, 1<<15-1)
		if err != nil {
			return err
		}
		return vm.setCP(cp)
	}),
}
