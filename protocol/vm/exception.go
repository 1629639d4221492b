package vm

import "fmt"

var excOps = []opEntry{
	opArgs("THROW", 0x3C8, 10, 6, func(vm *Machine, ins *Instruction) error {
		return throw(ins.x, nil)
	}).shows(showX),
	opArgs("THROWIF", 0x3C9, 10, 6, func(vm *Machine, ins *Instruction) error {
		return vm.throwIf(ins.x, true)
	}).shows(showX),
	opArgs("THROWIFNOT", 0x3CA, 10, 6, func(vm *Machine, ins *Instruction) error {
		return vm.throwIf(ins.x, false)
	}).shows(showX),
	opArgs("THROW", 0xF2C4>>3, 13, 11, func(vm *Machine, ins *Instruction) error {
		return throw(ins.x, nil)
	}).shows(showX),
	opArgs("THROWARG", 0xF2CC>>3, 13, 11, func(vm *Machine, ins *Instruction) error {
		param, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		return throw(ins.x, param)
	}).shows(showX),
	opArgs("THROWIF", 0xF2D4>>3, 13, 11, func(vm *Machine, ins *Instruction) error {
		return vm.throwIf(ins.x, true)
	}).shows(showX),
	opArgs("THROWARGIF", 0xF2DC>>3, 13, 11, func(vm *Machine, ins *Instruction) error {
		return vm.throwArgIf(ins.x, true)
	}).shows(showX),
	opArgs("THROWIFNOT", 0xF2E4>>3, 13, 11, func(vm *Machine, ins *Instruction) error {
		return vm.throwIf(ins.x, false)
	}).shows(showX),
	opArgs("THROWARGIFNOT", 0xF2EC>>3, 13, 11, func(vm *Machine, ins *Instruction) error {
		return vm.throwArgIf(ins.x, false)
	}).shows(showX),
	opArgs("THROWANY", 0xF2F0>>3, 13, 3, func(vm *Machine, ins *Instruction) error {
		return vm.throwAny(ins.x&1 != 0, ins.x&6 != 0, ins.x&2 != 0)
	}).checks(func(x int) bool { return x < 6 }).shows(func(ins *Instruction) string {
		name := "THROW"
		if ins.x&1 != 0 {
			name += "ARG"
		}
		name += "ANY"
		switch ins.x & 6 {
		case 2:
			name += "IF"
		case 4:
			name += "IFNOT"
		}
		return name
	}),
	op("TRY", 0xF2FF, 16, func(vm *Machine, _ *Instruction) error {
		return vm.try(-1, -1)
	}),
	opArgs("TRYARGS", 0xF3, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.try(ins.x>>4, ins.x&15)
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d,%d", ins.Name, ins.x>>4, ins.x&15) }),
}

func (vm *Machine) throwIf(code int, want bool) error {
	f, err := vm.stack.PopBool()
	if err != nil || f != want {
		return err
	}
	return throw(code, nil)
}

func (vm *Machine) throwArgIf(code int, want bool) error {
	f, err := vm.stack.PopBool()
	if err != nil {
		return err
	}
	param, err := vm.stack.Pop()
	if err != nil || f != want {
		return err
	}
	return throw(code, param)
}

// throwAny throws a code taken from the stack, with a parameter
// below it if withArg is set. With cond set it throws only if the
// flag on top equals want.
func (vm *Machine) throwAny(withArg, cond, want bool) error {
	f := want
	if cond {
		var err error
		if f, err = vm.stack.PopBool(); err != nil {
			return err
		}
	}
	code, err := vm.stack.PopSmallInt(0, 0xffff)
	if err != nil {
		return err
	}
	var param Value
	if withArg {
		if param, err = vm.stack.Pop(); err != nil {
			return err
		}
	}
	if f != want {
		return nil
	}
	return throw(code, param)
}

// try runs the body below the top of the stack with the handler
// on top installed in c2. Both the body and the handler return to the
// code after the instruction.
func (vm *Machine) try(pass, ret int) error {
	if err := vm.stack.Check(2); err != nil {
		return err
	}
	handler, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	body, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	oldC2 := vm.regs.c[2]
	cc, err := vm.extractCC(saveC0|saveC1|saveC2, pass, ret)
	if err != nil {
		return err
	}
	handler, d := forceCdata(handler)
	d.Save.defineCont(2, oldC2)
	d.Save.defineCont(0, cc)
	vm.regs.c[0] = cc
	vm.regs.c[2] = handler
	return vm.jump(body)
}
