package vm

import (
	"fmt"

	"github.com/mnill/tycho-vm/errors"
)

// maxArgs stands for "too many arguments"; entering a continuation
// with it fails with ErrStackUnderflow.
const maxArgs = 0x40000000

var regOps = []opEntry{
	opArgs("SETCONTARGS", 0xEC, 8, 8, func(vm *Machine, ins *Instruction) error {
		k, err := vm.stack.PopCont()
		if err != nil {
			return err
		}
		return vm.pushContArgs(k, ins.x>>4, (ins.x+1)&15-1)
	}).shows(showArgs),
	opArgs("RETURNARGS", 0xED0, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.returnArgs(ins.x)
	}).shows(showX),
	op("RETURNVARARGS", 0xED10, 16, func(vm *Machine, _ *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, 255)
		return seq(err, func() error { return vm.returnArgs(n) })
	}),
	op("SETCONTVARARGS", 0xED11, 16, func(vm *Machine, _ *Instruction) error {
		more, err := vm.stack.PopSmallInt(-1, 255)
		if err != nil {
			return err
		}
		ncopy, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.pushContArgs(k, ncopy, more) })
	}),
	op("SETNUMVARARGS", 0xED12, 16, func(vm *Machine, _ *Instruction) error {
		more, err := vm.stack.PopSmallInt(-1, 255)
		if err != nil {
			return err
		}
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.pushContArgs(k, 0, more) })
	}),
	op("BLESS", 0xED1E, 16, func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		vm.stack.Push(NewOrdCont(s, vm.cp))
		return nil
	}),
	op("BLESSVARARGS", 0xED1F, 16, func(vm *Machine, _ *Instruction) error {
		more, err := vm.stack.PopSmallInt(-1, 255)
		if err != nil {
			return err
		}
		ncopy, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.blessArgs(ncopy, more)
	}),
	opArgs("PUSHCTR", 0xED4, 12, 4, func(vm *Machine, ins *Instruction) error {
		vm.pushCtr(ins.x)
		return nil
	}).checks(maxReg).shows(showC),
	opArgs("POPCTR", 0xED5, 12, 4, func(vm *Machine, ins *Instruction) error {
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		return vm.regs.Set(ins.x, v)
	}).checks(maxReg).shows(showC),
	opArgs("SETCONTCTR", 0xED6, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.setContCtr(ins.x)
	}).checks(maxReg).shows(showC),
	opArgs("SETRETCTR", 0xED7, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.setSavedCtr(0, ins.x)
	}).checks(maxReg).shows(showC),
	opArgs("SETALTCTR", 0xED8, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.setSavedCtr(1, ins.x)
	}).checks(maxReg).shows(showC),
	opArgs("POPSAVE", 0xED9, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.popSave(ins.x)
	}).checks(maxReg).shows(showC),
	opArgs("SAVECTR", 0xEDA, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.saveCtr(ins.x, 0)
	}).checks(maxReg).shows(showC),
	opArgs("SAVEALTCTR", 0xEDB, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.saveCtr(ins.x, 1)
	}).checks(maxReg).shows(showC),
	opArgs("SAVEBOTHCTR", 0xEDC, 12, 4, func(vm *Machine, ins *Instruction) error {
		return seq(vm.saveCtr(ins.x, 0), func() error { return vm.saveCtr(ins.x, 1) })
	}).checks(maxReg).shows(showC),
	op("PUSHCTRX", 0xEDE0, 16, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 16)
		if err != nil {
			return err
		}
		vm.pushCtr(i)
		return nil
	}),
	op("POPCTRX", 0xEDE1, 16, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 16)
		if err != nil {
			return err
		}
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		return vm.regs.Set(i, v)
	}),
	op("SETCONTCTRX", 0xEDE2, 16, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 16)
		return seq(err, func() error { return vm.setContCtr(i) })
	}),
	op("COMPOS", 0xEDF0, 16, func(vm *Machine, _ *Instruction) error { return vm.compose(true, false) }),
	op("COMPOSALT", 0xEDF1, 16, func(vm *Machine, _ *Instruction) error { return vm.compose(false, true) }),
	op("COMPOSBOTH", 0xEDF2, 16, func(vm *Machine, _ *Instruction) error { return vm.compose(true, true) }),
	op("ATEXIT", 0xEDF3, 16, func(vm *Machine, _ *Instruction) error {
		k, d, err := vm.popForcedCont()
		if err != nil {
			return err
		}
		d.Save.defineCont(0, vm.regs.c[0])
		vm.regs.c[0] = k
		return nil
	}),
	op("ATEXITALT", 0xEDF4, 16, func(vm *Machine, _ *Instruction) error {
		k, d, err := vm.popForcedCont()
		if err != nil {
			return err
		}
		d.Save.defineCont(1, vm.regs.c[1])
		vm.regs.c[1] = k
		return nil
	}),
	op("SETEXITALT", 0xEDF5, 16, func(vm *Machine, _ *Instruction) error {
		k, d, err := vm.popForcedCont()
		if err != nil {
			return err
		}
		d.Save.defineCont(0, vm.regs.c[0])
		d.Save.defineCont(1, vm.regs.c[1])
		vm.regs.c[1] = k
		return nil
	}),
	op("THENRET", 0xEDF6, 16, func(vm *Machine, _ *Instruction) error {
		k, d, err := vm.popForcedCont()
		if err != nil {
			return err
		}
		d.Save.defineCont(0, vm.regs.c[0])
		vm.stack.Push(k)
		return nil
	}),
	op("THENRETALT", 0xEDF7, 16, func(vm *Machine, _ *Instruction) error {
		k, d, err := vm.popForcedCont()
		if err != nil {
			return err
		}
		d.Save.defineCont(0, vm.regs.c[1])
		vm.stack.Push(k)
		return nil
	}),
	op("INVERT", 0xEDF8, 16, func(vm *Machine, _ *Instruction) error {
		vm.regs.c[0], vm.regs.c[1] = vm.regs.c[1], vm.regs.c[0]
		return nil
	}),
	op("BOOLEVAL", 0xEDF9, 16, func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopCont()
		if err != nil {
			return err
		}
		cc, err := vm.extractCC(saveC0|saveC1, -1, -1)
		if err != nil {
			return err
		}
		vm.regs.c[0] = &PushIntCont{value: -1, next: cc}
		vm.regs.c[1] = &PushIntCont{value: 0, next: cc}
		return vm.jump(k)
	}),
	op("SAMEALT", 0xEDFA, 16, func(vm *Machine, _ *Instruction) error {
		vm.regs.c[1] = vm.regs.c[0]
		return nil
	}),
	op("SAMEALTSAVE", 0xEDFB, 16, func(vm *Machine, _ *Instruction) error {
		vm.c1SaveSet()
		return nil
	}),
	opArgs("BLESSARGS", 0xEE, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.blessArgs(ins.x>>4, (ins.x+1)&15-1)
	}).shows(showArgs),
}

func maxReg(x int) bool { return x <= 7 }

func showArgs(ins *Instruction) string {
	return fmt.Sprintf("%s %d,%d", ins.Name, ins.x>>4, (ins.x+1)&15-1)
}

// setContArgs returns a copy of k that carries the top ncopy stack
// entries as bound arguments and expects more further ones
// (-1: any number).
func (vm *Machine) setContArgs(k Continuation, ncopy, more int) (Continuation, error) {
	if ncopy <= 0 && more < 0 {
		return k, nil
	}
	k, d := forceCdata(k)
	if ncopy > 0 {
		if d.NArgs >= 0 && d.NArgs < ncopy {
			return nil, errors.WithDetailf(ErrStackOverflow, "continuation takes %d arguments, %d given", d.NArgs, ncopy)
		}
		if d.Stack == nil {
			d.Stack = new(Stack)
		}
		if err := d.Stack.MoveFrom(vm.stack, ncopy); err != nil {
			return nil, err
		}
		if err := vm.gas.consumeStack(d.Stack.Depth()); err != nil {
			return nil, err
		}
		if d.NArgs >= 0 {
			d.NArgs -= ncopy
		}
	}
	if more >= 0 {
		switch {
		case d.NArgs > more:
			d.NArgs = maxArgs
		case d.NArgs < 0:
			d.NArgs = more
		}
	}
	return k, nil
}

func (vm *Machine) pushContArgs(k Continuation, ncopy, more int) error {
	k, err := vm.setContArgs(k, ncopy, more)
	if err != nil {
		return err
	}
	vm.stack.Push(k)
	return nil
}

func (vm *Machine) blessArgs(ncopy, more int) error {
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	return vm.pushContArgs(NewOrdCont(s, vm.cp), ncopy, more)
}

// returnArgs keeps the top n entries and moves the rest
// onto the stack of c0.
func (vm *Machine) returnArgs(n int) error {
	if err := vm.stack.Check(n); err != nil {
		return err
	}
	depth := vm.stack.Depth()
	if depth == n {
		return nil
	}
	top, err := vm.stack.SplitTop(n, 0)
	if err != nil {
		return err
	}
	c0 := vm.regs.c[0]
	if c0 == nil {
		return errors.WithDetail(ErrInvalidOpcode, "c0 is undefined")
	}
	k, err := vm.setContArgs(c0, depth-n, -1)
	if err != nil {
		return err
	}
	vm.regs.c[0] = k
	vm.stack = top
	return nil
}

func (vm *Machine) pushCtr(i int) {
	v := vm.regs.Get(i)
	if v == nil {
		v = Null{}
	}
	vm.stack.Push(v)
}

func (vm *Machine) popForcedCont() (Continuation, *ControlData, error) {
	k, err := vm.stack.PopCont()
	if err != nil {
		return nil, nil, err
	}
	k, d := forceCdata(k)
	return k, d, nil
}

// setContCtr pops x and a continuation and pushes the continuation
// with x saved for register i.
func (vm *Machine) setContCtr(i int) error {
	k, d, err := vm.popForcedCont()
	if err != nil {
		return err
	}
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if err := d.Save.Define(i, v); err != nil {
		return err
	}
	vm.stack.Push(k)
	return nil
}

// setSavedCtr pops x and saves it for register i in c(reg),
// which is c0 or c1.
func (vm *Machine) setSavedCtr(reg, i int) error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	cur := vm.regs.c[reg]
	if cur == nil {
		return errors.WithDetailf(ErrInvalidOpcode, "c%d is undefined", reg)
	}
	k, d := forceCdata(cur)
	if err := d.Save.Define(i, v); err != nil {
		return err
	}
	vm.regs.c[reg] = k
	return nil
}

// popSave sets c(i) to the popped value, saving the old value
// in c0 so that it comes back on return.
func (vm *Machine) popSave(i int) error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	old := vm.regs.Get(i)
	if i == 0 {
		k, ok := v.(Continuation)
		if !ok {
			return typeErr("continuation", v)
		}
		k, d := forceCdata(k)
		d.Save.defineCont(0, vm.regs.c[0])
		vm.regs.c[0] = k
		return nil
	}
	c0 := vm.regs.c[0]
	if c0 == nil {
		return errors.WithDetail(ErrInvalidOpcode, "c0 is undefined")
	}
	k, d := forceCdata(c0)
	if old != nil {
		if err := d.Save.Define(i, old); err != nil {
			return err
		}
	}
	if err := vm.regs.Set(i, v); err != nil {
		return err
	}
	vm.regs.c[0] = k
	return nil
}

// saveCtr saves the current c(i) in c(reg), which is c0 or c1.
func (vm *Machine) saveCtr(i, reg int) error {
	cur := vm.regs.c[reg]
	if cur == nil {
		return errors.WithDetailf(ErrInvalidOpcode, "c%d is undefined", reg)
	}
	v := vm.regs.Get(i)
	if v == nil {
		return errors.WithDetailf(ErrTypeCheck, "c%d is undefined", i)
	}
	k, d := forceCdata(cur)
	if err := d.Save.Define(i, v); err != nil {
		return err
	}
	vm.regs.c[reg] = k
	return nil
}

// compose pops c and c' and pushes c with c' as its
// return (c0) or alternative (c1) continuation.
func (vm *Machine) compose(c0, c1 bool) error {
	next, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	k, d, err := vm.popForcedCont()
	if err != nil {
		return err
	}
	if c0 {
		d.Save.defineCont(0, next)
	}
	if c1 {
		d.Save.defineCont(1, next)
	}
	vm.stack.Push(k)
	return nil
}
