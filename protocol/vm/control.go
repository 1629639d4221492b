package vm

import (
	"fmt"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

var contOps = []opEntry{
	op("EXECUTE", 0xD8, 8, func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.call(k) })
	}),
	op("JMPX", 0xD9, 8, func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.jump(k) })
	}),
	opArgs("CALLXARGS", 0xDA, 8, 8, func(vm *Machine, ins *Instruction) error {
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.callExt(k, ins.x>>4, ins.x&15) })
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d,%d", ins.Name, ins.x>>4, ins.x&15) }),
	opArgs("CALLXARGS", 0xDB0, 12, 4, func(vm *Machine, ins *Instruction) error {
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.callExt(k, ins.x, -1) })
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d,-1", ins.Name, ins.x) }),
	opArgs("JMPXARGS", 0xDB1, 12, 4, func(vm *Machine, ins *Instruction) error {
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.jumpExt(k, ins.x) })
	}).shows(showX),
	opArgs("RETARGS", 0xDB2, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.retExt(ins.x)
	}).shows(showX),
	op("RET", 0xDB30, 16, func(vm *Machine, _ *Instruction) error { return vm.ret() }),
	op("RETALT", 0xDB31, 16, func(vm *Machine, _ *Instruction) error { return vm.retAlt() }),
	op("BRANCH", 0xDB32, 16, func(vm *Machine, _ *Instruction) error {
		f, err := vm.stack.PopBool()
		if err != nil {
			return err
		}
		if f {
			return vm.ret()
		}
		return vm.retAlt()
	}),
	op("CALLCC", 0xDB34, 16, func(vm *Machine, _ *Instruction) error {
		return vm.callCC(-1, -1)
	}),
	op("JMPXDATA", 0xDB35, 16, func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopCont()
		if err != nil {
			return err
		}
		vm.stack.Push(vm.code)
		return vm.jump(k)
	}),
	opArgs("CALLCCARGS", 0xDB36, 16, 8, func(vm *Machine, ins *Instruction) error {
		return vm.callCC(ins.x>>4, (ins.x+1)&15-1)
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d,%d", ins.Name, ins.x>>4, (ins.x+1)&15-1)
	}),
	op("CALLXVARARGS", 0xDB38, 16, func(vm *Machine, _ *Instruction) error {
		pass, ret, err := vm.popArgCounts(true)
		if err != nil {
			return err
		}
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.callExt(k, pass, ret) })
	}),
	op("RETVARARGS", 0xDB39, 16, func(vm *Machine, _ *Instruction) error {
		n, err := vm.stack.PopSmallInt(-1, 254)
		return seq(err, func() error { return vm.retExt(n) })
	}),
	op("JMPXVARARGS", 0xDB3A, 16, func(vm *Machine, _ *Instruction) error {
		pass, _, err := vm.popArgCounts(false)
		if err != nil {
			return err
		}
		k, err := vm.stack.PopCont()
		return seq(err, func() error { return vm.jumpExt(k, pass) })
	}),
	op("CALLCCVARARGS", 0xDB3B, 16, func(vm *Machine, _ *Instruction) error {
		pass, ret, err := vm.popArgCounts(true)
		return seq(err, func() error { return vm.callCC(pass, ret) })
	}),
	op("CALLREF", 0xDB3C, 16, func(vm *Machine, ins *Instruction) error {
		k, err := vm.refToCont(ins.ref)
		return seq(err, func() error { return vm.call(k) })
	}).decodes(decodeRef).shows(showRef),
	op("JMPREF", 0xDB3D, 16, func(vm *Machine, ins *Instruction) error {
		k, err := vm.refToCont(ins.ref)
		return seq(err, func() error { return vm.jump(k) })
	}).decodes(decodeRef).shows(showRef),
	op("JMPREFDATA", 0xDB3E, 16, func(vm *Machine, ins *Instruction) error {
		k, err := vm.refToCont(ins.ref)
		if err != nil {
			return err
		}
		vm.stack.Push(vm.code)
		return vm.jump(k)
	}).decodes(decodeRef).shows(showRef),
	op("RETDATA", 0xDB3F, 16, func(vm *Machine, _ *Instruction) error {
		vm.stack.Push(vm.code)
		return vm.ret()
	}),

	op("IFRET", 0xDC, 8, condRet(true, (*Machine).ret)),
	op("IFNOTRET", 0xDD, 8, condRet(false, (*Machine).ret)),
	op("IF", 0xDE, 8, condCont(true, (*Machine).call)),
	op("IFNOT", 0xDF, 8, condCont(false, (*Machine).call)),
	op("IFJMP", 0xE0, 8, condCont(true, (*Machine).jump)),
	op("IFNOTJMP", 0xE1, 8, condCont(false, (*Machine).jump)),
	op("IFELSE", 0xE2, 8, func(vm *Machine, _ *Instruction) error {
		other, err := vm.stack.PopCont()
		if err != nil {
			return err
		}
		k, err := vm.stack.PopCont()
		if err != nil {
			return err
		}
		f, err := vm.stack.PopBool()
		if err != nil {
			return err
		}
		if !f {
			k = other
		}
		return vm.call(k)
	}),
	op("IFREF", 0xE300, 16, condRef(true, (*Machine).call)).decodes(decodeRef).shows(showRef),
	op("IFNOTREF", 0xE301, 16, condRef(false, (*Machine).call)).decodes(decodeRef).shows(showRef),
	op("IFJMPREF", 0xE302, 16, condRef(true, (*Machine).jump)).decodes(decodeRef).shows(showRef),
	op("IFNOTJMPREF", 0xE303, 16, condRef(false, (*Machine).jump)).decodes(decodeRef).shows(showRef),
	op("CONDSEL", 0xE304, 16, func(vm *Machine, _ *Instruction) error {
		return vm.condSel(false)
	}),
	op("CONDSELCHK", 0xE305, 16, func(vm *Machine, _ *Instruction) error {
		return vm.condSel(true)
	}),
	op("IFRETALT", 0xE308, 16, condRet(true, (*Machine).retAlt)),
	op("IFNOTRETALT", 0xE309, 16, condRet(false, (*Machine).retAlt)),
	op("IFREFELSE", 0xE30D, 16, func(vm *Machine, ins *Instruction) error {
		return vm.ifElseRef(ins.ref, nil)
	}).decodes(decodeRef).shows(showRef),
	op("IFELSEREF", 0xE30E, 16, func(vm *Machine, ins *Instruction) error {
		return vm.ifElseRef(nil, ins.ref)
	}).decodes(decodeRef).shows(showRef),
	op("IFREFELSEREF", 0xE30F, 16, func(vm *Machine, ins *Instruction) error {
		return vm.ifElseRef(ins.ref, ins.ref2)
	}).decodes(decodeRefs2).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s (%s) (%s)", ins.Name, ins.ref, ins.ref2)
	}),
	opArgs("IFBITJMP", 0x71C, 11, 5, func(vm *Machine, ins *Instruction) error {
		return vm.ifBitJmp(ins.x, true, nil)
	}).shows(showX),
	opArgs("IFNBITJMP", 0x71D, 11, 5, func(vm *Machine, ins *Instruction) error {
		return vm.ifBitJmp(ins.x, false, nil)
	}).shows(showX),
	opArgs("IFBITJMPREF", 0x71E, 11, 5, func(vm *Machine, ins *Instruction) error {
		return vm.ifBitJmp(ins.x, true, ins.ref)
	}).decodes(decodeRef).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d (%s)", ins.Name, ins.x, ins.ref)
	}),
	opArgs("IFNBITJMPREF", 0x71F, 11, 5, func(vm *Machine, ins *Instruction) error {
		return vm.ifBitJmp(ins.x, false, ins.ref)
	}).decodes(decodeRef).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d (%s)", ins.Name, ins.x, ins.ref)
	}),
}

var dictCallOps = []opEntry{
	opArgs("CALLDICT", 0xF0, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.callDict(ins.x, (*Machine).call)
	}).shows(showX),
	opArgs("CALLDICT", 0x3C4, 10, 14, func(vm *Machine, ins *Instruction) error {
		return vm.callDict(ins.x, (*Machine).call)
	}).shows(showX),
	opArgs("JMPDICT", 0x3C5, 10, 14, func(vm *Machine, ins *Instruction) error {
		return vm.callDict(ins.x, (*Machine).jump)
	}).shows(showX),
	opArgs("PREPAREDICT", 0x3C6, 10, 14, func(vm *Machine, ins *Instruction) error {
		k, err := vm.c3()
		if err != nil {
			return err
		}
		vm.stack.pushInt64(int64(ins.x))
		vm.stack.Push(k)
		return nil
	}).shows(showX),
}

// popArgCounts pops a return count, if withRet is set, and below
// it a pass count, both in [-1, 254].
func (vm *Machine) popArgCounts(withRet bool) (pass, ret int, err error) {
	ret = -1
	if withRet {
		if ret, err = vm.stack.PopSmallInt(-1, 254); err != nil {
			return 0, 0, err
		}
	}
	if pass, err = vm.stack.PopSmallInt(-1, 254); err != nil {
		return 0, 0, err
	}
	return pass, ret, nil
}

// callCC jumps to the popped continuation with the current one,
// saving c0 and c1, pushed as its argument.
func (vm *Machine) callCC(pass, ret int) error {
	k, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	cc, err := vm.extractCC(saveC0|saveC1, pass, ret)
	if err != nil {
		return err
	}
	vm.stack.Push(cc)
	return vm.jump(k)
}

type transferFn func(vm *Machine, k Continuation) error

func condRet(want bool, f func(vm *Machine) error) execFn {
	return func(vm *Machine, _ *Instruction) error {
		b, err := vm.stack.PopBool()
		if err != nil || b != want {
			return err
		}
		return f(vm)
	}
}

func condCont(want bool, f transferFn) execFn {
	return func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopCont()
		if err != nil {
			return err
		}
		b, err := vm.stack.PopBool()
		if err != nil || b != want {
			return err
		}
		return f(vm, k)
	}
}

func condRef(want bool, f transferFn) execFn {
	return func(vm *Machine, ins *Instruction) error {
		b, err := vm.stack.PopBool()
		if err != nil || b != want {
			return err
		}
		k, err := vm.refToCont(ins.ref)
		if err != nil {
			return err
		}
		return f(vm, k)
	}
}

// condSel pops f x y and pushes x if f is nonzero, y otherwise.
// With check set, x and y must have the same type.
func (vm *Machine) condSel(check bool) error {
	if err := vm.stack.Check(3); err != nil {
		return err
	}
	y, x := vm.stack.pop(), vm.stack.pop()
	f, err := vm.stack.PopBool()
	if err != nil {
		return err
	}
	if check && !sameType(x, y) {
		return errors.WithDetailf(ErrTypeCheck, "%s and %s differ in type", typeName(x), typeName(y))
	}
	if f {
		vm.stack.Push(x)
	} else {
		vm.stack.Push(y)
	}
	return nil
}

// ifElseRef calls one of two continuations; a nil cell stands for
// the continuation popped from the stack.
func (vm *Machine) ifElseRef(then, els *cell.Cell) error {
	var k Continuation
	if then == nil || els == nil {
		var err error
		if k, err = vm.stack.PopCont(); err != nil {
			return err
		}
	}
	f, err := vm.stack.PopBool()
	if err != nil {
		return err
	}
	ref := els
	if f {
		ref = then
	}
	if ref != nil {
		if k, err = vm.refToCont(ref); err != nil {
			return err
		}
	}
	return vm.call(k)
}

// ifBitJmp jumps if bit n of the integer below the continuation
// (or on top, for a ref form) equals want. The integer stays.
func (vm *Machine) ifBitJmp(n int, want bool, ref *cell.Cell) error {
	var k Continuation
	if ref == nil {
		var err error
		if k, err = vm.stack.PopCont(); err != nil {
			return err
		}
	}
	x, err := vm.stack.PopFiniteInt()
	if err != nil {
		return err
	}
	vm.stack.Push(x)
	if (x.v.Bit(n) == 1) != want {
		return nil
	}
	if ref != nil {
		if k, err = vm.refToCont(ref); err != nil {
			return err
		}
	}
	return vm.jump(k)
}

func (vm *Machine) c3() (Continuation, error) {
	k := vm.regs.c[3]
	if k == nil {
		return nil, errors.WithDetail(ErrInvalidOpcode, "c3 is undefined")
	}
	return k, nil
}

// callDict pushes n and transfers to c3.
func (vm *Machine) callDict(n int, f transferFn) error {
	k, err := vm.c3()
	if err != nil {
		return err
	}
	vm.stack.pushInt64(int64(n))
	return f(vm, k)
}
