package vm

import (
	"fmt"

	"github.com/mnill/tycho-vm/errors"
)

var tupleOps = []opEntry{
	op("NULL", 0x6D, 8, func(vm *Machine, _ *Instruction) error {
		vm.stack.Push(Null{})
		return nil
	}),
	op("ISNULL", 0x6E, 8, func(vm *Machine, _ *Instruction) error {
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		_, isNull := v.(Null)
		vm.stack.pushBool(isNull)
		return nil
	}),
	opArgs("TUPLE", 0x6F0, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.mkTuple(ins.x)
	}).shows(showX),
	opArgs("INDEX", 0x6F1, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.index(ins.x)
	}).shows(showX),
	opArgs("UNTUPLE", 0x6F2, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.untuple(ins.x)
	}).shows(showX),
	opArgs("UNPACKFIRST", 0x6F3, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.unpackFirst(ins.x)
	}).shows(showX),
	opArgs("EXPLODE", 0x6F4, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.explode(ins.x)
	}).shows(showX),
	opArgs("SETINDEX", 0x6F5, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.setIndex(ins.x)
	}).shows(showX),
	opArgs("INDEXQ", 0x6F6, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.indexQ(ins.x)
	}).shows(showX),
	opArgs("SETINDEXQ", 0x6F7, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.setIndexQ(ins.x)
	}).shows(showX),

	op("TUPLEVAR", 0x6F80, 16, varArg(0, MaxTupleLen, (*Machine).mkTuple)),
	op("INDEXVAR", 0x6F81, 16, varArg(0, MaxTupleLen-1, (*Machine).index)),
	op("UNTUPLEVAR", 0x6F82, 16, varArg(0, MaxTupleLen, (*Machine).untuple)),
	op("UNPACKFIRSTVAR", 0x6F83, 16, varArg(0, MaxTupleLen, (*Machine).unpackFirst)),
	op("EXPLODEVAR", 0x6F84, 16, varArg(0, MaxTupleLen, (*Machine).explode)),
	op("SETINDEXVAR", 0x6F85, 16, varArg(0, MaxTupleLen-1, (*Machine).setIndex)),
	op("INDEXVARQ", 0x6F86, 16, varArg(0, MaxTupleLen-1, (*Machine).indexQ)),
	op("SETINDEXVARQ", 0x6F87, 16, varArg(0, MaxTupleLen-1, (*Machine).setIndexQ)),
	op("TLEN", 0x6F88, 16, func(vm *Machine, _ *Instruction) error {
		t, err := vm.stack.PopTuple(MaxTupleLen)
		if err != nil {
			return err
		}
		vm.stack.pushInt64(int64(len(t)))
		return nil
	}),
	op("QTLEN", 0x6F89, 16, func(vm *Machine, _ *Instruction) error {
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		n := int64(-1)
		if t, ok := v.(Tuple); ok {
			n = int64(len(t))
		}
		vm.stack.pushInt64(n)
		return nil
	}),
	op("ISTUPLE", 0x6F8A, 16, func(vm *Machine, _ *Instruction) error {
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		_, ok := v.(Tuple)
		vm.stack.pushBool(ok)
		return nil
	}),
	op("LAST", 0x6F8B, 16, func(vm *Machine, _ *Instruction) error {
		t, err := vm.stack.PopTuple(MaxTupleLen)
		if err != nil {
			return err
		}
		if len(t) == 0 {
			return errors.WithDetail(ErrTypeCheck, "empty tuple")
		}
		vm.stack.Push(t[len(t)-1])
		return nil
	}),
	op("TPUSH", 0x6F8C, 16, func(vm *Machine, _ *Instruction) error {
		x, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		t, err := vm.stack.PopTuple(MaxTupleLen - 1)
		if err != nil {
			return err
		}
		t2 := append(append(make(Tuple, 0, len(t)+1), t...), x)
		vm.stack.Push(t2)
		return vm.gas.consumeTuple(len(t2))
	}),
	op("TPOP", 0x6F8D, 16, func(vm *Machine, _ *Instruction) error {
		t, err := vm.stack.PopTuple(MaxTupleLen)
		if err != nil {
			return err
		}
		if len(t) == 0 {
			return errors.WithDetail(ErrTypeCheck, "empty tuple")
		}
		n := len(t) - 1
		vm.stack.Push(append(Tuple(nil), t[:n]...))
		vm.stack.Push(t[n])
		return vm.gas.consumeTuple(n)
	}),

	op("NULLSWAPIF", 0x6FA0, 16, nullSwap(true, 0, 1)),
	op("NULLSWAPIFNOT", 0x6FA1, 16, nullSwap(false, 0, 1)),
	op("NULLROTRIF", 0x6FA2, 16, nullSwap(true, 1, 1)),
	op("NULLROTRIFNOT", 0x6FA3, 16, nullSwap(false, 1, 1)),
	op("NULLSWAPIF2", 0x6FA4, 16, nullSwap(true, 0, 2)),
	op("NULLSWAPIFNOT2", 0x6FA5, 16, nullSwap(false, 0, 2)),
	op("NULLROTRIF2", 0x6FA6, 16, nullSwap(true, 1, 2)),
	op("NULLROTRIFNOT2", 0x6FA7, 16, nullSwap(false, 1, 2)),

	opArgs("INDEX2", 0x6FB, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.indexPath(ins.x>>2, ins.x&3)
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d,%d", ins.Name, ins.x>>2, ins.x&3)
	}),
	opArgs("INDEX3", 0x6FC>>2, 10, 6, func(vm *Machine, ins *Instruction) error {
		return vm.indexPath(ins.x>>4, ins.x>>2&3, ins.x&3)
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d,%d,%d", ins.Name, ins.x>>4, ins.x>>2&3, ins.x&3)
	}),
}

// varArg adapts a tuple operation to take its operand from the stack.
func varArg(min, max int, f func(vm *Machine, n int) error) execFn {
	return func(vm *Machine, _ *Instruction) error {
		n, err := vm.stack.PopSmallInt(min, max)
		if err != nil {
			return err
		}
		return f(vm, n)
	}
}

func indexRange(t Tuple, i int) error {
	return errors.WithDetailf(ErrRangeCheck, "index %d out of range for tuple of %d", i, len(t))
}

func (vm *Machine) mkTuple(n int) error {
	if err := vm.stack.Check(n); err != nil {
		return err
	}
	items := vm.stack.items
	t := append(Tuple(nil), items[len(items)-n:]...)
	vm.stack.drop(n)
	vm.stack.Push(t)
	return vm.gas.consumeTuple(n)
}

func (vm *Machine) index(i int) error {
	t, err := vm.stack.PopTuple(MaxTupleLen)
	if err != nil {
		return err
	}
	if i >= len(t) {
		return indexRange(t, i)
	}
	vm.stack.Push(t[i])
	return nil
}

func (vm *Machine) indexPath(path ...int) error {
	t, err := vm.stack.PopTuple(MaxTupleLen)
	if err != nil {
		return err
	}
	var v Value = t
	for _, i := range path {
		t, ok := v.(Tuple)
		if !ok {
			return typeErr("tuple", v)
		}
		if i >= len(t) {
			return indexRange(t, i)
		}
		v = t[i]
	}
	vm.stack.Push(v)
	return nil
}

func (vm *Machine) untuple(n int) error {
	if err := vm.stack.Check(1); err != nil {
		return err
	}
	if t, ok := vm.stack.at(0).(Tuple); ok && len(t) != n {
		return errors.WithDetailf(ErrTypeCheck, "expected a tuple of %d entries, got %d", n, len(t))
	}
	t, err := vm.stack.PopTuple(n)
	if err != nil {
		return err
	}
	for _, v := range t {
		vm.stack.Push(v)
	}
	return vm.gas.consumeTuple(n)
}

func (vm *Machine) unpackFirst(n int) error {
	if err := vm.stack.Check(1); err != nil {
		return err
	}
	if t, ok := vm.stack.at(0).(Tuple); ok && len(t) < n {
		return errors.WithDetailf(ErrTypeCheck, "expected a tuple of at least %d entries, got %d", n, len(t))
	}
	t, err := vm.stack.PopTuple(MaxTupleLen)
	if err != nil {
		return err
	}
	for _, v := range t[:n] {
		vm.stack.Push(v)
	}
	return vm.gas.consumeTuple(n)
}

func (vm *Machine) explode(n int) error {
	t, err := vm.stack.PopTuple(n)
	if err != nil {
		return err
	}
	for _, v := range t {
		vm.stack.Push(v)
	}
	vm.stack.pushInt64(int64(len(t)))
	return vm.gas.consumeTuple(len(t))
}

func (vm *Machine) setIndex(i int) error {
	x, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	t, err := vm.stack.PopTuple(MaxTupleLen)
	if err != nil {
		return err
	}
	if i >= len(t) {
		return indexRange(t, i)
	}
	vm.stack.Push(t.with(i, x))
	return vm.gas.consumeTuple(len(t))
}

func (vm *Machine) indexQ(i int) error {
	t, _, err := vm.stack.PopMaybeTuple(MaxTupleLen)
	if err != nil {
		return err
	}
	if i >= len(t) {
		vm.stack.Push(Null{})
		return nil
	}
	vm.stack.Push(t[i])
	return nil
}

func (vm *Machine) setIndexQ(i int) error {
	x, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	t, ok, err := vm.stack.PopMaybeTuple(MaxTupleLen)
	if err != nil {
		return err
	}
	if i >= MaxTupleLen {
		return indexRange(t, i)
	}
	if _, isNull := x.(Null); isNull && i >= len(t) {
		if ok {
			vm.stack.Push(t)
		} else {
			vm.stack.Push(Null{})
		}
		return nil
	}
	t2 := t.with(i, x)
	vm.stack.Push(t2)
	return vm.gas.consumeTuple(len(t2))
}

// nullSwap returns a handler that pops an integer and, if it is
// nonzero (or zero when onTrue is unset), inserts count nulls below
// the top depth entries before pushing it back.
func nullSwap(onTrue bool, depth, count int) execFn {
	return func(vm *Machine, _ *Instruction) error {
		if err := vm.stack.Check(depth + 1); err != nil {
			return err
		}
		x, err := vm.stack.PopFiniteInt()
		if err != nil {
			return err
		}
		if (x.v.Sign() != 0) == onTrue {
			for i := 0; i < count; i++ {
				vm.stack.Push(Null{})
				vm.blkswap(depth, 1)
			}
		}
		vm.stack.Push(x)
		return nil
	}
}
