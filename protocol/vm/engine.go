package vm

import (
	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// Control transfer. Argument counts of -1 mean "not given".

// call enters k with a return continuation over the current code
// installed in c0.
func (vm *Machine) call(k Continuation) error {
	if d := k.controlData(); d != nil {
		if d.Save.c[0] != nil {
			return vm.jump(k)
		}
		if d.hasArgs() {
			return vm.callExt(k, -1, -1)
		}
	}
	ret := NewOrdCont(vm.code, vm.cp)
	ret.data.Save.c[0] = vm.regs.c[0]
	vm.regs.c[0] = ret
	vm.code = cell.Slice{}
	return vm.jumpTo(k)
}

func argsUnderflow(n int) error {
	return errors.WithDetailf(ErrStackUnderflow, "continuation needs %d arguments", n)
}

// callExt is call passing the top pass entries, or the whole stack,
// and making the return continuation expect retArgs values.
func (vm *Machine) callExt(k Continuation, pass, retArgs int) error {
	var (
		newStack *Stack
		c0       Continuation
	)
	if d := k.controlData(); d != nil {
		if d.Save.c[0] != nil {
			return vm.jumpExt(k, pass)
		}
		depth := vm.stack.Depth()
		if pass > depth || d.NArgs > depth {
			return argsUnderflow(max(pass, d.NArgs))
		}
		if pass >= 0 && d.NArgs > pass {
			return argsUnderflow(pass)
		}
		c0 = vm.regs.c[0]
		vm.regs.c[0] = nil

		ncopy, skip := -1, 0
		switch {
		case pass >= 0 && d.NArgs >= 0:
			ncopy, skip = d.NArgs, pass-d.NArgs
		case pass >= 0:
			ncopy = pass
		}

		switch {
		case d.Stack.Depth() > 0:
			if ncopy < 0 {
				ncopy = depth
			}
			newStack = d.Stack.Clone()
			if err := newStack.MoveFrom(vm.stack, ncopy); err != nil {
				return err
			}
			if err := vm.stack.Check(skip); err != nil {
				return err
			}
			vm.stack.drop(skip)
			if err := vm.gas.consumeStack(newStack.Depth()); err != nil {
				return err
			}
		case ncopy >= 0:
			s, err := vm.stack.SplitTop(ncopy, skip)
			if err != nil {
				return err
			}
			if err := vm.gas.consumeStack(s.Depth()); err != nil {
				return err
			}
			newStack = s
		default:
			newStack, vm.stack = vm.stack, new(Stack)
		}
	} else {
		if pass >= 0 {
			s, err := vm.stack.SplitTop(pass, 0)
			if err != nil {
				return err
			}
			if err := vm.gas.consumeStack(s.Depth()); err != nil {
				return err
			}
			newStack = s
		} else {
			newStack, vm.stack = vm.stack, new(Stack)
		}
		c0 = vm.regs.c[0]
		vm.regs.c[0] = nil
	}

	ret := &OrdCont{
		code: vm.code,
		data: ControlData{NArgs: retArgs, Stack: vm.stack, CP: vm.cp},
	}
	ret.data.Save.c[0] = c0
	vm.regs.c[0] = ret
	vm.stack = newStack
	vm.code = cell.Slice{}
	return vm.jumpTo(k)
}

// jump transfers control to k, discarding the current code.
func (vm *Machine) jump(k Continuation) error {
	if k.controlData().hasArgs() {
		return vm.jumpExt(k, -1)
	}
	return vm.jumpTo(k)
}

// jumpExt is jump passing only the top pass entries.
func (vm *Machine) jumpExt(k Continuation, pass int) error {
	k, err := vm.adjustJumpCont(k, pass)
	if err != nil {
		return err
	}
	return vm.jumpTo(k)
}

// adjustJumpCont arranges the stack for entering k: the top entries
// k expects move onto its own stack, if it has one, and the rest of
// the current stack is dropped.
func (vm *Machine) adjustJumpCont(k Continuation, pass int) (Continuation, error) {
	depth := vm.stack.Depth()
	d := k.controlData()
	if d == nil {
		if pass < 0 {
			return k, nil
		}
		if pass > depth {
			return nil, argsUnderflow(pass)
		}
		if pass < depth {
			vm.stack.DropBottom(depth - pass)
			if err := vm.gas.consumeStack(pass); err != nil {
				return nil, err
			}
		}
		return k, nil
	}

	if pass > depth || d.NArgs > depth {
		return nil, argsUnderflow(max(pass, d.NArgs))
	}
	if pass >= 0 && d.NArgs > pass {
		return nil, argsUnderflow(pass)
	}
	next := d.NArgs
	if next < 0 {
		next = pass
	}
	if next < 0 {
		next = depth
	}
	switch {
	case d.Stack.Depth() > 0:
		s := d.Stack.Clone()
		if err := s.MoveFrom(vm.stack, next); err != nil {
			return nil, err
		}
		if err := vm.gas.consumeStack(s.Depth()); err != nil {
			return nil, err
		}
		vm.stack = s
	case next < depth:
		vm.stack.DropBottom(depth - next)
		if err := vm.gas.consumeStack(next); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// jumpTo resumes k and whatever it chains to until control settles.
func (vm *Machine) jumpTo(k Continuation) error {
	for n := 0; ; n++ {
		next, err := k.resume(vm)
		if err != nil || next == nil {
			return err
		}
		if n >= freeNestedJumps {
			if err := vm.gas.consume(1); err != nil {
				return err
			}
		}
		if next.controlData().hasArgs() {
			next, err = vm.adjustJumpCont(next, -1)
			if err != nil {
				return err
			}
		}
		k = next
	}
}

func (vm *Machine) takeC0() (Continuation, error) {
	k := vm.regs.c[0]
	if k == nil {
		return nil, errors.WithDetail(ErrInvalidOpcode, "c0 is undefined")
	}
	vm.regs.c[0] = vm.quit0
	return k, nil
}

func (vm *Machine) takeC1() (Continuation, error) {
	k := vm.regs.c[1]
	if k == nil {
		return nil, errors.WithDetail(ErrInvalidOpcode, "c1 is undefined")
	}
	vm.regs.c[1] = vm.quit1
	return k, nil
}

func (vm *Machine) ret() error {
	k, err := vm.takeC0()
	if err != nil {
		return err
	}
	return vm.jump(k)
}

func (vm *Machine) retExt(n int) error {
	k, err := vm.takeC0()
	if err != nil {
		return err
	}
	return vm.jumpExt(k, n)
}

func (vm *Machine) retAlt() error {
	k, err := vm.takeC1()
	if err != nil {
		return err
	}
	return vm.jump(k)
}

func (vm *Machine) retAltExt(n int) error {
	k, err := vm.takeC1()
	if err != nil {
		return err
	}
	return vm.jumpExt(k, n)
}

// Register save masks for extractCC.
const (
	saveC0 = 1 << iota
	saveC1
	saveC2
)

// extractCC captures the current continuation. The new current stack
// holds the top stackCopy entries (all of them if stackCopy < 0) and
// the captured continuation keeps the rest.
func (vm *Machine) extractCC(mask, stackCopy, nargs int) (*OrdCont, error) {
	var newStack *Stack
	switch {
	case stackCopy == 0:
		newStack = new(Stack)
	case stackCopy > 0 && stackCopy != vm.stack.Depth():
		s, err := vm.stack.SplitTop(stackCopy, 0)
		if err != nil {
			return nil, err
		}
		if err := vm.gas.consumeStack(s.Depth()); err != nil {
			return nil, err
		}
		newStack = s
	default:
		newStack, vm.stack = vm.stack, new(Stack)
	}

	cc := &OrdCont{
		code: vm.code,
		data: ControlData{NArgs: nargs, Stack: vm.stack, CP: vm.cp},
	}
	vm.code = cell.Slice{}
	vm.stack = newStack
	if mask&saveC0 != 0 {
		cc.data.Save.c[0] = vm.regs.c[0]
		vm.regs.c[0] = vm.quit0
	}
	if mask&saveC1 != 0 {
		cc.data.Save.c[1] = vm.regs.c[1]
		vm.regs.c[1] = vm.quit1
	}
	if mask&saveC2 != 0 {
		cc.data.Save.c[2] = vm.regs.c[2]
		vm.regs.c[2] = nil
	}
	return cc, nil
}

func (vm *Machine) repeat(body, after Continuation, n int64) error {
	if n <= 0 {
		return vm.jump(after)
	}
	return vm.jump(&RepeatCont{count: n, body: body, after: after})
}

func (vm *Machine) until(body, after Continuation) error {
	if !hasC0(body) {
		vm.regs.c[0] = &UntilCont{body: body, after: after}
	}
	return vm.jump(body)
}

func (vm *Machine) loopWhile(cond, body, after Continuation) error {
	if !hasC0(cond) {
		vm.regs.c[0] = &WhileCont{checkCond: true, cond: cond, body: body, after: after}
	}
	return vm.jump(cond)
}

func (vm *Machine) again(body Continuation) error {
	return vm.jump(&AgainCont{body: body})
}

// c1Envelope installs k as c1, first making it restore the current
// c0 and c1 if save is set.
func (vm *Machine) c1Envelope(k Continuation, save bool) Continuation {
	if save {
		k2, d := forceCdata(k)
		d.Save.defineCont(0, vm.regs.c[0])
		d.Save.defineCont(1, vm.regs.c[1])
		k = k2
	}
	vm.regs.c[1] = k
	return k
}

// c1SaveSet makes c0 restore the current c1, then copies c0 to c1.
func (vm *Machine) c1SaveSet() {
	if c0 := vm.regs.c[0]; c0 != nil {
		k, d := forceCdata(c0)
		d.Save.defineCont(1, vm.regs.c[1])
		vm.regs.c[0] = k
	}
	vm.regs.c[1] = vm.regs.c[0]
}

// throwException enters the handler in c2 with the stack
// [param code]. The handler runs with the default c2 installed
// unless it restores its own.
func (vm *Machine) throwException(code int, param Value) error {
	if param == nil {
		param = NewInt(0)
	}
	vm.stack = NewStack(param, NewInt(int64(code)))
	vm.code = cell.Slice{}
	if err := vm.gas.consume(GasException); err != nil {
		return err
	}
	handler := vm.regs.c[2]
	if handler == nil {
		return errors.WithDetail(ErrInvalidOpcode, "c2 is undefined")
	}
	vm.regs.c[2] = vm.excQuit
	return vm.jump(handler)
}
