package vm

import (
	"math"

	"github.com/mnill/tycho-vm/errors"
)

var loopOps = []opEntry{
	op("REPEAT", 0xE4, 8, loop(false, (*Machine).execRepeat)),
	op("REPEATEND", 0xE5, 8, loop(false, (*Machine).execRepeatEnd)),
	op("UNTIL", 0xE6, 8, loop(false, (*Machine).execUntil)),
	op("UNTILEND", 0xE7, 8, loop(false, (*Machine).execUntilEnd)),
	op("WHILE", 0xE8, 8, loop(false, (*Machine).execWhile)),
	op("WHILEEND", 0xE9, 8, loop(false, (*Machine).execWhileEnd)),
	op("AGAIN", 0xEA, 8, loop(false, (*Machine).execAgain)),
	op("AGAINEND", 0xEB, 8, loop(false, (*Machine).execAgainEnd)),
	op("REPEATBRK", 0xE314, 16, loop(true, (*Machine).execRepeat)),
	op("REPEATENDBRK", 0xE315, 16, loop(true, (*Machine).execRepeatEnd)),
	op("UNTILBRK", 0xE316, 16, loop(true, (*Machine).execUntil)),
	op("UNTILENDBRK", 0xE317, 16, loop(true, (*Machine).execUntilEnd)),
	op("WHILEBRK", 0xE318, 16, loop(true, (*Machine).execWhile)),
	op("WHILEENDBRK", 0xE319, 16, loop(true, (*Machine).execWhileEnd)),
	op("AGAINBRK", 0xE31A, 16, loop(true, (*Machine).execAgain)),
	op("AGAINENDBRK", 0xE31B, 16, loop(true, (*Machine).execAgainEnd)),
}

// loop adapts a loop handler. brk selects the forms that make c1
// leave the loop.
func loop(brk bool, f func(vm *Machine, brk bool) error) execFn {
	return func(vm *Machine, _ *Instruction) error { return f(vm, brk) }
}

// after returns the continuation a loop exits to: k, wrapped so
// that c1 leaves the loop if brk is set.
func (vm *Machine) after(brk bool, k Continuation) Continuation {
	if brk {
		return vm.c1Envelope(k, true)
	}
	return k
}

// endLoop captures the rest of the current code as a loop body
// that exits to c0.
func (vm *Machine) endLoop(brk bool) (body, after Continuation, err error) {
	after = vm.regs.c[0]
	if after == nil {
		return nil, nil, errors.WithDetail(ErrInvalidOpcode, "c0 is undefined")
	}
	body, err = vm.extractCC(0, -1, -1)
	if err != nil {
		return nil, nil, err
	}
	return body, vm.after(brk, after), nil
}

func (vm *Machine) popRepeatCount() (int64, error) {
	n, err := vm.stack.PopSmallInt(math.MinInt32, math.MaxInt32)
	return int64(n), err
}

func (vm *Machine) execRepeat(brk bool) error {
	body, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	n, err := vm.popRepeatCount()
	if err != nil || n <= 0 {
		return err
	}
	cc, err := vm.extractCC(saveC0, -1, -1)
	if err != nil {
		return err
	}
	return vm.repeat(body, vm.after(brk, cc), n)
}

func (vm *Machine) execRepeatEnd(brk bool) error {
	n, err := vm.popRepeatCount()
	if err != nil {
		return err
	}
	if n <= 0 {
		return vm.ret()
	}
	body, after, err := vm.endLoop(brk)
	if err != nil {
		return err
	}
	return vm.repeat(body, after, n)
}

func (vm *Machine) execUntil(brk bool) error {
	body, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	cc, err := vm.extractCC(saveC0, -1, -1)
	if err != nil {
		return err
	}
	return vm.until(body, vm.after(brk, cc))
}

func (vm *Machine) execUntilEnd(brk bool) error {
	body, after, err := vm.endLoop(brk)
	if err != nil {
		return err
	}
	return vm.until(body, after)
}

func (vm *Machine) execWhile(brk bool) error {
	body, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	cond, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	cc, err := vm.extractCC(saveC0, -1, -1)
	if err != nil {
		return err
	}
	return vm.loopWhile(cond, body, vm.after(brk, cc))
}

func (vm *Machine) execWhileEnd(brk bool) error {
	cond, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	body, after, err := vm.endLoop(brk)
	if err != nil {
		return err
	}
	return vm.loopWhile(cond, body, after)
}

func (vm *Machine) execAgain(brk bool) error {
	body, err := vm.stack.PopCont()
	if err != nil {
		return err
	}
	if brk {
		cc, err := vm.extractCC(saveC0|saveC1, -1, -1)
		if err != nil {
			return err
		}
		vm.regs.c[1] = cc
	}
	return vm.again(body)
}

func (vm *Machine) execAgainEnd(brk bool) error {
	if brk {
		vm.c1SaveSet()
	}
	body, err := vm.extractCC(0, -1, -1)
	if err != nil {
		return err
	}
	return vm.again(body)
}
