package vm

import "fmt"

var stackOps = []opEntry{
	op("NOP", 0x00, 8, execNop),
	op("SWAP", 0x01, 8, func(vm *Machine, _ *Instruction) error { return vm.stack.Swap(0, 1) }),
	opArgs("XCHG0", 0x0, 4, 4, func(vm *Machine, ins *Instruction) error {
		return vm.stack.Swap(0, ins.x)
	}).shows(showS),
	opArgs("XCHG", 0x10, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.stack.Swap(ins.x>>4, ins.x&15)
	}).checks(func(x int) bool { return x>>4 >= 1 && x>>4 < x&15 }).shows(showNibbles("s%d,s%d")),
	opArgs("XCHG0L", 0x11, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.stack.Swap(0, ins.x)
	}).shows(showS),
	opArgs("XCHG1", 0x1, 4, 4, func(vm *Machine, ins *Instruction) error {
		return vm.stack.Swap(1, ins.x)
	}).checks(func(x int) bool { return x >= 2 }).shows(showS),

	op("DUP", 0x20, 8, func(vm *Machine, _ *Instruction) error { return vm.push(0) }),
	op("OVER", 0x21, 8, func(vm *Machine, _ *Instruction) error { return vm.push(1) }),
	opArgs("PUSH", 0x2, 4, 4, func(vm *Machine, ins *Instruction) error {
		return vm.push(ins.x)
	}).shows(showS),
	op("DROP", 0x30, 8, func(vm *Machine, _ *Instruction) error { return vm.popTo(0) }),
	op("NIP", 0x31, 8, func(vm *Machine, _ *Instruction) error { return vm.popTo(1) }),
	opArgs("POP", 0x3, 4, 4, func(vm *Machine, ins *Instruction) error {
		return vm.popTo(ins.x)
	}).shows(showS),

	opArgs("XCHG3", 0x4, 4, 12, func(vm *Machine, ins *Instruction) error {
		return vm.xchg3(ins.x>>8, ins.x>>4&15, ins.x&15)
	}).shows(showNibbles("s%d,s%d,s%d")),
	opArgs("XCHG2", 0x50, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.xchg2(ins.x>>4, ins.x&15)
	}).shows(showNibbles("s%d,s%d")),
	opArgs("XCPU", 0x51, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.xcpu(ins.x>>4, ins.x&15)
	}).shows(showNibbles("s%d,s%d")),
	opArgs("PUXC", 0x52, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.puxc(ins.x>>4, ins.x&15)
	}).shows(showNibbles("s%d,s%d-1")),
	opArgs("PUSH2", 0x53, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.push2(ins.x>>4, ins.x&15)
	}).shows(showNibbles("s%d,s%d")),
	opArgs("XCHG3", 0x540, 12, 12, func(vm *Machine, ins *Instruction) error {
		return vm.xchg3(ins.x>>8, ins.x>>4&15, ins.x&15)
	}).shows(showNibbles("s%d,s%d,s%d")),
	opArgs("XC2PU", 0x541, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		return seq(vm.xchg2(i, j), func() error { return vm.push(k) })
	}).shows(showNibbles("s%d,s%d,s%d")),
	opArgs("XCPUXC", 0x542, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		return seq(vm.stack.Swap(1, i), func() error { return vm.puxc(j, k) })
	}).shows(showNibbles("s%d,s%d,s%d-1")),
	opArgs("XCPU2", 0x543, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		return seq(vm.stack.Swap(0, i), func() error { return vm.push2(j, k) })
	}).shows(showNibbles("s%d,s%d,s%d")),
	opArgs("PUXC2", 0x544, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		if err := vm.stack.Check(max(i+1, j, k, 2)); err != nil {
			return err
		}
		vm.push(i)
		vm.stack.Swap(0, 2)
		return vm.xchg2(j, k)
	}).shows(showNibbles("s%d,s%d-1,s%d-1")),
	opArgs("PUXCPU", 0x545, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		return seq(vm.puxc(i, j), func() error { return vm.push(k) })
	}).shows(showNibbles("s%d,s%d-1,s%d-1")),
	opArgs("PU2XC", 0x546, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		if err := vm.stack.Check(max(i+1, j, k-1)); err != nil {
			return err
		}
		vm.push(i)
		vm.stack.Swap(0, 1)
		return vm.puxc(j, k)
	}).shows(showNibbles("s%d,s%d-1,s%d-2")),
	opArgs("PUSH3", 0x547, 12, 12, func(vm *Machine, ins *Instruction) error {
		i, j, k := nibbles3(ins.x)
		return seq(vm.push(i), func() error { return vm.push2(j+1, k+1) })
	}).shows(showNibbles("s%d,s%d,s%d")),
	opArgs("BLKSWAP", 0x55, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.blkswap(ins.x>>4+1, ins.x&15+1)
	}).shows(showNibbles1("%d,%d")),
	opArgs("PUSH", 0x56, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.push(ins.x)
	}).shows(showS),
	opArgs("POP", 0x57, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.popTo(ins.x)
	}).shows(showS),

	op("ROT", 0x58, 8, func(vm *Machine, _ *Instruction) error { return vm.blkswap(1, 2) }),
	op("ROTREV", 0x59, 8, func(vm *Machine, _ *Instruction) error { return vm.blkswap(2, 1) }),
	op("SWAP2", 0x5A, 8, func(vm *Machine, _ *Instruction) error { return vm.blkswap(2, 2) }),
	op("DROP2", 0x5B, 8, func(vm *Machine, _ *Instruction) error { return vm.blkdrop(2) }),
	op("DUP2", 0x5C, 8, func(vm *Machine, _ *Instruction) error { return vm.blkpush(2, 1) }),
	op("OVER2", 0x5D, 8, func(vm *Machine, _ *Instruction) error { return vm.blkpush(2, 3) }),
	opArgs("REVERSE", 0x5E, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.reverse(ins.x>>4+2, ins.x&15)
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d,%d", ins.Name, ins.x>>4+2, ins.x&15)
	}),
	opArgs("BLKDROP", 0x5F0, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.blkdrop(ins.x)
	}).shows(showX),
	opArgs("BLKPUSH", 0x5F, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.blkpush(ins.x>>4, ins.x&15)
	}).shows(showNibbles("%d,%d")),

	op("PICK", 0x60, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.push(i)
	}),
	op("ROLLX", 0x61, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.blkswap(1, i)
	}),
	op("-ROLLX", 0x62, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.blkswap(i, 1)
	}),
	op("BLKSWX", 0x63, 8, func(vm *Machine, _ *Instruction) error {
		j, i, err := vm.pop2Small(0, 255)
		if err != nil {
			return err
		}
		return vm.blkswap(i, j)
	}),
	op("REVX", 0x64, 8, func(vm *Machine, _ *Instruction) error {
		j, i, err := vm.pop2Small(0, 255)
		if err != nil {
			return err
		}
		return vm.reverse(i, j)
	}),
	op("DROPX", 0x65, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.blkdrop(i)
	}),
	op("TUCK", 0x66, 8, func(vm *Machine, _ *Instruction) error {
		if err := vm.stack.Swap(0, 1); err != nil {
			return err
		}
		return vm.push(1)
	}),
	op("XCHGX", 0x67, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.stack.Swap(0, i)
	}),
	op("DEPTH", 0x68, 8, func(vm *Machine, _ *Instruction) error {
		vm.stack.pushInt64(int64(vm.stack.Depth()))
		return nil
	}),
	op("CHKDEPTH", 0x69, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		return vm.stack.Check(i)
	}),
	op("ONLYTOPX", 0x6A, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		if err := vm.stack.Check(i); err != nil {
			return err
		}
		if d := vm.stack.Depth(); d > i {
			vm.stack.DropBottom(d - i)
			return vm.gas.consumeStack(i)
		}
		return nil
	}),
	op("ONLYX", 0x6B, 8, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		if err := vm.stack.Check(i); err != nil {
			return err
		}
		vm.stack.drop(vm.stack.Depth() - i)
		return nil
	}),
	opArgs("BLKDROP2", 0x6C, 8, 8, func(vm *Machine, ins *Instruction) error {
		i, j := ins.x>>4, ins.x&15
		if err := vm.stack.Check(i + j); err != nil {
			return err
		}
		if err := vm.blkswap(i, j); err != nil {
			return err
		}
		return vm.blkdrop(i)
	}).checks(func(x int) bool { return x>>4 >= 1 }).shows(showNibbles("%d,%d")),
}

func execNop(*Machine, *Instruction) error { return nil }

func nibbles3(x int) (i, j, k int) { return x >> 8 & 15, x >> 4 & 15, x & 15 }

func showNibbles(format string) showFn {
	return func(ins *Instruction) string {
		var args []interface{}
		if ins.entry.argBits == 12 {
			i, j, k := nibbles3(ins.x)
			args = []interface{}{i, j, k}
		} else {
			args = []interface{}{ins.x >> 4, ins.x & 15}
		}
		return ins.Name + " " + fmt.Sprintf(format, args...)
	}
}

func showNibbles1(format string) showFn {
	return func(ins *Instruction) string {
		return ins.Name + " " + fmt.Sprintf(format, ins.x>>4+1, ins.x&15+1)
	}
}

// seq runs each step in turn until one fails.
func seq(err error, steps ...func() error) error {
	for _, next := range steps {
		if err != nil {
			break
		}
		err = next()
	}
	return err
}

// push pushes a copy of s(i).
func (vm *Machine) push(i int) error {
	v, err := vm.stack.Fetch(i)
	if err != nil {
		return err
	}
	vm.stack.Push(v)
	return nil
}

// popTo pops the top value into s(i-1) of the remaining stack.
func (vm *Machine) popTo(i int) error {
	if err := vm.stack.Check(i + 1); err != nil {
		return err
	}
	vm.stack.Swap(0, i)
	vm.stack.pop()
	return nil
}

func (vm *Machine) xchg2(i, j int) error {
	if err := vm.stack.Check(max(i, j, 1) + 1); err != nil {
		return err
	}
	vm.stack.Swap(1, i)
	vm.stack.Swap(0, j)
	return nil
}

func (vm *Machine) xchg3(i, j, k int) error {
	if err := vm.stack.Check(max(i, j, k, 2) + 1); err != nil {
		return err
	}
	vm.stack.Swap(2, i)
	vm.stack.Swap(1, j)
	vm.stack.Swap(0, k)
	return nil
}

func (vm *Machine) xcpu(i, j int) error {
	if err := vm.stack.Check(max(i, j) + 1); err != nil {
		return err
	}
	vm.stack.Swap(0, i)
	return vm.push(j)
}

// puxc is PUSH s(i); SWAP; XCHG s(j).
func (vm *Machine) puxc(i, j int) error {
	if err := vm.stack.Check(max(i+1, j)); err != nil {
		return err
	}
	vm.push(i)
	vm.stack.Swap(0, 1)
	return vm.stack.Swap(0, j)
}

func (vm *Machine) push2(i, j int) error {
	if err := vm.stack.Check(max(i, j) + 1); err != nil {
		return err
	}
	vm.push(i)
	return vm.push(j + 1)
}

// blkswap exchanges the block of i entries below the top j
// with those j entries.
func (vm *Machine) blkswap(i, j int) error {
	if err := vm.stack.Check(i + j); err != nil {
		return err
	}
	if i == 0 || j == 0 {
		return nil
	}
	items := vm.stack.items
	n := len(items)
	block := append([]Value(nil), items[n-i-j:n-j]...)
	copy(items[n-i-j:], items[n-j:])
	copy(items[n-i:], block)
	return nil
}

// reverse reverses the order of i entries starting at s(j).
func (vm *Machine) reverse(i, j int) error {
	if err := vm.stack.Check(i + j); err != nil {
		return err
	}
	items := vm.stack.items
	lo, hi := len(items)-j-i, len(items)-j-1
	for ; lo < hi; lo, hi = lo+1, hi-1 {
		items[lo], items[hi] = items[hi], items[lo]
	}
	return nil
}

func (vm *Machine) blkdrop(n int) error {
	if err := vm.stack.Check(n); err != nil {
		return err
	}
	vm.stack.drop(n)
	return nil
}

// blkpush pushes s(j) n times.
func (vm *Machine) blkpush(n, j int) error {
	if err := vm.stack.Check(j + 1); err != nil {
		return err
	}
	for ; n > 0; n-- {
		vm.push(j)
	}
	return nil
}

// pop2Small pops two small integers, the top one first.
func (vm *Machine) pop2Small(min, max int) (top, next int, err error) {
	top, err = vm.stack.PopSmallInt(min, max)
	if err != nil {
		return 0, 0, err
	}
	next, err = vm.stack.PopSmallInt(min, max)
	return top, next, err
}
