package vm

// Dictionary roots are stored as Maybe ^Cell: one bit, then a
// reference if the bit is set. An empty dictionary is null.
var dictOps = []opEntry{
	op("STDICT", 0xF400, 16, func(vm *Machine, _ *Instruction) error {
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		d, err := vm.stack.PopMaybeCell()
		if err != nil {
			return err
		}
		refs := 0
		if d != nil {
			refs = 1
		}
		if !b.CanExtendBy(1, refs) {
			return ErrCellOverflow
		}
		b = b.Clone()
		if d == nil {
			b.StoreUint(0, 1)
		} else {
			b.StoreUint(1, 1)
			b.StoreRef(d)
		}
		vm.stack.Push(b)
		return nil
	}),
	op("SKIPDICT", 0xF401, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictSkip, loadFlags{})
	}),
	op("LDDICTS", 0xF402, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictSlice, loadFlags{})
	}),
	op("PLDDICTS", 0xF403, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictSlice, loadFlags{preload: true})
	}),
	op("LDDICT", 0xF404, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictCell, loadFlags{})
	}),
	op("PLDDICT", 0xF405, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictCell, loadFlags{preload: true})
	}),
	op("LDDICTQ", 0xF406, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictCell, loadFlags{quiet: true})
	}),
	op("PLDDICTQ", 0xF407, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadDict(dictCell, loadFlags{preload: true, quiet: true})
	}),
}

type dictResult int

const (
	dictSkip dictResult = iota
	dictSlice
	dictCell
)

func (vm *Machine) loadDict(res dictResult, f loadFlags) error {
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	bit, err := s.PreloadUint(1)
	if err != nil {
		return vm.loadFailed(f, s, ErrCellUnderflow)
	}
	refs := int(bit)
	rest := s
	root, err := rest.LoadSlice(1, refs)
	if err != nil {
		return vm.loadFailed(f, s, ErrCellUnderflow)
	}
	switch res {
	case dictSkip:
		vm.loaded(f, rest)
	case dictSlice:
		vm.loaded(f, rest, root)
	default:
		var v Value = Null{}
		if refs == 1 {
			c, _ := root.PreloadRef(0)
			v = c
		}
		vm.loaded(f, rest, v)
	}
	return nil
}
