package vm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

var buildOps = []opEntry{
	op("NEWC", 0xC8, 8, func(vm *Machine, _ *Instruction) error {
		vm.stack.Push(cell.NewBuilder())
		return nil
	}),
	op("ENDC", 0xC9, 8, func(vm *Machine, _ *Instruction) error {
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		c, err := vm.createCell(b)
		if err != nil {
			return err
		}
		vm.stack.Push(c)
		return nil
	}),
	opArgs("STI", 0xCA, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.storeInt(ins.x+1, storeFlags{signed: true})
	}).shows(showX1),
	opArgs("STU", 0xCB, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.storeInt(ins.x+1, storeFlags{})
	}).shows(showX1),
	op("STREF", 0xCC, 8, func(vm *Machine, _ *Instruction) error {
		return vm.store(storeRef, storeFlags{})
	}),
	op("STBREFR", 0xCD, 8, func(vm *Machine, _ *Instruction) error {
		return vm.store(storeBuilderRef, storeFlags{rev: true})
	}),
	op("STSLICE", 0xCE, 8, func(vm *Machine, _ *Instruction) error {
		return vm.store(storeSlice, storeFlags{})
	}),

	opArgs("STIX", 0xCF0<<1, 13, 3, func(vm *Machine, ins *Instruction) error {
		f := storeFlagsOf(ins.x)
		limit := 256
		if f.signed {
			limit = 257
		}
		n, err := vm.stack.PopSmallInt(0, limit)
		if err != nil {
			return err
		}
		return vm.storeInt(n, f)
	}).shows(func(ins *Instruction) string { return storeIntName(ins.x, "X") }),
	opArgs("STI", 0xCF0<<1|1, 13, 11, func(vm *Machine, ins *Instruction) error {
		return vm.storeInt(ins.x&255+1, storeFlagsOf(ins.x>>8))
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d", storeIntName(ins.x>>8, ""), ins.x&255+1)
	}),
	opArgs("STREF", 0xCF1, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.store(storeKind(ins.x&3), storeFlags{rev: ins.x&4 != 0, quiet: ins.x&8 != 0})
	}).shows(func(ins *Instruction) string {
		name := [...]string{"STREF", "STBREF", "STSLICE", "STB"}[ins.x&3]
		if ins.x&4 != 0 {
			name += "R"
		}
		if ins.x&8 != 0 {
			name += "Q"
		}
		return name
	}),
	op("STREFCONST", 0xCF20, 16, func(vm *Machine, ins *Instruction) error {
		return vm.storeConstRefs(ins.ref)
	}).decodes(decodeRef).shows(showRef),
	op("STREF2CONST", 0xCF21, 16, func(vm *Machine, ins *Instruction) error {
		return vm.storeConstRefs(ins.ref, ins.ref2)
	}).decodes(decodeRefs2).shows(showRef),
	op("ENDXC", 0xCF23, 16, func(vm *Machine, _ *Instruction) error {
		exotic, err := vm.stack.PopBool()
		if err != nil {
			return err
		}
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		if err := vm.gas.consume(GasCellCreate); err != nil {
			return err
		}
		var c *cell.Cell
		if exotic {
			c, err = b.EndExotic()
		} else {
			c, err = b.Build()
		}
		if err != nil {
			return err
		}
		vm.stack.Push(c)
		return nil
	}),
	opArgs("STILE4", 0xCF28>>2, 14, 2, func(vm *Machine, ins *Instruction) error {
		return vm.storeLE(ins.x)
	}).shows(func(ins *Instruction) string {
		return [...]string{"STILE4", "STULE4", "STILE8", "STULE8"}[ins.x]
	}),

	op("BDEPTH", 0xCF30, 16, builderInfo(func(b *cell.Builder) []int { return []int{b.Depth()} })),
	op("BBITS", 0xCF31, 16, builderInfo(func(b *cell.Builder) []int { return []int{b.BitLen()} })),
	op("BREFS", 0xCF32, 16, builderInfo(func(b *cell.Builder) []int { return []int{b.RefLen()} })),
	op("BBITREFS", 0xCF33, 16, builderInfo(func(b *cell.Builder) []int { return []int{b.BitLen(), b.RefLen()} })),
	op("BREMBITS", 0xCF35, 16, builderInfo(func(b *cell.Builder) []int { return []int{b.RemainingBits()} })),
	op("BREMREFS", 0xCF36, 16, builderInfo(func(b *cell.Builder) []int { return []int{b.RemainingRefs()} })),
	op("BREMBITREFS", 0xCF37, 16, builderInfo(func(b *cell.Builder) []int {
		return []int{b.RemainingBits(), b.RemainingRefs()}
	})),
	opArgs("BCHKBITS", 0xCF38, 16, 8, func(vm *Machine, ins *Instruction) error {
		return vm.checkBuilder(ins.x+1, 0, false)
	}).shows(showX1),
	op("BCHKBITS", 0xCF39, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkBuilder(-1, 0, false)
	}),
	op("BCHKREFS", 0xCF3A, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkBuilder(0, -1, false)
	}),
	op("BCHKBITREFS", 0xCF3B, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkBuilder(-1, -1, false)
	}),
	opArgs("BCHKBITSQ", 0xCF3C, 16, 8, func(vm *Machine, ins *Instruction) error {
		return vm.checkBuilder(ins.x+1, 0, true)
	}).shows(showX1),
	op("BCHKBITSQ", 0xCF3D, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkBuilder(-1, 0, true)
	}),
	op("BCHKREFSQ", 0xCF3E, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkBuilder(0, -1, true)
	}),
	op("BCHKBITREFSQ", 0xCF3F, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkBuilder(-1, -1, true)
	}),
	op("STZEROES", 0xCF40, 16, func(vm *Machine, _ *Instruction) error {
		return vm.storeSame(false, false)
	}),
	op("STONES", 0xCF41, 16, func(vm *Machine, _ *Instruction) error {
		return vm.storeSame(true, false)
	}),
	op("STSAME", 0xCF42, 16, func(vm *Machine, _ *Instruction) error {
		return vm.storeSame(false, true)
	}),
	opArgs("STSLICECONST", 0xCF8>>3, 9, 5, func(vm *Machine, ins *Instruction) error {
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		if !b.CanExtendBy(ins.data.BitsLeft(), ins.data.RefsLeft()) {
			return ErrCellOverflow
		}
		b = b.Clone()
		b.StoreSlice(ins.data)
		vm.stack.Push(b)
		return nil
	}).decodes(func(ins *Instruction, code *cell.Slice) error {
		return decodeSlice(ins, code, 8*(ins.x&7)+2, ins.x>>3, true)
	}).shows(showSlice),
}

// createCell finalizes b, charging for the new cell.
func (vm *Machine) createCell(b *cell.Builder) (*cell.Cell, error) {
	if err := vm.gas.consume(GasCellCreate); err != nil {
		return nil, err
	}
	return b.Build()
}

type storeFlags struct {
	signed bool
	rev    bool // the builder is above the value
	quiet  bool
}

// storeFlagsOf reads the CF0x flag bits: 4 quiet, 2 reversed
// operands, 1 unsigned.
func storeFlagsOf(x int) storeFlags {
	return storeFlags{signed: x&1 == 0, rev: x&2 != 0, quiet: x&4 != 0}
}

func storeIntName(x int, suffix string) string {
	f := storeFlagsOf(x)
	name := "STI"
	if !f.signed {
		name = "STU"
	}
	name += suffix
	if f.rev {
		name += "R"
	}
	if f.quiet {
		name += "Q"
	}
	return name
}

// popStoreArgs pops a value and a builder in the order given by rev,
// returning them with a function that pushes them back unchanged.
func (vm *Machine) popStoreArgs(rev bool, popValue func() (Value, error)) (Value, *cell.Builder, func(), error) {
	var (
		v   Value
		b   *cell.Builder
		err error
	)
	if rev {
		if v, err = popValue(); err == nil {
			b, err = vm.stack.PopBuilder()
		}
	} else {
		if b, err = vm.stack.PopBuilder(); err == nil {
			v, err = popValue()
		}
	}
	restore := func() {
		if rev {
			vm.stack.Push(b)
			vm.stack.Push(v)
		} else {
			vm.stack.Push(v)
			vm.stack.Push(b)
		}
	}
	return v, b, restore, err
}

// storeFailed reports a failed store: quietly with the operands
// and a status pushed back, or as err.
func (vm *Machine) storeFailed(f storeFlags, restore func(), status int64, err error) error {
	if !f.quiet {
		return err
	}
	restore()
	vm.stack.pushInt64(status)
	return nil
}

func (vm *Machine) storeDone(f storeFlags, b *cell.Builder) error {
	vm.stack.Push(b)
	if f.quiet {
		vm.stack.pushInt64(0)
	}
	return nil
}

func (vm *Machine) storeInt(n int, f storeFlags) error {
	v, b, restore, err := vm.popStoreArgs(f.rev, func() (Value, error) { return vm.stack.PopInt() })
	if err != nil {
		return err
	}
	x := v.(Int)
	if !b.CanExtendBy(n, 0) {
		return vm.storeFailed(f, restore, -1, ErrCellOverflow)
	}
	if x.IsNaN() || !cell.FitsBits(x.v, n, f.signed) {
		return vm.storeFailed(f, restore, 1, errors.WithDetailf(ErrRangeCheck, "%s does not fit in %d bits", x, n))
	}
	b = b.Clone()
	b.StoreBigInt(x.v, n, f.signed)
	return vm.storeDone(f, b)
}

type storeKind int

const (
	storeRef storeKind = iota
	storeBuilderRef
	storeSlice
	storeBuilder
)

func (vm *Machine) store(kind storeKind, f storeFlags) error {
	pop := func() (Value, error) {
		switch kind {
		case storeRef:
			return vm.stack.PopCell()
		case storeSlice:
			return vm.stack.PopSlice()
		}
		return vm.stack.PopBuilder()
	}
	v, b, restore, err := vm.popStoreArgs(f.rev, pop)
	if err != nil {
		return err
	}
	var bits, refs int
	switch kind {
	case storeRef, storeBuilderRef:
		refs = 1
	case storeSlice:
		bits, refs = v.(cell.Slice).BitsLeft(), v.(cell.Slice).RefsLeft()
	case storeBuilder:
		bits, refs = v.(*cell.Builder).BitLen(), v.(*cell.Builder).RefLen()
	}
	if !b.CanExtendBy(bits, refs) {
		return vm.storeFailed(f, restore, -1, ErrCellOverflow)
	}
	b = b.Clone()
	switch kind {
	case storeRef:
		b.StoreRef(v.(*cell.Cell))
	case storeBuilderRef:
		c, err := vm.createCell(v.(*cell.Builder))
		if err != nil {
			return err
		}
		b.StoreRef(c)
	case storeSlice:
		b.StoreSlice(v.(cell.Slice))
	case storeBuilder:
		b.StoreBuilder(v.(*cell.Builder))
	}
	return vm.storeDone(f, b)
}

func (vm *Machine) storeConstRefs(refs ...*cell.Cell) error {
	b, err := vm.stack.PopBuilder()
	if err != nil {
		return err
	}
	if !b.CanExtendBy(0, len(refs)) {
		return ErrCellOverflow
	}
	b = b.Clone()
	for _, c := range refs {
		b.StoreRef(c)
	}
	vm.stack.Push(b)
	return nil
}

// storeLE stores a 4- or 8-byte little-endian integer. Bit 0 of x
// selects unsigned, bit 1 the 8-byte width.
func (vm *Machine) storeLE(x int) error {
	signed, n := x&1 == 0, 4<<(x>>1)
	b, err := vm.stack.PopBuilder()
	if err != nil {
		return err
	}
	v, err := vm.stack.PopFiniteInt()
	if err != nil {
		return err
	}
	if !cell.FitsBits(v.v, 8*n, signed) {
		return errors.WithDetailf(ErrRangeCheck, "%s does not fit in %d bytes", v, n)
	}
	if !b.CanExtendBy(8*n, 0) {
		return ErrCellOverflow
	}
	u := v.v
	if u.Sign() < 0 {
		u = new(big.Int).Add(u, pow2(8*n))
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u.Uint64())
	b = b.Clone()
	b.StoreBits(buf[:n], 8*n)
	vm.stack.Push(b)
	return nil
}

func builderInfo(f func(b *cell.Builder) []int) execFn {
	return func(vm *Machine, _ *Instruction) error {
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		for _, n := range f(b) {
			vm.stack.pushInt64(int64(n))
		}
		return nil
	}
}

// checkBuilder checks that a builder has room for bits and refs.
// A negative count is popped from the stack; bits come below refs.
func (vm *Machine) checkBuilder(bits, refs int, quiet bool) error {
	var err error
	if refs < 0 {
		if refs, err = vm.stack.PopSmallInt(0, 7); err != nil {
			return err
		}
	}
	if bits < 0 {
		if bits, err = vm.stack.PopSmallInt(0, 1023); err != nil {
			return err
		}
	}
	b, err := vm.stack.PopBuilder()
	if err != nil {
		return err
	}
	ok := b.CanExtendBy(bits, refs)
	if quiet {
		vm.stack.pushBool(ok)
		return nil
	}
	if !ok {
		return ErrCellOverflow
	}
	return nil
}

// storeSame appends n copies of a bit. With pop set the bit is
// popped from the top of the stack.
func (vm *Machine) storeSame(bit, pop bool) error {
	if pop {
		x, err := vm.stack.PopSmallInt(0, 1)
		if err != nil {
			return err
		}
		bit = x == 1
	}
	n, err := vm.stack.PopSmallInt(0, 1023)
	if err != nil {
		return err
	}
	b, err := vm.stack.PopBuilder()
	if err != nil {
		return err
	}
	if !b.CanExtendBy(n, 0) {
		return ErrCellOverflow
	}
	b = b.Clone()
	b.StoreSame(n, bit)
	vm.stack.Push(b)
	return nil
}
