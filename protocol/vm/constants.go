package vm

import (
	"fmt"
	"math/big"

	"github.com/mnill/tycho-vm/protocol/cell"
)

var constOps = []opEntry{
	opArgs("PUSHINT", 0x7, 4, 4, pushConst).decodes(func(ins *Instruction, _ *cell.Slice) error {
		ins.n = NewInt(int64((ins.x+5)&15 - 5))
		return nil
	}).shows(showN),
	opArgs("PUSHINT", 0x80, 8, 8, pushConst).decodes(func(ins *Instruction, _ *cell.Slice) error {
		ins.n = NewInt(int64(int8(ins.x)))
		return nil
	}).shows(showN),
	opArgs("PUSHINT", 0x81, 8, 16, pushConst).decodes(func(ins *Instruction, _ *cell.Slice) error {
		ins.n = NewInt(int64(int16(ins.x)))
		return nil
	}).shows(showN),
	opArgs("PUSHINT", 0x82, 8, 5, pushConst).decodes(func(ins *Instruction, code *cell.Slice) error {
		x, err := code.LoadBigInt(8*ins.x+19, true)
		if err != nil {
			return err
		}
		ins.n = NewBigInt(x)
		return nil
	}).shows(showN),
	opArgs("PUSHPOW2", 0x83, 8, 8, pushConst).decodes(func(ins *Instruction, _ *cell.Slice) error {
		ins.n = NewBigInt(pow2(ins.x + 1))
		return nil
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, ins.x+1) }),
	op("PUSHNAN", 0x83FF, 16, func(vm *Machine, _ *Instruction) error {
		vm.stack.Push(NaN)
		return nil
	}),
	opArgs("PUSHPOW2DEC", 0x84, 8, 8, pushConst).decodes(func(ins *Instruction, _ *cell.Slice) error {
		ins.n = NewBigInt(pow2(ins.x+1).Sub(pow2(ins.x+1), bigOne))
		return nil
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, ins.x+1) }),
	opArgs("PUSHNEGPOW2", 0x85, 8, 8, pushConst).decodes(func(ins *Instruction, _ *cell.Slice) error {
		ins.n = NewBigInt(new(big.Int).Neg(pow2(ins.x + 1)))
		return nil
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, ins.x+1) }),

	op("PUSHREF", 0x88, 8, func(vm *Machine, ins *Instruction) error {
		vm.stack.Push(ins.ref)
		return nil
	}).decodes(decodeRef).shows(showRef),
	op("PUSHREFSLICE", 0x89, 8, func(vm *Machine, ins *Instruction) error {
		s, err := vm.loadCell(ins.ref)
		if err != nil {
			return err
		}
		vm.stack.Push(s)
		return nil
	}).decodes(decodeRef).shows(showRef),
	op("PUSHREFCONT", 0x8A, 8, func(vm *Machine, ins *Instruction) error {
		k, err := vm.refToCont(ins.ref)
		if err != nil {
			return err
		}
		vm.stack.Push(k)
		return nil
	}).decodes(decodeRef).shows(showRef),

	opArgs("PUSHSLICE", 0x8B, 8, 4, pushSlice).decodes(func(ins *Instruction, code *cell.Slice) error {
		return decodeSlice(ins, code, 8*ins.x+4, 0, true)
	}).shows(showSlice),
	opArgs("PUSHSLICE", 0x8C, 8, 7, pushSlice).decodes(func(ins *Instruction, code *cell.Slice) error {
		return decodeSlice(ins, code, 8*(ins.x&31)+1, ins.x>>5+1, true)
	}).shows(showSlice),
	opArgs("PUSHSLICE", 0x8D, 8, 10, pushSlice).checks(func(x int) bool {
		return x>>7 <= cell.MaxRefs
	}).decodes(func(ins *Instruction, code *cell.Slice) error {
		return decodeSlice(ins, code, 8*(ins.x&127)+6, ins.x>>7, true)
	}).shows(showSlice),
	opArgs("PUSHCONT", 0x8E>>1, 7, 9, pushCont).decodes(func(ins *Instruction, code *cell.Slice) error {
		return decodeSlice(ins, code, 8*(ins.x&127), ins.x>>7, false)
	}).shows(showSlice),
	opArgs("PUSHCONT", 0x9, 4, 4, pushCont).decodes(func(ins *Instruction, code *cell.Slice) error {
		return decodeSlice(ins, code, 8*ins.x, 0, false)
	}).shows(showSlice),
}

// pushConst pushes the decoded literal. The long PUSHINT form can
// encode values past 257 bits; those raise an integer overflow.
func pushConst(vm *Machine, ins *Instruction) error {
	return vm.pushIntValue(ins.n, false)
}

func pushSlice(vm *Machine, ins *Instruction) error {
	vm.stack.Push(ins.data)
	return nil
}

func pushCont(vm *Machine, ins *Instruction) error {
	vm.stack.Push(NewOrdCont(ins.data, vm.cp))
	return nil
}

func decodeRef(ins *Instruction, code *cell.Slice) error {
	c, err := code.LoadRef()
	ins.ref = c
	return err
}

func decodeRefs2(ins *Instruction, code *cell.Slice) error {
	if code.RefsLeft() < 2 {
		return cell.ErrCellUnderflow
	}
	ins.ref, _ = code.LoadRef()
	ins.ref2, _ = code.LoadRef()
	return nil
}

// decodeSlice cuts an inline slice of bits and refs out of code,
// stripping its completion tag if tagged is set.
func decodeSlice(ins *Instruction, code *cell.Slice, bits, refs int, tagged bool) error {
	s, err := code.LoadSlice(bits, refs)
	if err != nil {
		return err
	}
	if tagged {
		s.RemoveTrailing()
	}
	ins.data = s
	return nil
}
