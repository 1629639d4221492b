package vm

import (
	"crypto/sha512"
	"fmt"
	"math"
	"math/big"

	"github.com/btcsuite/fastsha256"

	"github.com/mnill/tycho-vm/errors"
)

// Indexes into the parameter tuple c7[0].
const (
	paramNow        = 3
	paramBlockLT    = 4
	paramLTime      = 5
	paramRandSeed   = 6
	paramBalance    = 7
	paramMyAddr     = 8
	paramConfigRoot = 9
)

var paramNames = map[int]string{
	paramNow:        "NOW",
	paramBlockLT:    "BLOCKLT",
	paramLTime:      "LTIME",
	paramRandSeed:   "RANDSEED",
	paramBalance:    "BALANCE",
	paramMyAddr:     "MYADDR",
	paramConfigRoot: "CONFIGROOT",
}

var contextOps = []opEntry{
	op("ACCEPT", 0xF800, 16, func(vm *Machine, _ *Instruction) error {
		vm.gas.accept()
		return nil
	}),
	op("SETGASLIMIT", 0xF801, 16, func(vm *Machine, _ *Instruction) error {
		x, err := vm.stack.PopFiniteInt()
		if err != nil {
			return err
		}
		var n int64
		if x.v.Sign() > 0 {
			n = math.MaxInt64
			if x.v.IsInt64() {
				n = x.v.Int64()
			}
		}
		return vm.gas.setLimit(n)
	}),
	op("GASCONSUMED", 0xF806, 16, func(vm *Machine, _ *Instruction) error {
		vm.stack.pushInt64(vm.gas.consumed())
		return nil
	}),
	op("COMMIT", 0xF80F, 16, func(vm *Machine, _ *Instruction) error {
		if !vm.commit() {
			return errors.WithDetail(ErrCellOverflow, "cannot commit data or actions")
		}
		return nil
	}),
	op("RANDU256", 0xF810, 16, func(vm *Machine, _ *Instruction) error {
		x, err := vm.nextRandom()
		if err != nil {
			return err
		}
		vm.stack.Push(NewBigInt(x))
		return nil
	}),
	op("RAND", 0xF811, 16, func(vm *Machine, _ *Instruction) error {
		y, err := vm.stack.PopFiniteInt()
		if err != nil {
			return err
		}
		x, err := vm.nextRandom()
		if err != nil {
			return err
		}
		z := new(big.Int).Mul(x, y.v)
		vm.stack.Push(NewBigInt(z.Rsh(z, 256)))
		return nil
	}),
	op("SETRAND", 0xF814, 16, func(vm *Machine, _ *Instruction) error {
		x, err := vm.popUint256()
		if err != nil {
			return err
		}
		return vm.setParam(paramRandSeed, NewBigInt(x))
	}),
	op("ADDRAND", 0xF815, 16, func(vm *Machine, _ *Instruction) error {
		x, err := vm.popUint256()
		if err != nil {
			return err
		}
		seed, err := vm.randSeed()
		if err != nil {
			return err
		}
		var buf [64]byte
		seed.FillBytes(buf[:32])
		x.FillBytes(buf[32:])
		sum := fastsha256.Sum256(buf[:])
		return vm.setParam(paramRandSeed, NewBigInt(new(big.Int).SetBytes(sum[:])))
	}),
	opArgs("GETPARAM", 0xF82, 12, 4, func(vm *Machine, ins *Instruction) error {
		v, err := vm.param(ins.x)
		if err != nil {
			return err
		}
		vm.stack.Push(v)
		return nil
	}).shows(func(ins *Instruction) string {
		if name, ok := paramNames[ins.x]; ok {
			return name
		}
		return fmt.Sprintf("%s %d", ins.Name, ins.x)
	}),
	op("CONFIGDICT", 0xF830, 16, func(vm *Machine, _ *Instruction) error {
		v, err := vm.param(paramConfigRoot)
		if err != nil {
			return err
		}
		vm.stack.Push(v)
		vm.stack.pushInt64(32)
		return nil
	}),
	op("GETGLOBVAR", 0xF840, 16, func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopSmallInt(0, MaxTupleLen-1)
		if err != nil {
			return err
		}
		vm.pushGlobal(k)
		return nil
	}),
	opArgs("GETGLOB", 0x7C2, 11, 5, func(vm *Machine, ins *Instruction) error {
		vm.pushGlobal(ins.x)
		return nil
	}).checks(nonZero).shows(showX),
	op("SETGLOBVAR", 0xF860, 16, func(vm *Machine, _ *Instruction) error {
		k, err := vm.stack.PopSmallInt(0, MaxTupleLen-1)
		if err != nil {
			return err
		}
		return vm.setGlobal(k)
	}),
	opArgs("SETGLOB", 0x7C3, 11, 5, func(vm *Machine, ins *Instruction) error {
		return vm.setGlobal(ins.x)
	}).checks(nonZero).shows(showX),
}

func nonZero(x int) bool { return x != 0 }

// params returns the parameter tuple c7[0].
func (vm *Machine) params() (Tuple, error) {
	var v Value = Null{}
	if len(vm.regs.c7) > 0 {
		v = vm.regs.c7[0]
	}
	t, ok := v.(Tuple)
	if !ok {
		return nil, errors.WithDetailf(ErrTypeCheck, "c7[0] is a %s, not a tuple", typeName(v))
	}
	return t, nil
}

// param returns c7[0][i], or null if the tuple is shorter.
func (vm *Machine) param(i int) (Value, error) {
	t, err := vm.params()
	if err != nil {
		return nil, err
	}
	if i >= len(t) {
		return Null{}, nil
	}
	return t[i], nil
}

// setParam replaces c7[0][i], paying for both rebuilt tuples.
func (vm *Machine) setParam(i int, v Value) error {
	t, err := vm.params()
	if err != nil {
		return err
	}
	t = t.with(i, v)
	if err := vm.gas.consumeTuple(len(t)); err != nil {
		return err
	}
	c7 := vm.regs.c7.with(0, t)
	if err := vm.gas.consumeTuple(len(c7)); err != nil {
		return err
	}
	vm.regs.c7, vm.regs.hasC7 = c7, true
	return nil
}

func (vm *Machine) randSeed() (*big.Int, error) {
	v, err := vm.param(paramRandSeed)
	if err != nil {
		return nil, err
	}
	seed, ok := v.(Int)
	if !ok {
		return nil, typeErr("integer", v)
	}
	if seed.IsNaN() || !ufits(seed.v, 256) {
		return nil, errors.WithDetail(ErrRangeCheck, "random seed out of range")
	}
	return seed.v, nil
}

// nextRandom advances the random seed and returns the next
// 256-bit random number. SHA-512 of the seed yields the new seed
// in its first half and the number in its second.
func (vm *Machine) nextRandom() (*big.Int, error) {
	seed, err := vm.randSeed()
	if err != nil {
		return nil, err
	}
	var buf [32]byte
	seed.FillBytes(buf[:])
	sum := sha512.Sum512(buf[:])
	next := new(big.Int).SetBytes(sum[:32])
	if err := vm.setParam(paramRandSeed, NewBigInt(next)); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(sum[32:]), nil
}

func (vm *Machine) pushGlobal(k int) {
	if k < len(vm.regs.c7) {
		vm.stack.Push(vm.regs.c7[k])
		return
	}
	vm.stack.Push(Null{})
}

func (vm *Machine) setGlobal(k int) error {
	x, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if _, isNull := x.(Null); isNull && k >= len(vm.regs.c7) {
		return nil
	}
	c7 := vm.regs.c7.with(k, x)
	if err := vm.gas.consumeTuple(len(c7)); err != nil {
		return err
	}
	vm.regs.c7, vm.regs.hasC7 = c7, true
	return nil
}
