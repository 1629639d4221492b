package vm

import (
	"math/big"

	"github.com/mnill/tycho-vm/errors"
)

// op returns a table entry for an opcode without fixed operands.
func op(name string, prefix uint32, bits int, exec execFn) opEntry {
	return opEntry{name: name, prefix: prefix, bits: bits, exec: exec}
}

// opArgs returns a table entry whose argBits operand bits
// are decoded into Instruction.x.
func opArgs(name string, prefix uint32, bits, argBits int, exec execFn) opEntry {
	return opEntry{name: name, prefix: prefix, bits: bits, argBits: argBits, exec: exec}
}

// codepage0 is the only code page.
var codepage0 *opTrie

func init() {
	codepage0 = newTrie(
		stackOps,
		tupleOps,
		constOps,
		arithOps,
		quiet(arithOps),
		compareOps,
		quiet(quietCompareOps),
		sliceCompareOps,
		buildOps,
		parseOps,
		contOps,
		loopOps,
		regOps,
		excOps,
		dictOps,
		dictCallOps,
		contextOps,
		cryptoOps,
		varintOps,
		actionOps,
		debugOps,
		codepageOps,
	)
}

// Integer results.

// pushInt pushes x, or NaN if x does not fit in 257 bits.
// Unless quiet, a NaN result raises ErrIntOverflow instead.
func (vm *Machine) pushInt(x *big.Int, quiet bool) error {
	return vm.pushIntValue(NewBigInt(x), quiet)
}

func (vm *Machine) pushIntValue(v Int, quiet bool) error {
	if v.IsNaN() && !quiet {
		return ErrIntOverflow
	}
	vm.stack.Push(v)
	return nil
}

// popInts pops n integers and returns them in stack order,
// the deepest first.
func (vm *Machine) popInts(n int) ([]Int, error) {
	if err := vm.stack.Check(n); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, ok := vm.stack.at(i).(Int); !ok {
			return nil, typeErr("integer", vm.stack.at(i))
		}
	}
	out := make([]Int, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.stack.pop().(Int)
	}
	return out, nil
}

func anyNaN(vals ...Int) bool {
	for _, v := range vals {
		if v.IsNaN() {
			return true
		}
	}
	return false
}

// popUint256 pops an integer in [0, 2^256).
func (vm *Machine) popUint256() (*big.Int, error) {
	v, err := vm.stack.PopFiniteInt()
	if err != nil {
		return nil, err
	}
	if !ufits(v.v, 256) {
		return nil, errors.WithDetailf(ErrRangeCheck, "%s is not an unsigned 256-bit integer", v)
	}
	return v.v, nil
}
