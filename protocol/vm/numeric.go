package vm

import (
	"fmt"
	"math/big"

	"github.com/mnill/tycho-vm/errors"
)

// quiet returns the B7-prefixed variants of ops. They push NaN
// where the originals throw ErrIntOverflow.
func quiet(ops []opEntry) []opEntry {
	out := make([]opEntry, len(ops))
	for i, e := range ops {
		e.name = "Q" + e.name
		e.prefix |= 0xB7 << e.bits
		e.bits += 8
		e.quiet = true
		out[i] = e
	}
	return out
}

var arithOps = []opEntry{
	op("ADD", 0xA0, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })),
	op("SUB", 0xA1, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })),
	op("SUBR", 0xA2, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).Sub(y, x) })),
	op("NEGATE", 0xA3, 8, unop(func(x *big.Int) *big.Int { return new(big.Int).Neg(x) })),
	op("INC", 0xA4, 8, unop(func(x *big.Int) *big.Int { return new(big.Int).Add(x, bigOne) })),
	op("DEC", 0xA5, 8, unop(func(x *big.Int) *big.Int { return new(big.Int).Sub(x, bigOne) })),
	opArgs("ADDCONST", 0xA6, 8, 8, func(vm *Machine, ins *Instruction) error {
		c := big.NewInt(int64(int8(ins.x)))
		return unop(func(x *big.Int) *big.Int { return c.Add(c, x) })(vm, ins)
	}).shows(showInt8),
	opArgs("MULCONST", 0xA7, 8, 8, func(vm *Machine, ins *Instruction) error {
		c := big.NewInt(int64(int8(ins.x)))
		return unop(func(x *big.Int) *big.Int { return c.Mul(c, x) })(vm, ins)
	}).shows(showInt8),
	op("MUL", 0xA8, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })),

	opArgs("DIV", 0xA90, 12, 4, execDiv(divPlain)).checks(validDivMode).shows(showDiv(divPlain)),
	opArgs("RSHIFT", 0xA92, 12, 4, execDiv(divShift)).checks(validDivMode).shows(showDiv(divShift)),
	opArgs("RSHIFT", 0xA93, 12, 12, execDiv(divShift|divConst)).checks(validDivMode8).shows(showDiv(divShift|divConst)),
	opArgs("MULDIV", 0xA98, 12, 4, execDiv(divMul)).checks(validDivMode).shows(showDiv(divMul)),
	opArgs("MULRSHIFT", 0xA9A, 12, 4, execDiv(divMul|divShift)).checks(validDivMode).shows(showDiv(divMul|divShift)),
	opArgs("MULRSHIFT", 0xA9B, 12, 12, execDiv(divMul|divShift|divConst)).checks(validDivMode8).shows(showDiv(divMul|divShift|divConst)),
	opArgs("LSHIFTDIV", 0xA9C, 12, 4, execDiv(divLshift)).checks(validDivMode).shows(showDiv(divLshift)),
	opArgs("LSHIFTDIV", 0xA9D, 12, 12, execDiv(divLshift|divConst)).checks(validDivMode8).shows(showDiv(divLshift|divConst)),

	opArgs("LSHIFT", 0xAA, 8, 8, func(vm *Machine, ins *Instruction) error {
		return unop(func(x *big.Int) *big.Int { return new(big.Int).Lsh(x, uint(ins.x+1)) })(vm, ins)
	}).shows(showX1),
	opArgs("RSHIFT", 0xAB, 8, 8, func(vm *Machine, ins *Instruction) error {
		return unop(func(x *big.Int) *big.Int { return new(big.Int).Rsh(x, uint(ins.x+1)) })(vm, ins)
	}).shows(showX1),
	op("LSHIFT", 0xAC, 8, func(vm *Machine, ins *Instruction) error {
		return shiftVar(vm, ins, func(x *big.Int, n uint) *big.Int { return new(big.Int).Lsh(x, n) })
	}),
	op("RSHIFT", 0xAD, 8, func(vm *Machine, ins *Instruction) error {
		return shiftVar(vm, ins, func(x *big.Int, n uint) *big.Int { return new(big.Int).Rsh(x, n) })
	}),
	op("POW2", 0xAE, 8, func(vm *Machine, ins *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, 1023)
		if err != nil {
			return err
		}
		return vm.pushInt(pow2(n), ins.quiet())
	}),

	op("AND", 0xB0, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })),
	op("OR", 0xB1, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })),
	op("XOR", 0xB2, 8, binop(func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })),
	op("NOT", 0xB3, 8, unop(func(x *big.Int) *big.Int { return new(big.Int).Not(x) })),
	opArgs("FITS", 0xB4, 8, 8, func(vm *Machine, ins *Instruction) error {
		return fits(vm, ins, ins.x+1, true)
	}).shows(showX1),
	opArgs("UFITS", 0xB5, 8, 8, func(vm *Machine, ins *Instruction) error {
		return fits(vm, ins, ins.x+1, false)
	}).shows(showX1),
	op("FITSX", 0xB600, 16, func(vm *Machine, ins *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, 1023)
		if err != nil {
			return err
		}
		return fits(vm, ins, n, true)
	}),
	op("UFITSX", 0xB601, 16, func(vm *Machine, ins *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, 1023)
		if err != nil {
			return err
		}
		return fits(vm, ins, n, false)
	}),
	op("BITSIZE", 0xB602, 16, func(vm *Machine, ins *Instruction) error {
		return bitsize(vm, ins, true)
	}),
	op("UBITSIZE", 0xB603, 16, func(vm *Machine, ins *Instruction) error {
		return bitsize(vm, ins, false)
	}),
	op("MIN", 0xB608, 16, binop(func(x, y *big.Int) *big.Int {
		if x.Cmp(y) <= 0 {
			return x
		}
		return y
	})),
	op("MAX", 0xB609, 16, binop(func(x, y *big.Int) *big.Int {
		if x.Cmp(y) >= 0 {
			return x
		}
		return y
	})),
	op("MINMAX", 0xB60A, 16, func(vm *Machine, ins *Instruction) error {
		v, err := vm.popInts(2)
		if err != nil {
			return err
		}
		if anyNaN(v...) {
			return seq(vm.pushIntValue(NaN, ins.quiet()), func() error {
				return vm.pushIntValue(NaN, ins.quiet())
			})
		}
		lo, hi := v[0], v[1]
		if lo.v.Cmp(hi.v) > 0 {
			lo, hi = hi, lo
		}
		vm.stack.Push(lo)
		vm.stack.Push(hi)
		return nil
	}),
	op("ABS", 0xB60B, 16, unop(func(x *big.Int) *big.Int { return new(big.Int).Abs(x) })),
}

func showInt8(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, int8(ins.x)) }

func showX1(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, ins.x+1) }

// binop pops x and y (y on top) and pushes f(x, y).
// NaN in gives NaN out.
func binop(f func(x, y *big.Int) *big.Int) execFn {
	return func(vm *Machine, ins *Instruction) error {
		v, err := vm.popInts(2)
		if err != nil {
			return err
		}
		if anyNaN(v...) {
			return vm.pushIntValue(NaN, ins.quiet())
		}
		return vm.pushInt(f(v[0].v, v[1].v), ins.quiet())
	}
}

func unop(f func(x *big.Int) *big.Int) execFn {
	return func(vm *Machine, ins *Instruction) error {
		x, err := vm.stack.PopInt()
		if err != nil {
			return err
		}
		if x.IsNaN() {
			return vm.pushIntValue(NaN, ins.quiet())
		}
		return vm.pushInt(f(x.v), ins.quiet())
	}
}

// popShift pops a shift amount in [0, max]. A NaN amount is
// reported as nan for quiet instructions and is an error otherwise.
func (vm *Machine) popShift(max int, quiet bool) (n int, nan bool, err error) {
	v, err := vm.stack.PopInt()
	if err != nil {
		return 0, false, err
	}
	if v.IsNaN() {
		if quiet {
			return 0, true, nil
		}
		return 0, false, ErrIntOverflow
	}
	x, ok := v.Int64()
	if !ok || x < 0 || x > int64(max) {
		return 0, false, errors.WithDetailf(ErrRangeCheck, "shift %s not in [0, %d]", v, max)
	}
	return int(x), false, nil
}

func shiftVar(vm *Machine, ins *Instruction, f func(x *big.Int, n uint) *big.Int) error {
	n, nan, err := vm.popShift(1023, ins.quiet())
	if err != nil {
		return err
	}
	x, err := vm.stack.PopInt()
	if err != nil {
		return err
	}
	if nan || x.IsNaN() {
		return vm.pushIntValue(NaN, ins.quiet())
	}
	return vm.pushInt(f(x.v, uint(n)), ins.quiet())
}

func fits(vm *Machine, ins *Instruction, n int, signed bool) error {
	x, err := vm.stack.PopInt()
	if err != nil {
		return err
	}
	if x.IsNaN() || !((signed && sfits(x.v, n)) || (!signed && ufits(x.v, n))) {
		return vm.pushIntValue(NaN, ins.quiet())
	}
	vm.stack.Push(x)
	return nil
}

func bitsize(vm *Machine, ins *Instruction, signed bool) error {
	x, err := vm.stack.PopInt()
	if err != nil {
		return err
	}
	if x.IsNaN() {
		if ins.quiet() {
			vm.stack.Push(NaN)
			return nil
		}
		return errors.WithDetail(ErrRangeCheck, "bit size of NaN")
	}
	if signed {
		vm.stack.pushInt64(int64(bitSize(x.v)))
		return nil
	}
	if x.v.Sign() < 0 {
		if ins.quiet() {
			vm.stack.Push(NaN)
			return nil
		}
		return errors.WithDetail(ErrRangeCheck, "unsigned bit size of a negative number")
	}
	vm.stack.pushInt64(int64(x.v.BitLen()))
	return nil
}

// Division family flags.
// divShift divides by 2^shift, divConst takes the shift from the
// operand, divMul multiplies two numerators and divLshift shifts
// the numerator left.
const (
	divPlain = 0
	divShift = 1 << iota
	divConst
	divMul
	divLshift
)

// Rounding modes.
const (
	roundFloor = iota
	roundNearest
	roundCeil
)

func validDivMode(x int) bool { return x&3 != 3 }

func validDivMode8(x int) bool { return x>>8&3 != 3 }

// divRound divides x by y with the given rounding and returns
// the quotient and the remainder x - q*y. y must not be zero.
func divRound(x, y *big.Int, mode int) (q, r *big.Int) {
	switch mode {
	case roundNearest:
		x2 := new(big.Int).Lsh(x, 1)
		x2.Add(x2, y)
		y2 := new(big.Int).Lsh(y, 1)
		q, _ = divRound(x2, y2, roundFloor)
		r = new(big.Int).Mul(q, y)
		r.Sub(x, r)
		return q, r
	case roundCeil:
		q, r = new(big.Int).QuoRem(x, y, new(big.Int))
		if r.Sign() != 0 && r.Sign() == y.Sign() {
			q.Add(q, bigOne)
			r.Sub(r, y)
		}
		return q, r
	}
	q, r = new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, bigOne)
		r.Add(r, y)
	}
	return q, r
}

// execDiv implements the A9 family. The operand holds the rounding
// mode f in its low two bits and the result selector d above it:
// 1 quotient, 2 remainder, 3 both, 0 both with an extra addend.
// Constant-shift forms carry the shift minus one in the next byte.
func execDiv(kind int) execFn {
	return func(vm *Machine, ins *Instruction) error {
		mode, d, shift := ins.x&3, ins.x>>2&3, -1
		if kind&divConst != 0 {
			mode, d, shift = ins.x>>8&3, ins.x>>10&3, ins.x&255+1
		}
		quiet := ins.quiet()

		nan := false
		if kind&(divShift|divLshift) != 0 && shift < 0 {
			n, isNaN, err := vm.popShift(256, quiet)
			if err != nil {
				return err
			}
			shift, nan = n, isNaN
		}
		var y Int
		if kind&divShift == 0 {
			v, err := vm.stack.PopInt()
			if err != nil {
				return err
			}
			y = v
		}
		var w Int
		if d == 0 {
			v, err := vm.stack.PopInt()
			if err != nil {
				return err
			}
			w = v
		}
		operands := 1
		if kind&divMul != 0 {
			operands = 2
		}
		xs, err := vm.popInts(operands)
		if err != nil {
			return err
		}

		results := 1
		if d == 3 || d == 0 {
			results = 2
		}
		pushNaN := func() error {
			for i := 0; i < results; i++ {
				if err := vm.pushIntValue(NaN, quiet); err != nil {
					return err
				}
			}
			return nil
		}
		if nan || anyNaN(xs...) || (kind&divShift == 0 && y.IsNaN()) || (d == 0 && w.IsNaN()) {
			return pushNaN()
		}

		num := new(big.Int).Set(xs[0].v)
		if kind&divMul != 0 {
			num.Mul(num, xs[1].v)
		}
		if kind&divLshift != 0 {
			num.Lsh(num, uint(shift))
		}
		if d == 0 {
			num.Add(num, w.v)
		}
		var den *big.Int
		if kind&divShift != 0 {
			den = pow2(shift)
		} else {
			den = y.v
		}
		if den.Sign() == 0 {
			return pushNaN()
		}
		q, r := divRound(num, den, mode)
		switch d {
		case 1:
			return vm.pushInt(q, quiet)
		case 2:
			return vm.pushInt(r, quiet)
		}
		return seq(vm.pushInt(q, quiet), func() error { return vm.pushInt(r, quiet) })
	}
}

func divNames(kind int) [4]string {
	switch kind &^ divConst {
	case divShift:
		return [4]string{"ADDRSHIFTMOD", "RSHIFT", "MODPOW2", "RSHIFTMOD"}
	case divMul:
		return [4]string{"MULADDDIVMOD", "MULDIV", "MULMOD", "MULDIVMOD"}
	case divMul | divShift:
		return [4]string{"MULADDRSHIFTMOD", "MULRSHIFT", "MULMODPOW2", "MULRSHIFTMOD"}
	case divLshift:
		return [4]string{"LSHIFTADDDIVMOD", "LSHIFTDIV", "LSHIFTMOD", "LSHIFTDIVMOD"}
	}
	return [4]string{"ADDDIVMOD", "DIV", "MOD", "DIVMOD"}
}

func showDiv(kind int) showFn {
	return func(ins *Instruction) string {
		mode, d, arg := ins.x&3, ins.x>>2&3, ""
		if kind&divConst != 0 {
			mode, d, arg = ins.x>>8&3, ins.x>>10&3, fmt.Sprintf("# %d", ins.x&255+1)
		}
		prefix := ""
		if ins.quiet() {
			prefix = "Q"
		}
		return prefix + divNames(kind)[d] + [...]string{"", "R", "C"}[mode] + arg
	}
}

var compareOps = append([]opEntry{
	op("ISNAN", 0xC4, 8, func(vm *Machine, _ *Instruction) error {
		x, err := vm.stack.PopInt()
		if err != nil {
			return err
		}
		vm.stack.pushBool(x.IsNaN())
		return nil
	}),
	op("CHKNAN", 0xC5, 8, func(vm *Machine, _ *Instruction) error {
		x, err := vm.stack.PopInt()
		if err != nil {
			return err
		}
		if x.IsNaN() {
			return ErrIntOverflow
		}
		vm.stack.Push(x)
		return nil
	}),
}, quietCompareOps...)

// quietCompareOps have B7-prefixed quiet forms.
var quietCompareOps = []opEntry{
	op("SGN", 0xB8, 8, cmpOp(func(x *big.Int, _ int64) int64 { return int64(x.Sign()) })),
	op("LESS", 0xB9, 8, cmp2(func(c int) bool { return c < 0 })),
	op("EQUAL", 0xBA, 8, cmp2(func(c int) bool { return c == 0 })),
	op("LEQ", 0xBB, 8, cmp2(func(c int) bool { return c <= 0 })),
	op("GREATER", 0xBC, 8, cmp2(func(c int) bool { return c > 0 })),
	op("NEQ", 0xBD, 8, cmp2(func(c int) bool { return c != 0 })),
	op("GEQ", 0xBE, 8, cmp2(func(c int) bool { return c >= 0 })),
	op("CMP", 0xBF, 8, func(vm *Machine, ins *Instruction) error {
		v, err := vm.popInts(2)
		if err != nil {
			return err
		}
		if anyNaN(v...) {
			return vm.pushIntValue(NaN, ins.quiet())
		}
		vm.stack.pushInt64(int64(v[0].v.Cmp(v[1].v)))
		return nil
	}),
	opArgs("EQINT", 0xC0, 8, 8, cmpConst(func(c int) bool { return c == 0 })).shows(showInt8),
	opArgs("LESSINT", 0xC1, 8, 8, cmpConst(func(c int) bool { return c < 0 })).shows(showInt8),
	opArgs("GTINT", 0xC2, 8, 8, cmpConst(func(c int) bool { return c > 0 })).shows(showInt8),
	opArgs("NEQINT", 0xC3, 8, 8, cmpConst(func(c int) bool { return c != 0 })).shows(showInt8),
}

func cmpOp(f func(x *big.Int, y int64) int64) execFn {
	return func(vm *Machine, ins *Instruction) error {
		x, err := vm.stack.PopInt()
		if err != nil {
			return err
		}
		if x.IsNaN() {
			return vm.pushIntValue(NaN, ins.quiet())
		}
		vm.stack.pushInt64(f(x.v, int64(int8(ins.x))))
		return nil
	}
}

func cmp2(f func(c int) bool) execFn {
	return func(vm *Machine, ins *Instruction) error {
		v, err := vm.popInts(2)
		if err != nil {
			return err
		}
		if anyNaN(v...) {
			return vm.pushIntValue(NaN, ins.quiet())
		}
		vm.stack.pushBool(f(v[0].v.Cmp(v[1].v)))
		return nil
	}
}

func cmpConst(f func(c int) bool) execFn {
	return cmpOp(func(x *big.Int, y int64) int64 {
		if f(x.Cmp(big.NewInt(y))) {
			return -1
		}
		return 0
	})
}
