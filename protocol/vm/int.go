package vm

import (
	"math/big"

	"github.com/mnill/tycho-vm/protocol/cell"
)

// IntBits is the width of VM integers, including the sign bit.
const IntBits = 257

// Int is a 257-bit signed integer or NaN. The zero value is NaN.
// The wrapped big.Int is never modified once an Int holds it.
type Int struct {
	v *big.Int
}

// NaN is the not-a-number integer.
var NaN = Int{}

var (
	bigZero   = big.NewInt(0)
	bigOne    = big.NewInt(1)
	bigMinus1 = big.NewInt(-1)
)

// NewInt returns x as an Int.
func NewInt(x int64) Int {
	return Int{v: big.NewInt(x)}
}

// NewBigInt returns x as an Int, taking ownership of x.
// It returns NaN if x is nil or does not fit in 257 bits.
func NewBigInt(x *big.Int) Int {
	if x == nil || !cell.FitsBits(x, IntBits, true) {
		return NaN
	}
	return Int{v: x}
}

// IsNaN reports whether i is NaN.
func (i Int) IsNaN() bool { return i.v == nil }

// Big returns the value of i, or nil for NaN.
// The result must not be modified.
func (i Int) Big() *big.Int { return i.v }

// Int64 returns i as an int64 if it is finite and fits.
func (i Int) Int64() (int64, bool) {
	if i.v == nil || !i.v.IsInt64() {
		return 0, false
	}
	return i.v.Int64(), true
}

func (i Int) String() string {
	if i.v == nil {
		return "NaN"
	}
	return i.v.String()
}

func boolInt(b bool) Int {
	if b {
		return NewInt(-1)
	}
	return NewInt(0)
}

// ufits reports whether x fits in n unsigned bits.
func ufits(x *big.Int, n int) bool { return cell.FitsBits(x, n, false) }

// sfits reports whether x fits in n signed bits.
func sfits(x *big.Int, n int) bool { return cell.FitsBits(x, n, true) }

// bitSize returns the minimal signed width of x.
func bitSize(x *big.Int) int {
	if x.Sign() == 0 {
		return 0
	}
	if x.Sign() > 0 {
		return x.BitLen() + 1
	}
	return new(big.Int).Not(x).BitLen() + 1
}

func pow2(n int) *big.Int {
	return new(big.Int).Lsh(bigOne, uint(n))
}
