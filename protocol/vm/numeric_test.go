package vm

import (
	"math/big"
	"testing"
)

func TestDivRound(t *testing.T) {
	cases := []struct {
		x, y int64
		mode int
		q, r int64
	}{
		{7, 2, roundFloor, 3, 1},
		{7, 2, roundCeil, 4, -1},
		{7, 2, roundNearest, 4, -1},
		{-7, 2, roundFloor, -4, 1},
		{-7, 2, roundCeil, -3, -1},
		{-7, 2, roundNearest, -3, -1},
		{7, -2, roundFloor, -4, -1},
		{7, -2, roundCeil, -3, 1},
		{7, -2, roundNearest, -3, 1},
		{5, 2, roundNearest, 3, -1},
		{-5, 2, roundNearest, -2, -1},
		{1, 3, roundNearest, 0, 1},
		{6, 3, roundCeil, 2, 0},
	}
	for _, c := range cases {
		q, r := divRound(big.NewInt(c.x), big.NewInt(c.y), c.mode)
		if q.Int64() != c.q || r.Int64() != c.r {
			t.Errorf("divRound(%d, %d, %d) = %s, %s, want %d, %d", c.x, c.y, c.mode, q, r, c.q, c.r)
		}
	}
}

func TestBitSize(t *testing.T) {
	cases := []struct {
		x    int64
		want int
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{127, 8},
		{-128, 8},
		{128, 9},
	}
	for _, c := range cases {
		if got := bitSize(big.NewInt(c.x)); got != c.want {
			t.Errorf("bitSize(%d) = %d, want %d", c.x, got, c.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	runCases(t, []runCase{
		{name: "sub", code: "72 73 A1", wantStack: ints(-1)},
		{name: "subr", code: "72 73 A2", wantStack: ints(1)},
		{name: "negate", code: "75 A3", wantStack: ints(-5)},
		{name: "inc", code: "75 A4", wantStack: ints(6)},
		{name: "dec", code: "75 A5", wantStack: ints(4)},
		{name: "addconst", code: "75 A605", wantStack: ints(10)},
		{name: "mulconst", code: "75 A7FE", wantStack: ints(-10)},
		{name: "mul", code: "72 73 A8", wantStack: ints(6)},
		{name: "div", code: "A904", stack: ints(-7, 2), wantStack: ints(-4)},
		{name: "divr", code: "A905", stack: ints(-7, 2), wantStack: ints(-3)},
		{name: "divc", code: "A906", stack: ints(-7, 2), wantStack: ints(-3)},
		{name: "mod", code: "A908", stack: ints(-7, 2), wantStack: ints(1)},
		{name: "divmod", code: "A90C", stack: ints(-7, 2), wantStack: ints(-4, 1)},
		{name: "adddivmod", code: "A900", stack: ints(5, 2, 3), wantStack: ints(2, 1)},
		{name: "muldiv", code: "A984", stack: ints(3, 5, 2), wantStack: ints(7)},
		{name: "mulrshift", code: "A9A4", stack: ints(3, 5, 1), wantStack: ints(7)},
		{name: "lshiftdiv", code: "A9C4", stack: ints(3, 2, 2), wantStack: ints(6)},
		{name: "rshift var", code: "A924", stack: ints(-7, 1), wantStack: ints(-4)},
		{name: "rshift const", code: "A93401", stack: ints(-7), wantStack: ints(-2)},
		{name: "lshift const", code: "AA03", stack: ints(1), wantStack: ints(16)},
		{name: "rshift short", code: "AB00", stack: ints(-3), wantStack: ints(-2)},
		{name: "lshift", code: "AC", stack: ints(3, 2), wantStack: ints(12)},
		{name: "rshift", code: "AD", stack: ints(12, 2), wantStack: ints(3)},
		{name: "pow2", code: "AE", stack: ints(10), wantStack: ints(1024)},
		{name: "and", code: "B0", stack: ints(12, 10), wantStack: ints(8)},
		{name: "or", code: "B1", stack: ints(12, 10), wantStack: ints(14)},
		{name: "xor", code: "B2", stack: ints(12, 10), wantStack: ints(6)},
		{name: "not", code: "B3", stack: ints(0), wantStack: ints(-1)},
		{name: "fits", code: "B407", stack: ints(127), wantStack: ints(127)},
		{name: "bitsize", code: "B602", stack: ints(0), wantStack: ints(0)},
		{name: "ubitsize", code: "B603", stack: ints(8), wantStack: ints(4)},
		{name: "min", code: "B608", stack: ints(5, 3), wantStack: ints(3)},
		{name: "max", code: "B609", stack: ints(5, 3), wantStack: ints(5)},
		{name: "minmax", code: "B60A", stack: ints(5, 3), wantStack: ints(3, 5)},
		{name: "abs", code: "B60B", stack: ints(-4), wantStack: ints(4)},
	})
}

func TestArithmeticErrors(t *testing.T) {
	runCases(t, []runCase{{
		name:      "division by zero",
		code:      "A904",
		stack:     ints(1, 0),
		wantExit:  ExcIntOverflow,
		wantStack: ints(0),
	}, {
		name:      "quiet division by zero",
		code:      "B7A904",
		stack:     ints(1, 0),
		wantStack: []Value{NaN},
	}, {
		name:      "sum overflow",
		code:      "83FE 83FE A0",
		wantExit:  ExcIntOverflow,
		wantStack: ints(0),
	}, {
		name:      "quiet sum overflow",
		code:      "83FE 83FE B7A0",
		wantStack: []Value{NaN},
	}, {
		name:      "max int inc",
		code:      "84FF A4",
		wantExit:  ExcIntOverflow,
		wantStack: ints(0),
	}, {
		name:      "fits overflow",
		code:      "B407",
		stack:     ints(128),
		wantExit:  ExcIntOverflow,
		wantStack: ints(0),
	}, {
		name:      "quiet ufits",
		code:      "B7B507",
		stack:     ints(-1),
		wantStack: []Value{NaN},
	}, {
		name:      "nan propagates",
		code:      "B7A0",
		stack:     []Value{NaN, NewInt(1)},
		wantStack: []Value{NaN},
	}, {
		name:      "shift out of range",
		code:      "AC",
		stack:     ints(1, 1024),
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}, {
		name:      "bitsize of nan",
		code:      "B602",
		stack:     []Value{NaN},
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}})
}

func TestCompare(t *testing.T) {
	runCases(t, []runCase{
		{name: "less", code: "B9", stack: ints(2, 3), wantStack: ints(-1)},
		{name: "equal", code: "BA", stack: ints(2, 3), wantStack: ints(0)},
		{name: "leq", code: "BB", stack: ints(3, 3), wantStack: ints(-1)},
		{name: "greater", code: "BC", stack: ints(2, 3), wantStack: ints(0)},
		{name: "neq", code: "BD", stack: ints(2, 3), wantStack: ints(-1)},
		{name: "geq", code: "BE", stack: ints(3, 2), wantStack: ints(-1)},
		{name: "cmp", code: "BF", stack: ints(2, 3), wantStack: ints(-1)},
		{name: "sgn", code: "B8", stack: ints(-5), wantStack: ints(-1)},
		{name: "eqint", code: "C003", stack: ints(3), wantStack: ints(-1)},
		{name: "lessint", code: "C1FF", stack: ints(-2), wantStack: ints(-1)},
		{name: "gtint", code: "C205", stack: ints(5), wantStack: ints(0)},
		{name: "neqint", code: "C300", stack: ints(1), wantStack: ints(-1)},
		{name: "isnan", code: "C4", stack: []Value{NaN}, wantStack: ints(-1)},
		{name: "isnan int", code: "C4", stack: ints(1), wantStack: ints(0)},
		{name: "quiet less", code: "B7B9", stack: []Value{NaN, NewInt(1)}, wantStack: []Value{NaN}},
		{name: "chknan", code: "C5", stack: []Value{NaN}, wantExit: ExcIntOverflow, wantStack: ints(0)},
		{name: "less nan", code: "B9", stack: []Value{NaN, NewInt(1)}, wantExit: ExcIntOverflow, wantStack: ints(0)},
	})
}

func TestDisassembleDiv(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"A904", "DIV"},
		{"A905", "DIVR"},
		{"A90E", "DIVMODC"},
		{"A93401", "RSHIFT# 2"},
		{"B7A904", "QDIV"},
		{"A605", "ADDCONST 5"},
		{"A7FE", "MULCONST -2"},
	}
	for _, c := range cases {
		ins, _, err := Decode(asm(t, c.code).BeginParse())
		if err != nil {
			t.Errorf("Decode(%s): %v", c.code, err)
			continue
		}
		if got := ins.String(); got != c.want {
			t.Errorf("Decode(%s) = %q, want %q", c.code, got, c.want)
		}
	}
}
