package vm

import "testing"

func TestVarInts(t *testing.T) {
	runCases(t, []runCase{
		{name: "grams", code: "C8 8101F4 FA02 C9 D0 FA00 D1", wantStack: ints(500)},
		{name: "varint16", code: "C8 7F FA03 C9 D0 FA01 D1", wantStack: ints(-1)},
		{name: "varuint32", code: "C8 8101F4 FA06 C9 D0 FA04 D1", wantStack: ints(500)},
		{name: "varint32", code: "C8 80F6 FA07 C9 D0 FA05 D1", wantStack: ints(-10)},
		{name: "zero grams", code: "C8 70 FA02 CF31", wantStack: ints(4)},
		{name: "grams width", code: "C8 8101F4 FA02 CF31", wantStack: ints(20)},
		{name: "negative grams", code: "C8 7F FA02", wantExit: ExcRangeCheck, wantStack: ints(0)},
		{name: "truncated", code: "C8 C9 D0 FA00", wantExit: ExcCellUnderflow, wantStack: ints(0)},
	})
}

func TestVarIntLen(t *testing.T) {
	cases := []struct {
		x      int64
		signed bool
		want   int
		ok     bool
	}{
		{0, false, 0, true},
		{0, true, 0, true},
		{255, false, 1, true},
		{255, true, 2, true},
		{-128, true, 1, true},
		{-129, true, 2, true},
		{-1, false, 0, false},
	}
	for _, c := range cases {
		n, ok := varIntLen(NewInt(c.x).v, c.signed)
		if n != c.want || ok != c.ok {
			t.Errorf("varIntLen(%d, %v) = %d, %v, want %d, %v", c.x, c.signed, n, ok, c.want, c.ok)
		}
	}
}
