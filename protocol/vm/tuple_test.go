package vm

import "testing"

func TestTupleOps(t *testing.T) {
	runCases(t, []runCase{
		{name: "tuple", code: "71 72 6F02", wantStack: []Value{Tuple(ints(1, 2))}, wantGas: 69},
		{name: "empty tuple", code: "6F00", wantStack: []Value{Tuple{}}},
		{name: "index", code: "71 72 6F02 6F11", wantStack: ints(2)},
		{name: "untuple", code: "71 72 6F02 6F22", wantStack: ints(1, 2)},
		{name: "unpackfirst", code: "71 72 6F02 6F31", wantStack: ints(1)},
		{name: "explode", code: "71 72 6F02 6F43", wantStack: ints(1, 2, 2)},
		{name: "setindex", code: "71 72 6F02 77 6F51", wantStack: []Value{Tuple(ints(1, 7))}},
		{name: "indexq out of range", code: "71 6F01 6F63", wantStack: []Value{Null{}}},
		{name: "indexq null", code: "6D 6F61", wantStack: []Value{Null{}}},
		{name: "setindexq extends", code: "6D 77 6F72", wantStack: []Value{Tuple{Null{}, Null{}, NewInt(7)}}},
		{name: "setindexq null noop", code: "6D 6D 6F72", wantStack: []Value{Null{}}},
		{name: "tuplevar", code: "71 72 72 6F80", wantStack: []Value{Tuple(ints(1, 2))}},
		{name: "tlen", code: "71 72 6F02 6F88", wantStack: ints(2)},
		{name: "qtlen", code: "71 6F89", wantStack: ints(-1)},
		{name: "istuple", code: "6F00 6F8A", wantStack: ints(-1)},
		{name: "last", code: "71 72 6F02 6F8B", wantStack: ints(2)},
		{name: "tpush", code: "6F00 75 6F8C", wantStack: []Value{Tuple(ints(5))}},
		{name: "tpop", code: "71 72 6F02 6F8D", wantStack: []Value{Tuple(ints(1)), NewInt(2)}},
		{name: "index2", code: "71 72 6F02 73 6F02 6FB1", wantStack: ints(2)},
		{name: "isnull", code: "6D 6E", wantStack: ints(-1)},
		{name: "isnull int", code: "71 6E", wantStack: ints(0)},
		{name: "nullswapif", code: "7F 6FA0", wantStack: []Value{Null{}, NewInt(-1)}},
		{name: "nullswapif zero", code: "70 6FA0", wantStack: ints(0)},
		{name: "nullswapifnot", code: "70 6FA1", wantStack: []Value{Null{}, NewInt(0)}},
	})
}

func TestTupleErrors(t *testing.T) {
	runCases(t, []runCase{{
		name:      "index out of range",
		code:      "71 6F01 6F11",
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}, {
		name:      "untuple wrong length",
		code:      "71 72 6F02 6F23",
		wantExit:  ExcTypeCheck,
		wantStack: ints(0),
	}, {
		name:      "index of int",
		code:      "71 6F10",
		wantExit:  ExcTypeCheck,
		wantStack: ints(0),
	}, {
		name:      "last of empty",
		code:      "6F00 6F8B",
		wantExit:  ExcTypeCheck,
		wantStack: ints(0),
	}, {
		name:      "tuple underflow",
		code:      "71 6F02",
		wantExit:  ExcStackUnderflow,
		wantStack: ints(0),
	}})
}
