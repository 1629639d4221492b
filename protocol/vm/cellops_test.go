package vm

import (
	"testing"

	"github.com/mnill/tycho-vm/protocol/cell"
)

func TestCellOps(t *testing.T) {
	runCases(t, []runCase{{
		name:      "store and load",
		code:      "75 C8 CB07 C9 D0 D307 D1",
		wantStack: ints(5),
		wantGas:   747,
	}, {
		name:      "endxc ordinary",
		code:      "C8 70 CF23", // NEWC 0 ENDXC
		wantStack: []Value{cell.Empty()},
	}, {
		name:      "endxc bad exotic",
		code:      "C8 7F CF23", // NEWC -1 ENDXC
		wantExit:  ExcCellOverflow,
		wantStack: ints(0),
	}, {
		name:      "signed",
		code:      "7F C8 CA07 C9 D0 D207 D1",
		wantStack: ints(-1),
	}, {
		name:      "value out of range",
		code:      "810100 C8 CB07",
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}, {
		name:      "negative unsigned",
		code:      "7F C8 CB07",
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}, {
		name:      "ends with data left",
		code:      "75 C8 CB07 C9 D0 D1",
		wantExit:  ExcCellUnderflow,
		wantStack: ints(0),
	}, {
		name:      "load past end",
		code:      "C8 C9 D0 D307",
		wantExit:  ExcCellUnderflow,
		wantStack: ints(0),
	}, {
		name:      "sbits",
		code:      "75 C8 CB07 C9 D0 D749",
		wantStack: ints(8),
	}, {
		name:      "bbits",
		code:      "C8 CF31",
		wantStack: ints(0),
	}, {
		name:      "ref round trip",
		code:      "C8 C9 C8 CC C9 D0 D4 D1 D0 D1",
		wantStack: nil,
	}, {
		name:      "pushslice",
		code:      "8B1A58 D307 D1",
		wantStack: ints(165),
	}, {
		name:      "stslice",
		code:      "8B1A58 C8 CE C9 D0 D307 D1",
		wantStack: ints(165),
	}, {
		name:      "empty slices equal",
		code:      "8B08 8B08 C705",
		wantStack: ints(-1),
	}, {
		name:      "sempty",
		code:      "8B1A58 C700",
		wantStack: ints(0),
	}, {
		name:      "little endian store",
		code:      "C8 CF29 C9 D0 D31F D1",
		stack:     ints(0x01020304),
		wantStack: ints(0x04030201),
	}, {
		name:      "little endian round trip",
		code:      "C8 CF29 C9 D0 D751 D1",
		stack:     ints(0x01020304),
		wantStack: ints(0x01020304),
	}, {
		name:      "builder type check",
		code:      "75 76 CB07",
		wantExit:  ExcTypeCheck,
		wantStack: ints(0),
	}})
}

func TestQuietStore(t *testing.T) {
	res, err := Run(asm(t, "810100 C8 CF0D07"))
	if err != nil {
		t.Fatal(err)
	}
	items := res.Stack.Items()
	if res.ExitCode != ExitOK || len(items) != 3 {
		t.Fatalf("exit %d, stack %s", res.ExitCode, res.Stack)
	}
	if x, ok := items[0].(Int); !ok || x.String() != "256" {
		t.Errorf("value = %v, want 256", items[0])
	}
	if b, ok := items[1].(*cell.Builder); !ok || b.BitLen() != 0 {
		t.Errorf("builder = %v, want an empty builder", items[1])
	}
	if x, ok := items[2].(Int); !ok || x.String() != "1" {
		t.Errorf("status = %v, want 1", items[2])
	}

	res, err = Run(asm(t, "75 C8 CF0D07"))
	if err != nil {
		t.Fatal(err)
	}
	items = res.Stack.Items()
	if len(items) != 2 {
		t.Fatalf("stack %s", res.Stack)
	}
	if b, ok := items[0].(*cell.Builder); !ok || b.BitLen() != 8 {
		t.Errorf("builder = %v, want 8 bits", items[0])
	}
	if x, ok := items[1].(Int); !ok || x.String() != "0" {
		t.Errorf("status = %v, want 0", items[1])
	}
}

func TestQuietLoad(t *testing.T) {
	res, err := Run(asm(t, "C8 C9 D0 D70D07"))
	if err != nil {
		t.Fatal(err)
	}
	items := res.Stack.Items()
	if res.ExitCode != ExitOK || len(items) != 2 {
		t.Fatalf("exit %d, stack %s", res.ExitCode, res.Stack)
	}
	if s, ok := items[0].(cell.Slice); !ok || !s.IsEmpty() {
		t.Errorf("slice = %v, want the untouched empty slice", items[0])
	}
	if x, ok := items[1].(Int); !ok || x.String() != "0" {
		t.Errorf("status = %v, want 0", items[1])
	}
}

func TestLoadGas(t *testing.T) {
	// Loading the same cell again costs the reload price.
	res, err := Run(asm(t, "C8 C9 20 D0 01 D0"))
	if err != nil {
		t.Fatal(err)
	}
	want := int64(18*4 + GasCellCreate + 2*18 + GasCellLoad + GasCellReload + GasImplicitRet)
	if res.GasUsed != want {
		t.Errorf("gas used = %d, want %d", res.GasUsed, want)
	}
}
