package vm

import (
	"strings"
	"testing"
)

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	f()
}

func TestTrieConstruction(t *testing.T) {
	expectPanic(t, "duplicate prefix", func() {
		newTrie([]opEntry{op("A", 0xA0, 8, execNop)}, []opEntry{op("B", 0xA0, 8, execNop)})
	})
	expectPanic(t, "prefix wider than its length", func() {
		newTrie([]opEntry{op("A", 0x1A0, 8, execNop)})
	})
	expectPanic(t, "prefix too long", func() {
		newTrie([]opEntry{op("A", 0, maxPrefixBits+1, execNop)})
	})
}

func TestLongestPrefix(t *testing.T) {
	tr := newTrie([]opEntry{
		op("SHORT", 0xA, 4, execNop),
		op("LONG", 0xA0, 8, execNop),
	})
	cases := []struct {
		code string
		want string
	}{
		{"A0", "LONG"},
		{"A1", "SHORT"},
		{"A", "SHORT"},
	}
	for _, c := range cases {
		ins, _, err := decodeWith(tr, asm(t, c.code).BeginParse())
		if err != nil {
			t.Errorf("decode %s: %v", c.code, err)
			continue
		}
		if ins.Name != c.want {
			t.Errorf("decode %s = %s, want %s", c.code, ins.Name, c.want)
		}
	}
	if _, _, err := decodeWith(tr, asm(t, "B0").BeginParse()); err == nil {
		t.Error("decode B0 succeeded on a table without it")
	}
}

func TestDecode(t *testing.T) {
	ins, rest, err := Decode(asm(t, "A904 72").BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	if ins.Name != "DIV" || ins.Bits != 16 || rest.BitsLeft() != 8 {
		t.Errorf("got %s of %d bits with %d left", ins, ins.Bits, rest.BitsLeft())
	}

	for _, code := range []string{"A90F", "82", "FFF", "1011"} {
		if _, _, err := Decode(asm(t, code).BeginParse()); err == nil {
			t.Errorf("Decode(%s) succeeded", code)
		}
	}
}

func TestDisassemble(t *testing.T) {
	ref := asm(t, "72")
	code := asmRefs(t, "72 7F A0 B7A904 927172 DB3D FEF16869", ref)
	list, err := Disassemble(code.BeginParse())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"PUSHINT 2",
		"PUSHINT -1",
		"ADD",
		"QDIV",
		"PUSHCONT x{7172}",
		"JMPREF (" + ref.String() + ")",
		`DEBUGSTR "hi"`,
	}
	got := strings.Split(strings.TrimSuffix(Format(list), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d instructions:\n%s", len(got), Format(list))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %q, want %q", i, got[i], want[i])
		}
	}

	list, err = Disassemble(asm(t, "72 B7FF").BeginParse())
	if err == nil || len(list) != 1 {
		t.Errorf("truncated listing: %d instructions, err %v", len(list), err)
	}
}

func TestCodepage(t *testing.T) {
	runCases(t, []runCase{
		{name: "setcp 0", code: "FF00 72", wantStack: ints(2)},
		{name: "setcp 1", code: "FF01", wantExit: ExcInvalidOpcode, wantStack: ints(0)},
		{name: "setcp -1", code: "FFFF", wantExit: ExcInvalidOpcode, wantStack: ints(0)},
		{name: "setcpx", code: "70 FFF0 72", wantStack: ints(2)},
		{name: "setcpx range", code: "FFF0", stack: ints(1 << 15), wantExit: ExcRangeCheck, wantStack: ints(0)},
	})
}
