package vm

import (
	"testing"

	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/testutil"
)

// asmRefs is asm with references appended to the code cell.
func asmRefs(t testing.TB, hex string, refs ...*cell.Cell) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	if err := b.StoreSlice(asm(t, hex).BeginParse()); err != nil {
		t.Fatal(err)
	}
	for _, r := range refs {
		if err := b.StoreRef(r); err != nil {
			t.Fatal(err)
		}
	}
	return b.EndCell()
}

func TestControlFlow(t *testing.T) {
	runCases(t, []runCase{
		{name: "execute", code: "71 91A4 D8", wantStack: ints(2)},
		{name: "execute returns", code: "9172 D8 73", wantStack: ints(2, 3)},
		{name: "jmpx", code: "9172 D9 73", wantStack: ints(2)},
		{name: "callxargs", code: "75 71 72 91A0 DA21", wantStack: ints(5, 3)},
		{name: "if taken", code: "75 7F 91A4 DE", wantStack: ints(6)},
		{name: "if skipped", code: "75 70 91A4 DE", wantStack: ints(5)},
		{name: "ifnot", code: "75 70 91A4 DF", wantStack: ints(6)},
		{name: "ifjmp", code: "7F 9171 E0 72", wantStack: ints(1)},
		{name: "ifnotjmp", code: "7F 9171 E1 72", wantStack: ints(2)},
		{name: "ifelse true", code: "7F 9171 9172 E2", wantStack: ints(1)},
		{name: "ifelse false", code: "70 9171 9172 E2", wantStack: ints(2)},
		{name: "ifret", code: "7F DC 72", wantStack: nil},
		{name: "ifret not taken", code: "70 DC 72", wantStack: ints(2)},
		{name: "ifnotret", code: "70 DD 72", wantStack: nil},
		{name: "condsel", code: "E304", stack: ints(-1, 5, 6), wantStack: ints(5)},
		{name: "condsel false", code: "E304", stack: ints(0, 5, 6), wantStack: ints(6)},
		{name: "ret", code: "71 DB30 72", wantStack: ints(1)},
		{name: "retalt", code: "71 DB31 72", wantExit: ExitAlt, wantStack: ints(1)},
		{name: "branch", code: "70 DB32", wantExit: ExitAlt},
		{name: "execute non-continuation", code: "71 D8", wantExit: ExcTypeCheck, wantStack: ints(0)},
	})
}

func TestLoops(t *testing.T) {
	runCases(t, []runCase{
		{name: "repeat", code: "70 73 91A4 E4", wantStack: ints(3)},
		{name: "repeat zero", code: "70 70 91A4 E4", wantStack: ints(0)},
		{name: "repeat negative", code: "70 7F 91A4 E4", wantStack: ints(0)},
		{name: "repeatend", code: "70 73 E5 A4", wantStack: ints(3)},
		{name: "until", code: "70 94A420C204 E6", wantStack: ints(5)},
		{name: "untilend", code: "70 E7 A4 20 C204", wantStack: ints(5)},
		{name: "while", code: "70 9320C103 91A4 E8", wantStack: ints(3)},
		{name: "whileend", code: "70 9320C103 E9 A4", wantStack: ints(3)},
		{name: "againbrk", code: "70 96A420C204E308 E31A", wantStack: ints(5)},
		{name: "againendbrk", code: "70 E31B A4 20 C204 E308", wantStack: ints(5)},
		{name: "againend retalt", code: "70 EB A4 20 C204 E308", wantExit: ExitAlt, wantStack: ints(5)},
		{name: "repeat count range", code: "70 8100FF 91A4 E4", wantStack: ints(255)},
	})
}

func TestRefs(t *testing.T) {
	push2 := asm(t, "72")
	cases := []struct {
		name string
		code *cell.Cell
		want []Value
	}{
		{"jmpref", asmRefs(t, "DB3D 73", push2), ints(2)},
		{"callref", asmRefs(t, "DB3C 73", push2), ints(2, 3)},
		{"ifref", asmRefs(t, "7F E300 73", push2), ints(2, 3)},
		{"ifref skipped", asmRefs(t, "70 E300 73", push2), ints(3)},
		{"ifelseref true", asmRefs(t, "7F 9171 E30E", push2), ints(1)},
		{"ifelseref false", asmRefs(t, "70 9171 E30E", push2), ints(2)},
		{"implicit jmpref", asmRefs(t, "71", push2), ints(1, 2)},
		{"pushrefcont", asmRefs(t, "8A D8 73", push2), ints(2, 3)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := Run(c.code)
			if err != nil {
				t.Fatal(err)
			}
			if res.ExitCode != ExitOK {
				t.Fatalf("exit code = %d (stack %s)", res.ExitCode, res.Stack)
			}
			testutil.ExpectDeepEqual(t, res.Stack.Items(), c.want, "stack")
		})
	}
}

func TestTry(t *testing.T) {
	runCases(t, []runCase{{
		name:      "handler gets the code",
		code:      "91A0 9131 F2FF",
		wantStack: ints(2),
		wantGas:   174,
	}, {
		name:      "body succeeds",
		code:      "9172 9131 F2FF 73",
		wantStack: ints(2, 3),
	}, {
		name:      "handler gets the argument",
		code:      "94 77F2C864 9130 F2FF",
		wantStack: ints(7),
	}, {
		name:      "c2 restored after try",
		code:      "9172 9131 F2FF F22A",
		wantExit:  42,
		wantStack: ints(0),
	}, {
		name:      "throwany",
		code:      "8064 F2F0",
		wantExit:  100,
		wantStack: ints(0),
	}, {
		name:      "throwargany",
		code:      "77 8064 F2F1",
		wantExit:  100,
		wantStack: ints(7),
	}, {
		name:      "throwanyif not taken",
		code:      "8064 70 F2F2",
		wantStack: nil,
	}})
}
