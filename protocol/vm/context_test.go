package vm

import (
	"crypto/sha512"
	"math/big"
	"testing"

	"github.com/mnill/tycho-vm/testutil"
)

// testParams returns a parameter tuple with NOW, the logical times
// and the random seed set.
func testParams(seed int64) Tuple {
	return Tuple{
		NewInt(0x076ef1ea), NewInt(0), NewInt(0),
		NewInt(1700000000), NewInt(100), NewInt(200),
		NewInt(seed), Tuple{NewInt(1000), Null{}},
	}
}

func TestContextOps(t *testing.T) {
	ctx := WithContext(Tuple{testParams(0)})
	runCases(t, []runCase{
		{name: "now", code: "F823", opts: []Option{ctx}, wantStack: ints(1700000000)},
		{name: "ltime", code: "F825", opts: []Option{ctx}, wantStack: ints(200)},
		{name: "balance", code: "F827", opts: []Option{ctx}, wantStack: []Value{Tuple{NewInt(1000), Null{}}}},
		{name: "missing param", code: "F82C", opts: []Option{ctx}, wantStack: []Value{Null{}}},
		{name: "no params", code: "F823", wantExit: ExcTypeCheck, wantStack: ints(0)},
		{name: "globals", code: "75 F863 F843 F841", wantStack: []Value{NewInt(5), Null{}}},
		{name: "globvar", code: "75 72 F860 72 F840", wantStack: ints(5)},
		{name: "unset global", code: "F845", wantStack: []Value{Null{}}},
		{name: "null beyond length", code: "6D F865 F845", wantStack: []Value{Null{}}},
		{name: "setrand", code: "77 F814 F826", opts: []Option{ctx}, wantStack: ints(7)},
		{name: "gasconsumed", code: "F806", wantStack: ints(26)},
	})
}

func TestRandom(t *testing.T) {
	run := func(code string) []Value {
		res, err := Run(asm(t, code), WithContext(Tuple{testParams(0)}))
		if err != nil {
			t.Fatal(err)
		}
		if res.ExitCode != ExitOK {
			t.Fatalf("%s: exit code %d", code, res.ExitCode)
		}
		return res.Stack.Items()
	}

	var seed [32]byte
	sum := sha512.Sum512(seed[:])
	want := new(big.Int).SetBytes(sum[32:])
	next := sha512.Sum512(sum[:32])
	want2 := new(big.Int).SetBytes(next[32:])

	got := run("F810 F810")
	testutil.ExpectDeepEqual(t, got, []Value{NewBigInt(want), NewBigInt(want2)}, "RANDU256 twice")
	testutil.ExpectDeepEqual(t, run("F810 F810"), got, "second run")

	// RAND scales the number into [0, n).
	got = run("8064 F811")
	scaled := new(big.Int).Mul(want, big.NewInt(100))
	scaled.Rsh(scaled, 256)
	testutil.ExpectDeepEqual(t, got, []Value{NewBigInt(scaled)}, "RAND 100")
}
