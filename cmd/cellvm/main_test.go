package main

import (
	"encoding/hex"
	"strings"
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/mnill/tycho-vm/protocol/vm"
	"github.com/mnill/tycho-vm/protocol/vmutil"
)

func TestReadCode(t *testing.T) {
	fromArgs, err := readCode([]string{"72", "73 A0"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	fromStdin, err := readCode(nil, strings.NewReader("7273\nA0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if fromArgs.Hash() != fromStdin.Hash() {
		t.Errorf("args and stdin assemble differently: %s vs %s", fromArgs, fromStdin)
	}
	if fromArgs.BitLen() != 24 {
		t.Errorf("bits = %d, want 24", fromArgs.BitLen())
	}
	if _, err := readCode([]string{"7Z"}, nil); err == nil {
		t.Error("expected error for bad hex")
	}
}

func TestGasParams(t *testing.T) {
	defer func(l, m, c int64) { *gasLimit, *gasMax, *gasCredit = l, m, c }(*gasLimit, *gasMax, *gasCredit)

	*gasLimit = 0
	if got := gasParams(); got != vm.UnlimitedGas {
		t.Errorf("no limit: got %+v", got)
	}

	*gasLimit, *gasMax, *gasCredit = 100, 0, 10
	if got, want := gasParams(), (vm.GasParams{Max: 100, Limit: 100, Credit: 10}); got != want {
		t.Errorf("limit only: got %+v, want %+v", got, want)
	}

	*gasLimit, *gasMax = 100, 1000
	if got := gasParams(); got.Max != 1000 {
		t.Errorf("max = %d, want 1000", got.Max)
	}
}

func TestProgram(t *testing.T) {
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	pub[0] = 1
	key := hex.EncodeToString(pub)

	code, err := program([]string{key})
	if err != nil {
		t.Fatal(err)
	}
	got, err := vmutil.ParseSignatureProgram(code)
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(got) != key {
		t.Errorf("key = %x, want %s", got, key)
	}

	if _, err := program([]string{"1", key, key}); err != nil {
		t.Errorf("multisig: %v", err)
	}
	if _, err := program([]string{"abcd"}); err == nil {
		t.Error("expected error for short key")
	}
}
