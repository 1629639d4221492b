package vmutil

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vm"
)

func TestIsUnspendable(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"F200", true},  // THROW 0
		{"F22A", true},  // THROW 42
		{"F2A1", false}, // THROWIFNOT 33
		{"A0", false},
		{"", false},
	}
	for _, c := range cases {
		prog, err := NewBuilder().AddCode(c.code).Build()
		if err != nil {
			t.Fatal(err)
		}
		if got := IsUnspendable(prog); got != c.want {
			t.Errorf("IsUnspendable(%s) = %v want %v", c.code, got, c.want)
		}
	}
}

func sigSlice(sig []byte) cell.Slice {
	b := cell.NewBuilder()
	b.StoreBits(sig, 8*len(sig))
	return b.EndCell().BeginParse()
}

func TestSignatureProgram(t *testing.T) {
	pub, prv, _ := ed25519.GenerateKey(nil)
	prog, err := SignatureProgram(pub)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseSignatureProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pub) {
		t.Errorf("parsed key %x, want %x", got, pub)
	}

	hash := sha256.Sum256([]byte("message"))
	h := vm.NewBigInt(new(big.Int).SetBytes(hash[:]))
	sig := ed25519.Sign(prv, hash[:])

	cases := []struct {
		name string
		sig  []byte
		want int
	}{
		{"valid", sig, vm.ExitOK},
		{"invalid", make([]byte, ed25519.SignatureSize), ExcBadSignature},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := vm.Run(prog,
				vm.WithStack(h, sigSlice(c.sig)),
				vm.WithGas(vm.GasParams{Max: 10000, Credit: 10000}),
			)
			if err != nil {
				t.Fatal(err)
			}
			if res.ExitCode != c.want {
				t.Errorf("exit code %d, want %d", res.ExitCode, c.want)
			}
			if accepted := c.want == vm.ExitOK; res.Accepted != accepted {
				t.Errorf("accepted = %v, want %v", res.Accepted, accepted)
			}
		})
	}
}

func TestParseSignatureProgramErrors(t *testing.T) {
	for _, code := range []string{"", "A0", "8200", "F800"} {
		prog, err := NewBuilder().AddCode(code).Build()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseSignatureProgram(prog); err == nil {
			t.Errorf("ParseSignatureProgram(%s) = success, want error", code)
		}
	}
}

func TestMultiSigParams(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	cases := []struct {
		keys      []ed25519.PublicKey
		nrequired int
		ok        bool
	}{
		{nil, 0, true},
		{[]ed25519.PublicKey{pub}, 0, false},
		{[]ed25519.PublicKey{pub}, 2, false},
		{[]ed25519.PublicKey{pub}, -1, false},
		{[]ed25519.PublicKey{pub[:31]}, 1, false},
		{[]ed25519.PublicKey{pub, pub}, 1, true},
	}
	for i, c := range cases {
		_, err := MultiSigProgram(c.keys, c.nrequired)
		if (err == nil) != c.ok {
			t.Errorf("case %d: err = %v, want ok = %v", i, err, c.ok)
		}
	}
}

func TestMultiSigProgram(t *testing.T) {
	var (
		pubs []ed25519.PublicKey
		prvs []ed25519.PrivateKey
	)
	for i := 0; i < 3; i++ {
		pub, prv, _ := ed25519.GenerateKey(nil)
		pubs = append(pubs, pub)
		prvs = append(prvs, prv)
	}
	prog, err := MultiSigProgram(pubs, 2)
	if err != nil {
		t.Fatal(err)
	}

	hash := sha256.Sum256([]byte("block"))
	none := make([]byte, ed25519.SignatureSize)
	sign := func(i int) []byte { return ed25519.Sign(prvs[i], hash[:]) }

	cases := []struct {
		name string
		sigs [3][]byte
		want int
	}{
		{"all", [3][]byte{sign(0), sign(1), sign(2)}, vm.ExitOK},
		{"quorum", [3][]byte{sign(0), none, sign(2)}, vm.ExitOK},
		{"one", [3][]byte{none, sign(1), none}, ExcBadSignature},
		{"swapped", [3][]byte{sign(1), sign(0), none}, ExcBadSignature},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stack := []vm.Value{vm.NewBigInt(new(big.Int).SetBytes(hash[:]))}
			for _, s := range c.sigs {
				stack = append(stack, sigSlice(s))
			}
			res, err := vm.Run(prog, vm.WithStack(stack...))
			if err != nil {
				t.Fatal(err)
			}
			if res.ExitCode != c.want {
				t.Errorf("exit code %d, want %d", res.ExitCode, c.want)
			}
		})
	}
}
