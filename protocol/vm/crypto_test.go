package vm

import (
	"crypto/sha256"
	"crypto/sha512"
	"math/big"
	"testing"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/testutil"
)

func bigBytes(b []byte) Value { return NewBigInt(new(big.Int).SetBytes(b)) }

func TestHashes(t *testing.T) {
	empty := cell.NewBuilder().EndCell().Hash()
	one := sha256.Sum256([]byte{0xa5})
	two := sha256.Sum256([]byte{0xa5, 0xa5})
	s512 := sha512.Sum512([]byte{0xa5})
	b2 := blake2b.Sum512([]byte{0xa5})
	k := sha3.NewLegacyKeccak256()
	k.Write([]byte{0xa5})
	keccak := k.Sum(nil)

	runCases(t, []runCase{
		{name: "hashcu", code: "C8 C9 F900", wantStack: []Value{bigBytes(empty[:])}},
		{name: "hashsu", code: "C8 C9 D0 F901", wantStack: []Value{bigBytes(empty[:])}},
		{name: "sha256u", code: "8B1A58 F902", wantStack: []Value{bigBytes(one[:])}},
		{name: "sha256u partial byte", code: "8B0C F902", wantExit: ExcCellUnderflow, wantStack: ints(0)},
		{name: "hashext sha256", code: "8B1A58 8B1A58 72 F90400", wantStack: []Value{bigBytes(two[:])}},
		{name: "hashext sha512", code: "8B1A58 71 F90401", wantStack: []Value{Tuple{bigBytes(s512[:32]), bigBytes(s512[32:])}}},
		{name: "hashext blake2b", code: "8B1A58 71 F90402", wantStack: []Value{Tuple{bigBytes(b2[:32]), bigBytes(b2[32:])}}},
		{name: "hashext keccak256", code: "8B1A58 71 F90403", wantStack: []Value{bigBytes(keccak)}},
		{name: "hashext from stack id", code: "8B1A58 71 70 F904FF", wantStack: []Value{bigBytes(one[:])}},
		{name: "hashexta", code: "C8 8B1A58 71 F90600 C9 D0 D749", wantStack: ints(256)},
		{name: "hashext unknown id", code: "71 F90410", wantExit: ExcInvalidOpcode, wantStack: ints(0)},
		{name: "hashext partial byte", code: "8B0C 71 F90400", wantExit: ExcCellUnderflow, wantStack: ints(0)},
	})
}

func TestCheckSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(zeroReader{})
	if err != nil {
		t.Fatal(err)
	}
	hash := sha256.Sum256([]byte("message"))
	sig := ed25519.Sign(priv, hash[:])
	sigSlice := func(sig []byte) Value {
		b := cell.NewBuilder()
		b.StoreBits(sig, 8*len(sig))
		return b.EndCell().BeginParse()
	}
	bad := append([]byte(nil), sig...)
	bad[0] ^= 1

	msg := cell.NewBuilder()
	msg.StoreBits([]byte("message"), 56)

	runCases(t, []runCase{{
		name:      "chksignu",
		code:      "F910",
		stack:     []Value{bigBytes(hash[:]), sigSlice(sig), bigBytes(pub)},
		wantStack: ints(-1),
	}, {
		name:      "chksignu bad signature",
		code:      "F910",
		stack:     []Value{bigBytes(hash[:]), sigSlice(bad), bigBytes(pub)},
		wantStack: ints(0),
	}, {
		name:      "chksigns",
		code:      "F911",
		stack:     []Value{msg.EndCell().BeginParse(), sigSlice(ed25519.Sign(priv, []byte("message"))), bigBytes(pub)},
		wantStack: ints(-1),
	}, {
		name:      "short signature",
		code:      "F910",
		stack:     []Value{bigBytes(hash[:]), sigSlice(sig[:32]), bigBytes(pub)},
		wantExit:  ExcCellUnderflow,
		wantStack: ints(0),
	}})
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestDataSize(t *testing.T) {
	child := cell.NewBuilder()
	child.StoreUint(0xff, 8)
	leaf := child.EndCell()
	root := cell.NewBuilder()
	root.StoreUint(0xabcd, 16)
	root.StoreRef(leaf)
	root.StoreRef(leaf)
	c := root.EndCell()

	runCases(t, []runCase{{
		name:      "cdatasize",
		code:      "F941",
		stack:     []Value{c, NewInt(10)},
		wantStack: ints(2, 24, 2),
	}, {
		name:      "cdatasize over bound",
		code:      "F941",
		stack:     []Value{c, NewInt(1)},
		wantExit:  ExcCellOverflow,
		wantStack: ints(0),
	}, {
		name:      "cdatasizeq over bound",
		code:      "F940",
		stack:     []Value{c, NewInt(1)},
		wantStack: ints(0),
	}, {
		name:      "cdatasizeq",
		code:      "F940",
		stack:     []Value{c, NewInt(10)},
		wantStack: ints(2, 24, 2, -1),
	}, {
		name:      "cdatasize null",
		code:      "F941",
		stack:     []Value{Null{}, NewInt(10)},
		wantStack: ints(0, 0, 0),
	}, {
		name:      "sdatasize",
		code:      "F943",
		stack:     []Value{c.BeginParse(), NewInt(10)},
		wantStack: ints(1, 24, 2),
	}, {
		name:      "negative bound",
		code:      "F941",
		stack:     []Value{c, NewInt(-1)},
		wantExit:  ExcRangeCheck,
		wantStack: ints(0),
	}})
}

func TestHashExtGas(t *testing.T) {
	// 66 bytes of SHA-256 input cost two units on top of the
	// instruction.
	data := make([]byte, 66)
	b := cell.NewBuilder()
	b.StoreBits(data, 8*len(data))
	res, err := Run(asm(t, "71 F90400"), WithStack(b.EndCell().BeginParse()))
	if err != nil {
		t.Fatal(err)
	}
	want := int64(18 + 34 + 2 + GasImplicitRet)
	if res.GasUsed != want {
		t.Errorf("gas used = %d, want %d", res.GasUsed, want)
	}
	sum := sha256.Sum256(data)
	testutil.ExpectDeepEqual(t, res.Stack.Items(), []Value{bigBytes(sum[:])}, "digest")
}
