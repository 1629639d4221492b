package cell

import (
	"bytes"
	"testing"
)

func mustBits(t testing.TB, s string) *Builder {
	t.Helper()
	data, n, err := ParseBitString(s)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder()
	if err := b.StoreBits(data, n); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestEmptyHash(t *testing.T) {
	const want = "96a296d224f285c67bee93c30f8a309157f0daa35dc5b87e410b78630a09cfc7"
	if got := Empty().Hash().String(); got != want {
		t.Errorf("empty cell hash = %s want %s", got, want)
	}
	if got := NewBuilder().EndCell().Hash(); got != Empty().Hash() {
		t.Errorf("finalized empty builder hash = %s", got)
	}
}

func TestRepr(t *testing.T) {
	child := mustBits(t, "A").EndCell()
	b := mustBits(t, "C_") // single 1 bit
	b.StoreRef(child)
	c := b.EndCell()

	repr := c.Repr()
	// d1 = 1 ref, d2 = 0 + 1, data = 1 bit + tag,
	// child depth 0, child hash
	want := []byte{0x01, 0x01, 0xC0, 0x00, 0x00}
	want = append(want, child.hash[:]...)
	if !bytes.Equal(repr, want) {
		t.Errorf("repr = %x want %x", repr, want)
	}
	if c.Depth() != 1 || child.Depth() != 0 {
		t.Errorf("depths = %d, %d want 1, 0", c.Depth(), child.Depth())
	}
}

func TestHashDeterminism(t *testing.T) {
	child := mustBits(t, "DEADBEEF").EndCell()

	b1 := NewBuilder()
	b1.StoreUint(0x2AB, 10)
	b1.StoreRef(child)

	b2 := NewBuilder()
	b2.StoreUint(0x2, 2)
	b2.StoreUint(0xAB, 8)
	b2.StoreRef(mustBits(t, "DEADBEEF").EndCell())

	c1, c2 := b1.EndCell(), b2.EndCell()
	if c1.Hash() != c2.Hash() {
		t.Errorf("hashes differ: %s vs %s", c1.Hash(), c2.Hash())
	}
	if !c1.Equal(c2) {
		t.Error("Equal = false")
	}

	b3 := NewBuilder()
	b3.StoreUint(0x2AB, 10)
	if c3 := b3.EndCell(); c3.Hash() == c1.Hash() {
		t.Error("cell without ref has same hash as cell with ref")
	}
}

func TestLibraryCell(t *testing.T) {
	target := mustBits(t, "01").EndCell()
	b := NewBuilder()
	b.StoreUint(uint64(TypeLibraryRef), 8)
	h := target.Hash()
	b.StoreBits(h[:], 256)
	lib, err := b.EndExotic()
	if err != nil {
		t.Fatal(err)
	}
	if !lib.Exotic() || lib.Type() != TypeLibraryRef {
		t.Fatalf("lib exotic=%v type=%d", lib.Exotic(), lib.Type())
	}
	if got, ok := lib.LibraryHash(); !ok || got != h {
		t.Errorf("LibraryHash = %s, %v", got, ok)
	}
	if d1, _ := lib.Descriptors(); d1 != 8 {
		t.Errorf("d1 = %d want 8", d1)
	}

	bad := NewBuilder()
	bad.StoreUint(uint64(TypePruned), 8)
	if _, err := bad.EndExotic(); err != ErrInvalidExotic {
		t.Errorf("pruned EndExotic err = %v want %v", err, ErrInvalidExotic)
	}
}
