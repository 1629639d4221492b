// Package cell implements the immutable, content-addressed cells that
// bytecode and persistent data are encoded in.
//
// A Cell holds up to MaxBits bits and up to MaxRefs references to
// other cells. Cells are built bottom-up by a Builder and never change
// afterward, so a DAG of cells can be shared freely between goroutines.
// A Slice is a cheap read cursor over a cell.
package cell

import (
	"encoding/hex"

	"github.com/btcsuite/fastsha256"

	"github.com/mnill/tycho-vm/errors"
)

const (
	MaxBits  = 1023
	MaxRefs  = 4
	MaxDepth = 1024
	HashSize = 32

	maxBytes = (MaxBits + 7) / 8
	maxRepr  = 2 + maxBytes + MaxRefs*(2+HashSize)
)

// Exotic cell types. Only library references can be built.
const (
	TypeOrdinary   byte = 0xff
	TypePruned     byte = 1
	TypeLibraryRef byte = 2
	TypeMerkle     byte = 3
	TypeMerkleUpd  byte = 4
)

var (
	ErrCellOverflow  = errors.New("cell overflow")
	ErrCellUnderflow = errors.New("cell underflow")
	ErrRange         = errors.New("value out of range")
	ErrInvalidExotic = errors.New("invalid exotic cell")
)

// Hash is a cell representation hash.
type Hash [HashSize]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Cell is an immutable tree node.
type Cell struct {
	data   []byte // (bits+7)/8 bytes; bits past the end are zero
	bits   int
	refs   []*Cell
	exotic bool
	depth  int
	hash   Hash
}

var empty = newCell(nil, 0, nil, false)

// Empty returns the cell with no bits and no references.
func Empty() *Cell { return empty }

func newCell(data []byte, bits int, refs []*Cell, exotic bool) *Cell {
	c := &Cell{data: data, bits: bits, refs: refs, exotic: exotic}
	for _, r := range refs {
		if r.depth+1 > c.depth {
			c.depth = r.depth + 1
		}
	}
	var buf [maxRepr]byte
	c.hash = fastsha256.Sum256(c.appendRepr(buf[:0]))
	return c
}

// BitLen returns the number of data bits.
func (c *Cell) BitLen() int { return c.bits }

// RefLen returns the number of references.
func (c *Cell) RefLen() int { return len(c.refs) }

// Ref returns reference i, or nil if i is out of range.
func (c *Cell) Ref(i int) *Cell {
	if i < 0 || i >= len(c.refs) {
		return nil
	}
	return c.refs[i]
}

// Data returns a copy of the data bits, left-aligned,
// with unused trailing bits zero.
func (c *Cell) Data() []byte {
	return append([]byte(nil), c.data...)
}

// Hash returns the representation hash.
func (c *Cell) Hash() Hash { return c.hash }

// Depth returns 0 for a cell without references,
// otherwise one more than the deepest reference.
func (c *Cell) Depth() int { return c.depth }

// Level is always 0 for cells built by this package.
func (c *Cell) Level() int { return 0 }

// Exotic reports whether c is an exotic cell.
func (c *Cell) Exotic() bool { return c.exotic }

// Type returns the exotic type byte, or TypeOrdinary.
func (c *Cell) Type() byte {
	if !c.exotic || c.bits < 8 {
		return TypeOrdinary
	}
	return c.data[0]
}

// LibraryHash returns the hash referenced by a library cell.
func (c *Cell) LibraryHash() (h Hash, ok bool) {
	if c.Type() != TypeLibraryRef {
		return h, false
	}
	copy(h[:], c.data[1:])
	return h, true
}

// Descriptors returns the two descriptor bytes of the
// cell representation.
func (c *Cell) Descriptors() (d1, d2 byte) {
	d1 = byte(len(c.refs))
	if c.exotic {
		d1 |= 8
	}
	d2 = byte(c.bits/8 + (c.bits+7)/8)
	return d1, d2
}

// Repr returns the byte string whose SHA-256 is the cell hash:
// the descriptors, the data padded with a completion tag,
// then the depth and the hash of every reference.
func (c *Cell) Repr() []byte {
	return c.appendRepr(make([]byte, 0, maxRepr))
}

func (c *Cell) appendRepr(buf []byte) []byte {
	d1, d2 := c.Descriptors()
	buf = append(buf, d1, d2)
	start := len(buf)
	buf = append(buf, c.data...)
	if rem := c.bits % 8; rem != 0 {
		buf[start+c.bits/8] |= 0x80 >> rem
	}
	for _, r := range c.refs {
		buf = append(buf, byte(r.depth>>8), byte(r.depth))
	}
	for _, r := range c.refs {
		buf = append(buf, r.hash[:]...)
	}
	return buf
}

// BeginParse returns a Slice over all of c.
func (c *Cell) BeginParse() Slice {
	return Slice{cell: c, bitEnd: c.bits, refEnd: len(c.refs)}
}

// Equal reports whether c and o have the same hash.
func (c *Cell) Equal(o *Cell) bool {
	return c == o || (c != nil && o != nil && c.hash == o.hash)
}

func (c *Cell) String() string {
	return "C{" + c.hash.String() + "}"
}
