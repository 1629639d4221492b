package cell

import (
	"math/big"
	"strconv"

	"github.com/mnill/tycho-vm/errors"
)

// Builder accumulates bits and references for a new cell.
// A failed store leaves the builder unchanged.
// The zero value is an empty builder ready to use.
type Builder struct {
	data  [maxBytes]byte
	bits  int
	refs  [MaxRefs]*Cell
	nrefs int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return new(Builder) }

// Clone returns an independent copy of b.
func (b *Builder) Clone() *Builder {
	b2 := *b
	return &b2
}

// BitLen returns the number of stored bits.
func (b *Builder) BitLen() int { return b.bits }

// RefLen returns the number of stored references.
func (b *Builder) RefLen() int { return b.nrefs }

// RemainingBits returns how many more bits fit.
func (b *Builder) RemainingBits() int { return MaxBits - b.bits }

// RemainingRefs returns how many more references fit.
func (b *Builder) RemainingRefs() int { return MaxRefs - b.nrefs }

// CanExtendBy reports whether bits and refs more would fit.
func (b *Builder) CanExtendBy(bits, refs int) bool {
	return bits >= 0 && refs >= 0 && b.bits+bits <= MaxBits && b.nrefs+refs <= MaxRefs
}

// Depth returns the depth the finished cell would have.
func (b *Builder) Depth() int {
	d := 0
	for _, r := range b.refs[:b.nrefs] {
		if r.depth+1 > d {
			d = r.depth + 1
		}
	}
	return d
}

// StoreUint appends the low n <= 64 bits of v.
// It fails with ErrRange if v does not fit in n bits.
func (b *Builder) StoreUint(v uint64, n int) error {
	if n > 64 {
		return ErrRange
	}
	if !b.CanExtendBy(n, 0) {
		return ErrCellOverflow
	}
	if n < 64 && v>>n != 0 {
		return ErrRange
	}
	writeBits(b.data[:], b.bits, v, n)
	b.bits += n
	return nil
}

// StoreInt appends v as an n-bit two's complement integer.
func (b *Builder) StoreInt(v int64, n int) error {
	if n > 64 {
		return ErrRange
	}
	if !b.CanExtendBy(n, 0) {
		return ErrCellOverflow
	}
	if n == 0 && v != 0 || n < 64 && n > 0 && (v < -1<<(n-1) || v >= 1<<(n-1)) {
		return ErrRange
	}
	writeBits(b.data[:], b.bits, uint64(v), n)
	b.bits += n
	return nil
}

// StoreBigInt appends x as an n-bit integer, two's complement
// if signed is set. It fails with ErrRange if x does not fit.
func (b *Builder) StoreBigInt(x *big.Int, n int, signed bool) error {
	if !b.CanExtendBy(n, 0) {
		return ErrCellOverflow
	}
	if !FitsBits(x, n, signed) {
		return ErrRange
	}
	if n == 0 {
		return nil
	}
	nbytes := (n + 7) / 8
	buf := make([]byte, nbytes)
	twosComplement(x, n).FillBytes(buf)
	copyBits(b.data[:], b.bits, buf, nbytes*8-n, n)
	b.bits += n
	return nil
}

// StoreBits appends the first n bits of data (left-aligned).
func (b *Builder) StoreBits(data []byte, n int) error {
	if n > len(data)*8 {
		return ErrRange
	}
	if !b.CanExtendBy(n, 0) {
		return ErrCellOverflow
	}
	copyBits(b.data[:], b.bits, data, 0, n)
	b.bits += n
	return nil
}

// StoreSame appends n copies of bit.
func (b *Builder) StoreSame(n int, bit bool) error {
	if !b.CanExtendBy(n, 0) {
		return ErrCellOverflow
	}
	var v uint64
	if bit {
		v = ^uint64(0)
	}
	for off, left := b.bits, n; left > 0; {
		take := 64
		if take > left {
			take = left
		}
		writeBits(b.data[:], off, v, take)
		off += take
		left -= take
	}
	b.bits += n
	return nil
}

// StoreRef appends a reference to c.
func (b *Builder) StoreRef(c *Cell) error {
	if !b.CanExtendBy(0, 1) {
		return ErrCellOverflow
	}
	b.refs[b.nrefs] = c
	b.nrefs++
	return nil
}

// StoreSlice appends the remaining bits and references of s.
func (b *Builder) StoreSlice(s Slice) error {
	if !b.CanExtendBy(s.BitsLeft(), s.RefsLeft()) {
		return ErrCellOverflow
	}
	copyBits(b.data[:], b.bits, s.data(), s.bitPos, s.BitsLeft())
	b.bits += s.BitsLeft()
	for i := s.refPos; i < s.refEnd; i++ {
		b.refs[b.nrefs] = s.cell.refs[i]
		b.nrefs++
	}
	return nil
}

// StoreBuilder appends the contents of o.
func (b *Builder) StoreBuilder(o *Builder) error {
	if !b.CanExtendBy(o.bits, o.nrefs) {
		return ErrCellOverflow
	}
	copyBits(b.data[:], b.bits, o.data[:], 0, o.bits)
	b.bits += o.bits
	copy(b.refs[b.nrefs:], o.refs[:o.nrefs])
	b.nrefs += o.nrefs
	return nil
}

// EndCell returns an ordinary cell with the builder's contents.
// It does not check the depth; use Build for cells made from
// untrusted references.
func (b *Builder) EndCell() *Cell {
	return b.end(false)
}

// Build is EndCell, failing with ErrCellOverflow if the cell would
// be deeper than MaxDepth.
func (b *Builder) Build() (*Cell, error) {
	if d := b.Depth(); d > MaxDepth {
		return nil, errors.WithDetailf(ErrCellOverflow, "cell depth %d exceeds %d", d, MaxDepth)
	}
	return b.end(false), nil
}

func (b *Builder) end(exotic bool) *Cell {
	var data []byte
	if b.bits > 0 {
		data = append([]byte(nil), b.data[:(b.bits+7)/8]...)
	}
	var refs []*Cell
	if b.nrefs > 0 {
		refs = append([]*Cell(nil), b.refs[:b.nrefs]...)
	}
	return newCell(data, b.bits, refs, exotic)
}

// EndExotic returns an exotic cell whose type is given by the first
// data byte. Only library reference cells (type 2, 256-bit hash,
// no references) are supported.
func (b *Builder) EndExotic() (*Cell, error) {
	if b.bits < 8 {
		return nil, ErrInvalidExotic
	}
	if b.data[0] != TypeLibraryRef || b.bits != 8+8*HashSize || b.nrefs != 0 {
		return nil, ErrInvalidExotic
	}
	return b.end(true), nil
}

// Slice returns a slice over a cell with the builder's contents.
func (b *Builder) Slice() Slice {
	return b.EndCell().BeginParse()
}

func (b *Builder) String() string {
	s := "BC{" + BitString(b.data[:], b.bits) + "}"
	if b.nrefs > 0 {
		s += " refs=" + strconv.Itoa(b.nrefs)
	}
	return s
}
