package cell

import (
	"math/big"
	"strconv"
)

// Slice is a read cursor over a bit range and a reference range of a
// cell. It is a small value: copying it forks an independent cursor.
// Every operation that fails leaves the cursor where it was.
type Slice struct {
	cell           *Cell
	bitPos, bitEnd int
	refPos, refEnd int
}

// Fork returns an independent cursor at the same position.
func (s Slice) Fork() Slice { return s }

// Cell returns the underlying cell.
func (s Slice) Cell() *Cell { return s.cell }

// BitsLeft returns the number of unread bits.
func (s Slice) BitsLeft() int { return s.bitEnd - s.bitPos }

// RefsLeft returns the number of unread references.
func (s Slice) RefsLeft() int { return s.refEnd - s.refPos }

// IsEmpty reports whether no bits and no references are left.
func (s Slice) IsEmpty() bool { return s.BitsLeft() == 0 && s.RefsLeft() == 0 }

// Range returns the bit and reference offsets into the cell.
func (s Slice) Range() (bitPos, bitEnd, refPos, refEnd int) {
	return s.bitPos, s.bitEnd, s.refPos, s.refEnd
}

func (s Slice) data() []byte {
	if s.cell == nil {
		return nil
	}
	return s.cell.data
}

func (s Slice) has(bits, refs int) bool {
	return bits >= 0 && refs >= 0 && bits <= s.BitsLeft() && refs <= s.RefsLeft()
}

// PreloadUint returns the next n <= 64 bits as an unsigned integer.
func (s Slice) PreloadUint(n int) (uint64, error) {
	if n > 64 {
		return 0, ErrRange
	}
	if !s.has(n, 0) {
		return 0, ErrCellUnderflow
	}
	return readBits(s.data(), s.bitPos, n), nil
}

// LoadUint is like PreloadUint but advances the cursor.
func (s *Slice) LoadUint(n int) (uint64, error) {
	v, err := s.PreloadUint(n)
	if err == nil {
		s.bitPos += n
	}
	return v, err
}

// PreloadInt returns the next n <= 64 bits as a signed integer.
func (s Slice) PreloadInt(n int) (int64, error) {
	v, err := s.PreloadUint(n)
	if err != nil || n == 0 {
		return 0, err
	}
	return int64(v<<(64-n)) >> (64 - n), nil
}

// LoadInt is like PreloadInt but advances the cursor.
func (s *Slice) LoadInt(n int) (int64, error) {
	v, err := s.PreloadInt(n)
	if err == nil {
		s.bitPos += n
	}
	return v, err
}

// PreloadBigInt returns the next n bits as an integer,
// two's complement if signed is set.
func (s Slice) PreloadBigInt(n int, signed bool) (*big.Int, error) {
	if !s.has(n, 0) {
		return nil, ErrCellUnderflow
	}
	nbytes := (n + 7) / 8
	buf := make([]byte, nbytes)
	copyBits(buf, nbytes*8-n, s.data(), s.bitPos, n)
	v := new(big.Int).SetBytes(buf)
	if signed && n > 0 && v.Bit(n-1) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(n)))
	}
	return v, nil
}

// LoadBigInt is like PreloadBigInt but advances the cursor.
func (s *Slice) LoadBigInt(n int, signed bool) (*big.Int, error) {
	v, err := s.PreloadBigInt(n, signed)
	if err == nil {
		s.bitPos += n
	}
	return v, err
}

// PreloadBits returns the next n bits, left-aligned.
func (s Slice) PreloadBits(n int) ([]byte, error) {
	if !s.has(n, 0) {
		return nil, ErrCellUnderflow
	}
	buf := make([]byte, (n+7)/8)
	copyBits(buf, 0, s.data(), s.bitPos, n)
	return buf, nil
}

// LoadBits is like PreloadBits but advances the cursor.
func (s *Slice) LoadBits(n int) ([]byte, error) {
	b, err := s.PreloadBits(n)
	if err == nil {
		s.bitPos += n
	}
	return b, err
}

// SkipBits advances the cursor by n bits.
func (s *Slice) SkipBits(n int) error {
	if !s.has(n, 0) {
		return ErrCellUnderflow
	}
	s.bitPos += n
	return nil
}

// PreloadRef returns unread reference i without consuming it.
func (s Slice) PreloadRef(i int) (*Cell, error) {
	if i < 0 || i >= s.RefsLeft() {
		return nil, ErrCellUnderflow
	}
	return s.cell.refs[s.refPos+i], nil
}

// LoadRef returns the next reference and advances past it.
func (s *Slice) LoadRef() (*Cell, error) {
	c, err := s.PreloadRef(0)
	if err == nil {
		s.refPos++
	}
	return c, err
}

// SkipRefs advances the cursor by n references.
func (s *Slice) SkipRefs(n int) error {
	if !s.has(0, n) {
		return ErrCellUnderflow
	}
	s.refPos += n
	return nil
}

// PreloadSlice returns a slice over the next bits and refs.
func (s Slice) PreloadSlice(bits, refs int) (Slice, error) {
	if !s.has(bits, refs) {
		return Slice{}, ErrCellUnderflow
	}
	s.bitEnd = s.bitPos + bits
	s.refEnd = s.refPos + refs
	return s, nil
}

// LoadSlice is like PreloadSlice but advances the cursor.
func (s *Slice) LoadSlice(bits, refs int) (Slice, error) {
	sub, err := s.PreloadSlice(bits, refs)
	if err == nil {
		s.bitPos += bits
		s.refPos += refs
	}
	return sub, err
}

// OnlyLast returns a slice over the last bits and refs.
func (s Slice) OnlyLast(bits, refs int) (Slice, error) {
	if !s.has(bits, refs) {
		return Slice{}, ErrCellUnderflow
	}
	s.bitPos = s.bitEnd - bits
	s.refPos = s.refEnd - refs
	return s, nil
}

// SkipLast drops the last bits and refs.
func (s *Slice) SkipLast(bits, refs int) error {
	if !s.has(bits, refs) {
		return ErrCellUnderflow
	}
	s.bitEnd -= bits
	s.refEnd -= refs
	return nil
}

// bitsEqualAt compares n bits of s starting at offset i with
// n bits of o starting at offset j.
func bitsEqualAt(s Slice, i int, o Slice, j int, n int) bool {
	for n > 0 {
		take := 64
		if take > n {
			take = n
		}
		if readBits(s.data(), s.bitPos+i, take) != readBits(o.data(), o.bitPos+j, take) {
			return false
		}
		i += take
		j += take
		n -= take
	}
	return true
}

// BitsEqual reports whether s and o have identical remaining bits.
// References are not compared.
func (s Slice) BitsEqual(o Slice) bool {
	return s.BitsLeft() == o.BitsLeft() && bitsEqualAt(s, 0, o, 0, s.BitsLeft())
}

// HasPrefix reports whether the bits of p are a prefix of those of s.
func (s Slice) HasPrefix(p Slice) bool {
	return p.BitsLeft() <= s.BitsLeft() && bitsEqualAt(s, 0, p, 0, p.BitsLeft())
}

// HasSuffix reports whether the bits of p are a suffix of those of s.
func (s Slice) HasSuffix(p Slice) bool {
	n := p.BitsLeft()
	return n <= s.BitsLeft() && bitsEqualAt(s, s.BitsLeft()-n, p, 0, n)
}

// LexCompare compares the remaining bits of s and o
// lexicographically, returning -1, 0 or 1.
func (s Slice) LexCompare(o Slice) int {
	n := s.BitsLeft()
	if o.BitsLeft() < n {
		n = o.BitsLeft()
	}
	for i := 0; i < n; {
		take := 64
		if take > n-i {
			take = n - i
		}
		a := readBits(s.data(), s.bitPos+i, take)
		b := readBits(o.data(), o.bitPos+i, take)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
		i += take
	}
	switch {
	case s.BitsLeft() < o.BitsLeft():
		return -1
	case s.BitsLeft() > o.BitsLeft():
		return 1
	}
	return 0
}

// CountLeading returns the number of leading bits equal to bit.
func (s Slice) CountLeading(bit bool) int {
	n := 0
	for i := s.bitPos; i < s.bitEnd && bitAt(s.data(), i) == bit; i++ {
		n++
	}
	return n
}

// CountTrailing returns the number of trailing bits equal to bit.
func (s Slice) CountTrailing(bit bool) int {
	n := 0
	for i := s.bitEnd - 1; i >= s.bitPos && bitAt(s.data(), i) == bit; i-- {
		n++
	}
	return n
}

// RemoveTrailing strips a completion tag: all trailing zero bits
// and the 1 bit before them. A slice of zeros becomes empty.
func (s *Slice) RemoveTrailing() {
	n := s.CountTrailing(false)
	if n < s.BitsLeft() {
		n++
	}
	s.bitEnd -= n
}

// Depth returns 0 if no references are left, otherwise one more
// than the deepest remaining reference.
func (s Slice) Depth() int {
	d := 0
	for i := s.refPos; i < s.refEnd; i++ {
		if r := s.cell.refs[i]; r.depth+1 > d {
			d = r.depth + 1
		}
	}
	return d
}

// ToCell returns a new cell holding the remaining bits and refs.
func (s Slice) ToCell() *Cell {
	var b Builder
	b.StoreSlice(s) // a slice always fits in an empty builder
	return b.EndCell()
}

func (s Slice) String() string {
	var buf []byte
	if n := s.BitsLeft(); n > 0 {
		buf = make([]byte, (n+7)/8)
		copyBits(buf, 0, s.data(), s.bitPos, n)
	}
	str := "x{" + BitString(buf, s.BitsLeft()) + "}"
	if r := s.RefsLeft(); r > 0 {
		str += " refs=" + strconv.Itoa(r)
	}
	return str
}
