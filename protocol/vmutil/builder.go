package vmutil

import (
	"math/big"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// ErrTooLarge is returned by Build when an instruction cannot be
// encoded in a single cell.
var ErrTooLarge = errors.New("instruction too large")

// Builder assembles a program one instruction at a time. Programs
// longer than one cell continue in a trailing reference, which the
// machine enters by an implicit jump.
type Builder struct {
	instrs []*cell.Builder
	err    error
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(f func(ins *cell.Builder) error) *Builder {
	if b.err != nil {
		return b
	}
	ins := cell.NewBuilder()
	if err := f(ins); err != nil {
		b.err = errors.Sub(ErrTooLarge, err)
		return b
	}
	b.instrs = append(b.instrs, ins)
	return b
}

// AddOp adds an instruction given as its first bits bits of code.
func (b *Builder) AddOp(code uint64, bits int) *Builder {
	return b.add(func(ins *cell.Builder) error { return ins.StoreUint(code, bits) })
}

// AddCode adds instructions written in hex bit-string notation,
// such as "A0" or "x{8B1_}".
func (b *Builder) AddCode(hex string) *Builder {
	return b.add(func(ins *cell.Builder) error {
		data, n, err := cell.ParseBitString(hex)
		if err != nil {
			return err
		}
		return ins.StoreBits(data, n)
	})
}

// AddInt64 adds the shortest PUSHINT for n.
func (b *Builder) AddInt64(n int64) *Builder {
	return b.AddBigInt(big.NewInt(n))
}

// AddBigInt adds the shortest PUSHINT for x, which must fit
// in 257 signed bits.
func (b *Builder) AddBigInt(x *big.Int) *Builder {
	return b.add(func(ins *cell.Builder) error {
		if !cell.FitsBits(x, 257, true) {
			return errors.WithDetailf(cell.ErrRange, "%s does not fit in 257 bits", x)
		}
		if x.IsInt64() {
			switch n := x.Int64(); {
			case n >= -5 && n <= 10:
				return ins.StoreUint(0x70|uint64(n&15), 8)
			case n >= -128 && n < 128:
				return seq(ins.StoreUint(0x80, 8), func() error { return ins.StoreInt(n, 8) })
			case n >= -32768 && n < 32768:
				return seq(ins.StoreUint(0x81, 8), func() error { return ins.StoreInt(n, 16) })
			}
		}
		l := 0
		for !cell.FitsBits(x, 8*l+19, true) {
			l++
		}
		n := 8*l + 19
		return seq(ins.StoreUint(0x82<<5|uint64(l), 13), func() error { return ins.StoreBigInt(x, n, true) })
	})
}

// AddSlice adds a PUSHSLICE of s.
func (b *Builder) AddSlice(s cell.Slice) *Builder {
	return b.add(func(ins *cell.Builder) error {
		bits, refs := s.BitsLeft(), s.RefsLeft()
		switch {
		case refs == 0 && bits <= 123:
			x := (bits + 4) / 8 // 8x+4 bits with the completion tag
			return seq(ins.StoreUint(0x8B<<4|uint64(x), 12), func() error { return storeTagged(ins, s, 8*x+4) })
		case refs > 0 && bits <= 248:
			x := (bits + 7) / 8
			return seq(ins.StoreUint(0x8C<<7|uint64(refs-1)<<5|uint64(x), 15), func() error { return storeTagged(ins, s, 8*x+1) })
		default:
			x := (bits + 2) / 8
			return seq(ins.StoreUint(0x8D<<10|uint64(refs)<<7|uint64(x), 18), func() error { return storeTagged(ins, s, 8*x+6) })
		}
	})
}

// storeTagged stores s padded to n bits with a completion tag.
func storeTagged(ins *cell.Builder, s cell.Slice, n int) error {
	tail := n - s.BitsLeft() - 1
	return seq(ins.StoreSlice(s), func() error { return ins.StoreUint(1, 1) }, func() error { return ins.StoreSame(tail, false) })
}

// AddRef adds a PUSHREF of c.
func (b *Builder) AddRef(c *cell.Cell) *Builder {
	return b.add(func(ins *cell.Builder) error {
		return seq(ins.StoreUint(0x88, 8), func() error { return ins.StoreRef(c) })
	})
}

// AddCont adds a PUSHCONT of the program in body. Bodies that are
// not a whole number of bytes are pushed by reference.
func (b *Builder) AddCont(body *Builder) *Builder {
	c, err := body.Build()
	if err != nil {
		b.err = err
		return b
	}
	bits, refs := c.BitLen(), c.RefLen()
	if bits%8 != 0 || refs > 3 {
		return b.AddContRef(c)
	}
	return b.add(func(ins *cell.Builder) error {
		s := c.BeginParse()
		if refs == 0 && bits <= 120 {
			return seq(ins.StoreUint(0x9<<4|uint64(bits/8), 8), func() error { return ins.StoreSlice(s) })
		}
		return seq(ins.StoreUint(0x8E<<8|uint64(refs)<<7|uint64(bits/8), 16), func() error { return ins.StoreSlice(s) })
	})
}

// AddContRef adds a PUSHREFCONT of c.
func (b *Builder) AddContRef(c *cell.Cell) *Builder {
	return b.add(func(ins *cell.Builder) error {
		return seq(ins.StoreUint(0x8A, 8), func() error { return ins.StoreRef(c) })
	})
}

// Build assembles the program into a chain of cells.
func (b *Builder) Build() (*cell.Cell, error) {
	if b.err != nil {
		return nil, b.err
	}
	var segs [][]*cell.Builder
	var cur []*cell.Builder
	used := cell.NewBuilder()
	for _, ins := range b.instrs {
		// One reference stays free for the link to the next cell.
		if !used.CanExtendBy(ins.BitLen(), ins.RefLen()+1) {
			if len(cur) == 0 {
				return nil, errors.WithDetailf(ErrTooLarge, "%d bits, %d refs", ins.BitLen(), ins.RefLen())
			}
			segs = append(segs, cur)
			cur, used = nil, cell.NewBuilder()
		}
		cur = append(cur, ins)
		used.StoreBuilder(ins)
	}
	segs = append(segs, cur)

	var next *cell.Cell
	for i := len(segs) - 1; i >= 0; i-- {
		c := cell.NewBuilder()
		for _, ins := range segs[i] {
			c.StoreBuilder(ins)
		}
		if next != nil {
			c.StoreRef(next)
		}
		next = c.EndCell()
	}
	return next, nil
}

func seq(err error, steps ...func() error) error {
	for _, next := range steps {
		if err != nil {
			break
		}
		err = next()
	}
	return err
}
