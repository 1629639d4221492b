package vm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

var parseOps = []opEntry{
	op("CTOS", 0xD0, 8, func(vm *Machine, _ *Instruction) error {
		c, err := vm.stack.PopCell()
		if err != nil {
			return err
		}
		s, err := vm.loadCell(c)
		if err != nil {
			return err
		}
		vm.stack.Push(s)
		return nil
	}),
	op("ENDS", 0xD1, 8, func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		if !s.IsEmpty() {
			return errors.WithDetailf(ErrCellUnderflow, "%d bits and %d refs left", s.BitsLeft(), s.RefsLeft())
		}
		return nil
	}),
	opArgs("LDI", 0xD2, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.loadInt(ins.x+1, loadFlags{signed: true})
	}).shows(showX1),
	opArgs("LDU", 0xD3, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.loadInt(ins.x+1, loadFlags{})
	}).shows(showX1),
	op("LDREF", 0xD4, 8, func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		c, err := s.LoadRef()
		if err != nil {
			return err
		}
		vm.stack.Push(c)
		vm.stack.Push(s)
		return nil
	}),
	op("LDREFRTOS", 0xD5, 8, func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		c, err := s.LoadRef()
		if err != nil {
			return err
		}
		sub, err := vm.loadCell(c)
		if err != nil {
			return err
		}
		vm.stack.Push(s)
		vm.stack.Push(sub)
		return nil
	}),
	opArgs("LDSLICE", 0xD6, 8, 8, func(vm *Machine, ins *Instruction) error {
		return vm.loadSlice(ins.x+1, loadFlags{})
	}).shows(showX1),

	opArgs("LDIX", 0xD70<<1, 13, 3, func(vm *Machine, ins *Instruction) error {
		f := loadFlagsOf(ins.x)
		limit := 256
		if f.signed {
			limit = 257
		}
		n, err := vm.stack.PopSmallInt(0, limit)
		if err != nil {
			return err
		}
		return vm.loadInt(n, f)
	}).shows(func(ins *Instruction) string { return loadName(ins.x, "LDI", "LDU", "X") }),
	opArgs("LDI", 0xD70<<1|1, 13, 11, func(vm *Machine, ins *Instruction) error {
		return vm.loadInt(ins.x&255+1, loadFlagsOf(ins.x>>8))
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d", loadName(ins.x>>8, "LDI", "LDU", ""), ins.x&255+1)
	}),
	opArgs("PLDUZ", 0xD71<<1, 13, 3, func(vm *Machine, ins *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		n := 32 * (ins.x + 1)
		have := min(n, s.BitsLeft())
		x, _ := s.PreloadBigInt(have, false)
		x.Lsh(x, uint(n-have))
		vm.stack.Push(s)
		vm.stack.Push(NewBigInt(x))
		return nil
	}).shows(func(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, 32*(ins.x+1)) }),
	opArgs("LDSLICEX", 0xD718>>2, 14, 2, func(vm *Machine, ins *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, cell.MaxBits)
		if err != nil {
			return err
		}
		return vm.loadSlice(n, sliceFlagsOf(ins.x))
	}).shows(func(ins *Instruction) string { return loadName(ins.x<<1|1, "", "LDSLICE", "X") }),
	opArgs("LDSLICE", 0xD71C>>2, 14, 10, func(vm *Machine, ins *Instruction) error {
		return vm.loadSlice(ins.x&255+1, sliceFlagsOf(ins.x>>8))
	}).shows(func(ins *Instruction) string {
		return fmt.Sprintf("%s %d", loadName(ins.x>>8<<1|1, "", "LDSLICE", ""), ins.x&255+1)
	}),

	op("SDCUTFIRST", 0xD720, 16, sliceBits(func(s *cell.Slice, n int) error {
		sub, err := s.PreloadSlice(n, 0)
		*s = sub
		return err
	})),
	op("SDSKIPFIRST", 0xD721, 16, sliceBits(func(s *cell.Slice, n int) error { return s.SkipBits(n) })),
	op("SDCUTLAST", 0xD722, 16, sliceBits(func(s *cell.Slice, n int) error {
		sub, err := s.OnlyLast(n, 0)
		*s = sub
		return err
	})),
	op("SDSKIPLAST", 0xD723, 16, sliceBits(func(s *cell.Slice, n int) error { return s.SkipLast(n, 0) })),
	op("SDSUBSTR", 0xD724, 16, func(vm *Machine, _ *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, cell.MaxBits)
		if err != nil {
			return err
		}
		off, err := vm.stack.PopSmallInt(0, cell.MaxBits)
		if err != nil {
			return err
		}
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		if err := s.SkipBits(off); err != nil {
			return err
		}
		sub, err := s.PreloadSlice(n, 0)
		if err != nil {
			return err
		}
		vm.stack.Push(sub)
		return nil
	}),
	op("SDBEGINSX", 0xD726, 16, func(vm *Machine, _ *Instruction) error {
		return vm.beginsWith(nil, false)
	}),
	op("SDBEGINSXQ", 0xD727, 16, func(vm *Machine, _ *Instruction) error {
		return vm.beginsWith(nil, true)
	}),
	opArgs("SDBEGINS", 0xD72A, 16, 7, func(vm *Machine, ins *Instruction) error {
		return vm.beginsWith(&ins.data, false)
	}).decodes(decodePrefix).shows(showSlice),
	opArgs("SDBEGINSQ", 0xD72E, 16, 7, func(vm *Machine, ins *Instruction) error {
		return vm.beginsWith(&ins.data, true)
	}).decodes(decodePrefix).shows(showSlice),

	op("SCUTFIRST", 0xD730, 16, sliceBitRefs(func(s *cell.Slice, bits, refs int) error {
		sub, err := s.PreloadSlice(bits, refs)
		*s = sub
		return err
	})),
	op("SSKIPFIRST", 0xD731, 16, sliceBitRefs(func(s *cell.Slice, bits, refs int) error {
		_, err := s.LoadSlice(bits, refs)
		return err
	})),
	op("SCUTLAST", 0xD732, 16, sliceBitRefs(func(s *cell.Slice, bits, refs int) error {
		sub, err := s.OnlyLast(bits, refs)
		*s = sub
		return err
	})),
	op("SSKIPLAST", 0xD733, 16, sliceBitRefs(func(s *cell.Slice, bits, refs int) error {
		return s.SkipLast(bits, refs)
	})),
	op("SUBSLICE", 0xD734, 16, func(vm *Machine, _ *Instruction) error {
		refs, bits, err := vm.popBitRefs()
		if err != nil {
			return err
		}
		skipRefs, skipBits, err := vm.popBitRefs()
		if err != nil {
			return err
		}
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		if _, err := s.LoadSlice(skipBits, skipRefs); err != nil {
			return err
		}
		sub, err := s.PreloadSlice(bits, refs)
		if err != nil {
			return err
		}
		vm.stack.Push(sub)
		return nil
	}),
	op("SPLIT", 0xD736, 16, func(vm *Machine, _ *Instruction) error {
		return vm.split(false)
	}),
	op("SPLITQ", 0xD737, 16, func(vm *Machine, _ *Instruction) error {
		return vm.split(true)
	}),
	op("XCTOS", 0xD739, 16, func(vm *Machine, _ *Instruction) error {
		c, err := vm.stack.PopCell()
		if err != nil {
			return err
		}
		if err := vm.gas.consumeLoad(c); err != nil {
			return err
		}
		vm.stack.Push(c.BeginParse())
		vm.stack.pushBool(c.Exotic())
		return nil
	}),
	op("XLOAD", 0xD73A, 16, func(vm *Machine, _ *Instruction) error {
		return vm.xload(false)
	}),
	op("XLOADQ", 0xD73B, 16, func(vm *Machine, _ *Instruction) error {
		return vm.xload(true)
	}),
	op("SCHKBITS", 0xD741, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSlice(true, false, false)
	}),
	op("SCHKREFS", 0xD742, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSlice(false, true, false)
	}),
	op("SCHKBITREFS", 0xD743, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSlice(true, true, false)
	}),
	op("SCHKBITSQ", 0xD745, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSlice(true, false, true)
	}),
	op("SCHKREFSQ", 0xD746, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSlice(false, true, true)
	}),
	op("SCHKBITREFSQ", 0xD747, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSlice(true, true, true)
	}),
	op("PLDREFVAR", 0xD748, 16, func(vm *Machine, _ *Instruction) error {
		i, err := vm.stack.PopSmallInt(0, cell.MaxRefs-1)
		if err != nil {
			return err
		}
		return vm.preloadRef(i)
	}),
	op("SBITS", 0xD749, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.BitsLeft()} })),
	op("SREFS", 0xD74A, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.RefsLeft()} })),
	op("SBITREFS", 0xD74B, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.BitsLeft(), s.RefsLeft()} })),
	opArgs("PLDREFIDX", 0xD74C>>2, 14, 2, func(vm *Machine, ins *Instruction) error {
		return vm.preloadRef(ins.x)
	}).shows(showX),
	opArgs("LDILE4", 0xD75, 12, 4, func(vm *Machine, ins *Instruction) error {
		return vm.loadLE(ins.x)
	}).shows(func(ins *Instruction) string {
		f := loadFlagsOf(ins.x&1 | ins.x>>1&6)
		name := loadName(ins.x&1|ins.x>>1&2, "LDI", "LDU", "")
		name += [...]string{"LE4", "LE8"}[ins.x>>1&1]
		if f.quiet {
			name += "Q"
		}
		return name
	}),
	op("LDZEROES", 0xD760, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadSame(false, false)
	}),
	op("LDONES", 0xD761, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadSame(true, false)
	}),
	op("LDSAME", 0xD762, 16, func(vm *Machine, _ *Instruction) error {
		return vm.loadSame(false, true)
	}),
	op("SDEPTH", 0xD764, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.Depth()} })),
	op("CDEPTH", 0xD765, 16, func(vm *Machine, _ *Instruction) error {
		c, err := vm.stack.PopMaybeCell()
		if err != nil {
			return err
		}
		depth := 0
		if c != nil {
			depth = c.Depth()
		}
		vm.stack.pushInt64(int64(depth))
		return nil
	}),
}

type loadFlags struct {
	signed  bool
	preload bool // keep the slice where it was
	quiet   bool // push a success flag instead of failing
}

// loadFlagsOf reads the D70x flag bits: 4 quiet, 2 preload,
// 1 unsigned.
func loadFlagsOf(x int) loadFlags {
	return loadFlags{signed: x&1 == 0, preload: x&2 != 0, quiet: x&4 != 0}
}

// sliceFlagsOf reads the D718 flag bits: 2 quiet, 1 preload.
func sliceFlagsOf(x int) loadFlags {
	return loadFlags{preload: x&1 != 0, quiet: x&2 != 0}
}

func loadName(x int, signed, unsigned, suffix string) string {
	f := loadFlagsOf(x)
	name := signed
	if !f.signed {
		name = unsigned
	}
	if f.preload {
		name = "P" + name
	}
	name += suffix
	if f.quiet {
		name += "Q"
	}
	return name
}

// loaded pushes the result of a successful load. The slice, unless
// preloading, goes above the loaded values.
func (vm *Machine) loaded(f loadFlags, s cell.Slice, vals ...Value) {
	for _, v := range vals {
		vm.stack.Push(v)
	}
	if !f.preload {
		vm.stack.Push(s)
	}
	if f.quiet {
		vm.stack.pushInt64(-1)
	}
}

// loadFailed reports a failed load: quietly with the slice, unless
// preloading, and 0 pushed, or as err.
func (vm *Machine) loadFailed(f loadFlags, s cell.Slice, err error) error {
	if !f.quiet {
		return err
	}
	if !f.preload {
		vm.stack.Push(s)
	}
	vm.stack.pushInt64(0)
	return nil
}

func (vm *Machine) loadInt(n int, f loadFlags) error {
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	rest := s
	x, err := rest.LoadBigInt(n, f.signed)
	if err != nil {
		return vm.loadFailed(f, s, ErrCellUnderflow)
	}
	vm.loaded(f, rest, NewBigInt(x))
	return nil
}

func (vm *Machine) loadSlice(n int, f loadFlags) error {
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	rest := s
	sub, err := rest.LoadSlice(n, 0)
	if err != nil {
		return vm.loadFailed(f, s, ErrCellUnderflow)
	}
	vm.loaded(f, rest, sub)
	return nil
}

// loadLE loads a 4- or 8-byte little-endian integer. The operand
// bits are 1 unsigned, 2 eight bytes, 4 preload, 8 quiet.
func (vm *Machine) loadLE(x int) error {
	f := loadFlagsOf(x&1 | x>>1&6)
	n := 4 << (x >> 1 & 1)
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	rest := s
	data, err := rest.LoadBits(8 * n)
	if err != nil {
		return vm.loadFailed(f, s, ErrCellUnderflow)
	}
	var buf [8]byte
	copy(buf[:], data)
	u := binary.LittleEndian.Uint64(buf[:])
	v := new(big.Int).SetUint64(u)
	if f.signed && u>>(8*n-1)&1 == 1 {
		v.Sub(v, pow2(8*n))
	}
	vm.loaded(f, rest, NewBigInt(v))
	return nil
}

// sliceBits pops s and a bit count and pushes s as changed by f.
func sliceBits(f func(s *cell.Slice, n int) error) execFn {
	return func(vm *Machine, _ *Instruction) error {
		n, err := vm.stack.PopSmallInt(0, cell.MaxBits)
		if err != nil {
			return err
		}
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		if err := f(&s, n); err != nil {
			return err
		}
		vm.stack.Push(s)
		return nil
	}
}

// popBitRefs pops a reference count from the top and a bit count
// below it.
func (vm *Machine) popBitRefs() (refs, bits int, err error) {
	if refs, err = vm.stack.PopSmallInt(0, cell.MaxRefs); err != nil {
		return 0, 0, err
	}
	if bits, err = vm.stack.PopSmallInt(0, cell.MaxBits); err != nil {
		return 0, 0, err
	}
	return refs, bits, nil
}

func sliceBitRefs(f func(s *cell.Slice, bits, refs int) error) execFn {
	return func(vm *Machine, _ *Instruction) error {
		refs, bits, err := vm.popBitRefs()
		if err != nil {
			return err
		}
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		if err := f(&s, bits, refs); err != nil {
			return err
		}
		vm.stack.Push(s)
		return nil
	}
}

func decodePrefix(ins *Instruction, code *cell.Slice) error {
	return decodeSlice(ins, code, 8*ins.x+3, 0, true)
}

// beginsWith strips prefix from the slice below it, or from the
// slice on top of the stack if prefix is nil.
func (vm *Machine) beginsWith(prefix *cell.Slice, quiet bool) error {
	var p cell.Slice
	if prefix != nil {
		p = *prefix
	} else {
		var err error
		if p, err = vm.stack.PopSlice(); err != nil {
			return err
		}
	}
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	if !s.HasPrefix(p) {
		if !quiet {
			return errors.WithDetailf(ErrCellUnderflow, "%s does not begin with %s", s, p)
		}
		vm.stack.Push(s)
		vm.stack.pushInt64(0)
		return nil
	}
	s.SkipBits(p.BitsLeft())
	vm.stack.Push(s)
	if quiet {
		vm.stack.pushInt64(-1)
	}
	return nil
}

// split cuts the first bits and refs off a slice, pushing the cut
// part below the rest.
func (vm *Machine) split(quiet bool) error {
	refs, bits, err := vm.popBitRefs()
	if err != nil {
		return err
	}
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	rest := s
	head, err := rest.LoadSlice(bits, refs)
	if err != nil {
		if !quiet {
			return err
		}
		vm.stack.Push(s)
		vm.stack.pushInt64(0)
		return nil
	}
	vm.stack.Push(head)
	vm.stack.Push(rest)
	if quiet {
		vm.stack.pushInt64(-1)
	}
	return nil
}

// xload resolves a library cell to the cell it names.
// Ordinary cells pass through.
func (vm *Machine) xload(quiet bool) error {
	c, err := vm.stack.PopCell()
	if err != nil {
		return err
	}
	if err := vm.gas.consumeLoad(c); err != nil {
		return err
	}
	res, err := c, error(nil)
	if c.Exotic() {
		res, err = vm.resolveLibrary(c)
	}
	if err != nil {
		if !quiet {
			return err
		}
		vm.stack.Push(c)
		vm.stack.pushInt64(0)
		return nil
	}
	vm.stack.Push(res)
	if quiet {
		vm.stack.pushInt64(-1)
	}
	return nil
}

// checkSlice checks that a slice has at least the popped number of
// bits and refs left, the refs count on top.
func (vm *Machine) checkSlice(bits, refs, quiet bool) error {
	var needBits, needRefs int
	var err error
	if refs {
		if needRefs, err = vm.stack.PopSmallInt(0, cell.MaxRefs); err != nil {
			return err
		}
	}
	if bits {
		if needBits, err = vm.stack.PopSmallInt(0, cell.MaxBits); err != nil {
			return err
		}
	}
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	ok := s.BitsLeft() >= needBits && s.RefsLeft() >= needRefs
	if quiet {
		vm.stack.pushBool(ok)
		return nil
	}
	if !ok {
		return ErrCellUnderflow
	}
	return nil
}

func (vm *Machine) preloadRef(i int) error {
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	c, err := s.PreloadRef(i)
	if err != nil {
		return err
	}
	vm.stack.Push(c)
	return nil
}

func sliceInfo(f func(s cell.Slice) []int) execFn {
	return func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		for _, n := range f(s) {
			vm.stack.pushInt64(int64(n))
		}
		return nil
	}
}

// loadSame counts and skips the leading run of bit. With pop set
// the bit is popped from the top of the stack.
func (vm *Machine) loadSame(bit, pop bool) error {
	if pop {
		x, err := vm.stack.PopSmallInt(0, 1)
		if err != nil {
			return err
		}
		bit = x == 1
	}
	s, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	n := s.CountLeading(bit)
	s.SkipBits(n)
	vm.stack.pushInt64(int64(n))
	vm.stack.Push(s)
	return nil
}

var sliceCompareOps = []opEntry{
	op("SEMPTY", 0xC700, 16, slicePred(func(s cell.Slice) bool { return s.IsEmpty() })),
	op("SDEMPTY", 0xC701, 16, slicePred(func(s cell.Slice) bool { return s.BitsLeft() == 0 })),
	op("SREMPTY", 0xC702, 16, slicePred(func(s cell.Slice) bool { return s.RefsLeft() == 0 })),
	op("SDFIRST", 0xC703, 16, slicePred(func(s cell.Slice) bool {
		b, err := s.PreloadUint(1)
		return err == nil && b == 1
	})),
	op("SDLEXCMP", 0xC704, 16, func(vm *Machine, _ *Instruction) error {
		a, b, err := vm.popSlices()
		if err != nil {
			return err
		}
		vm.stack.pushInt64(int64(a.LexCompare(b)))
		return nil
	}),
	op("SDEQ", 0xC705, 16, slicePred2(func(a, b cell.Slice) bool { return a.BitsEqual(b) })),
	op("SDPFX", 0xC708, 16, slicePred2(func(a, b cell.Slice) bool { return b.HasPrefix(a) })),
	op("SDPFXREV", 0xC709, 16, slicePred2(func(a, b cell.Slice) bool { return a.HasPrefix(b) })),
	op("SDPPFX", 0xC70A, 16, slicePred2(func(a, b cell.Slice) bool {
		return b.HasPrefix(a) && a.BitsLeft() < b.BitsLeft()
	})),
	op("SDPPFXREV", 0xC70B, 16, slicePred2(func(a, b cell.Slice) bool {
		return a.HasPrefix(b) && b.BitsLeft() < a.BitsLeft()
	})),
	op("SDSFX", 0xC70C, 16, slicePred2(func(a, b cell.Slice) bool { return b.HasSuffix(a) })),
	op("SDSFXREV", 0xC70D, 16, slicePred2(func(a, b cell.Slice) bool { return a.HasSuffix(b) })),
	op("SDPSFX", 0xC70E, 16, slicePred2(func(a, b cell.Slice) bool {
		return b.HasSuffix(a) && a.BitsLeft() < b.BitsLeft()
	})),
	op("SDPSFXREV", 0xC70F, 16, slicePred2(func(a, b cell.Slice) bool {
		return a.HasSuffix(b) && b.BitsLeft() < a.BitsLeft()
	})),
	op("SDCNTLEAD0", 0xC710, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.CountLeading(false)} })),
	op("SDCNTLEAD1", 0xC711, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.CountLeading(true)} })),
	op("SDCNTTRAIL0", 0xC712, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.CountTrailing(false)} })),
	op("SDCNTTRAIL1", 0xC713, 16, sliceInfo(func(s cell.Slice) []int { return []int{s.CountTrailing(true)} })),
}

func slicePred(f func(s cell.Slice) bool) execFn {
	return func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		vm.stack.pushBool(f(s))
		return nil
	}
}

// popSlices pops two slices, returning the deeper one first.
func (vm *Machine) popSlices() (a, b cell.Slice, err error) {
	if b, err = vm.stack.PopSlice(); err != nil {
		return a, b, err
	}
	a, err = vm.stack.PopSlice()
	return a, b, err
}

func slicePred2(f func(a, b cell.Slice) bool) execFn {
	return func(vm *Machine, _ *Instruction) error {
		a, b, err := vm.popSlices()
		if err != nil {
			return err
		}
		vm.stack.pushBool(f(a, b))
		return nil
	}
}
