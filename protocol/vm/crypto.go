package vm

import (
	"crypto/sha512"
	"hash"
	"math"
	"math/big"

	"github.com/btcsuite/fastsha256"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

var cryptoOps = []opEntry{
	op("HASHCU", 0xF900, 16, func(vm *Machine, _ *Instruction) error {
		c, err := vm.stack.PopCell()
		if err != nil {
			return err
		}
		vm.pushHash(c.Hash())
		return nil
	}),
	op("HASHSU", 0xF901, 16, func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		vm.pushHash(s.ToCell().Hash())
		return nil
	}),
	op("SHA256U", 0xF902, 16, func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		data, err := byteData(s)
		if err != nil {
			return err
		}
		vm.pushHash(fastsha256.Sum256(data))
		return nil
	}),
	opArgs("HASHEXT", 0xF904>>2, 14, 10, func(vm *Machine, ins *Instruction) error {
		return vm.hashExt(ins.x&255, ins.x&0x100 != 0, ins.x&0x200 != 0)
	}).checks(func(x int) bool { return x&255 < len(hashAlgos) || x&255 == 255 }).shows(showHashExt),
	op("CHKSIGNU", 0xF910, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSignature(func() ([]byte, error) {
			h, err := vm.popUint256()
			if err != nil {
				return nil, err
			}
			var buf [32]byte
			return h.FillBytes(buf[:]), nil
		})
	}),
	op("CHKSIGNS", 0xF911, 16, func(vm *Machine, _ *Instruction) error {
		return vm.checkSignature(func() ([]byte, error) {
			s, err := vm.stack.PopSlice()
			if err != nil {
				return nil, err
			}
			return byteData(s)
		})
	}),
	op("CDATASIZEQ", 0xF940, 16, func(vm *Machine, _ *Instruction) error { return vm.dataSize(false, true) }),
	op("CDATASIZE", 0xF941, 16, func(vm *Machine, _ *Instruction) error { return vm.dataSize(false, false) }),
	op("SDATASIZEQ", 0xF942, 16, func(vm *Machine, _ *Instruction) error { return vm.dataSize(true, true) }),
	op("SDATASIZE", 0xF943, 16, func(vm *Machine, _ *Instruction) error { return vm.dataSize(true, false) }),
}

func (vm *Machine) pushHash(h [32]byte) {
	vm.stack.Push(NewBigInt(new(big.Int).SetBytes(h[:])))
}

// byteData returns the data bits of s, which must be whole bytes.
func byteData(s cell.Slice) ([]byte, error) {
	n := s.BitsLeft()
	if n%8 != 0 {
		return nil, errors.WithDetail(ErrCellUnderflow, "slice does not consist of whole bytes")
	}
	return s.PreloadBits(n)
}

// hashAlgo is one HASHEXT function, charged one gas unit per
// bytesPerGas bytes of input.
type hashAlgo struct {
	name        string
	new         func() hash.Hash
	bytesPerGas int
}

var hashAlgos = []hashAlgo{
	{"SHA256", fastsha256.New, 33},
	{"SHA512", sha512.New, 16},
	{"BLAKE2B", newBlake2b512, 19},
	{"KECCAK256", sha3.NewLegacyKeccak256, 11},
	{"KECCAK512", sha3.NewLegacyKeccak512, 6},
}

func newBlake2b512() hash.Hash {
	h, _ := blake2b.New512(nil) // fails only for an oversized key
	return h
}

func showHashExt(ins *Instruction) string {
	name := "HASHEXT"
	if ins.x&0x200 != 0 {
		name += "A"
	}
	if ins.x&0x100 != 0 {
		name += "R"
	}
	if id := ins.x & 255; id < len(hashAlgos) {
		return name + "_" + hashAlgos[id].name
	}
	return name
}

// hashExt hashes n slices or builders popped from the stack. The
// deepest goes first unless rev. With app, the digest is stored
// into a builder below them instead of pushed as an integer.
func (vm *Machine) hashExt(id int, rev, app bool) error {
	if id == 255 {
		v, err := vm.stack.PopSmallInt(0, 254)
		if err != nil {
			return err
		}
		id = v
	}
	if id >= len(hashAlgos) {
		return errors.WithDetailf(ErrRangeCheck, "hash id %d", id)
	}
	algo := hashAlgos[id]

	limit := vm.stack.Depth() - 1
	if app {
		limit--
	}
	n, err := vm.stack.PopSmallInt(0, limit)
	if err != nil {
		return err
	}

	h := algo.new()
	var total, charged int64
	for i := 0; i < n; i++ {
		idx := n - 1 - i
		if rev {
			idx = i
		}
		var s cell.Slice
		switch v := vm.stack.at(idx).(type) {
		case cell.Slice:
			s = v
		case *cell.Builder:
			s = v.Slice()
		default:
			return typeErr("slice or builder", v)
		}
		data, err := byteData(s)
		if err != nil {
			return err
		}
		total += int64(len(data))
		due := total / int64(algo.bytesPerGas)
		if err := vm.gas.consume(due - charged); err != nil {
			return err
		}
		charged = due
		h.Write(data)
	}
	vm.stack.drop(n)
	sum := h.Sum(nil)

	if app {
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		if !b.CanExtendBy(8*len(sum), 0) {
			return ErrCellOverflow
		}
		b = b.Clone()
		b.StoreBits(sum, 8*len(sum))
		vm.stack.Push(b)
		return nil
	}
	if len(sum) <= 32 {
		vm.stack.Push(NewBigInt(new(big.Int).SetBytes(sum)))
		return nil
	}
	var t Tuple
	for len(sum) > 0 {
		k := 32
		if len(sum) < k {
			k = len(sum)
		}
		t = append(t, NewBigInt(new(big.Int).SetBytes(sum[:k])))
		sum = sum[k:]
	}
	if err := vm.gas.consumeTuple(len(t)); err != nil {
		return err
	}
	vm.stack.Push(t)
	return nil
}

// checkSignature pops a public key, a 512-bit signature slice
// and the signed message, top to bottom, and pushes whether
// the Ed25519 signature is valid.
func (vm *Machine) checkSignature(popMsg func() ([]byte, error)) error {
	key, err := vm.popUint256()
	if err != nil {
		return err
	}
	sigSlice, err := vm.stack.PopSlice()
	if err != nil {
		return err
	}
	msg, err := popMsg()
	if err != nil {
		return err
	}
	sig, err := sigSlice.PreloadBits(8 * ed25519.SignatureSize)
	if err != nil {
		return errors.WithDetail(ErrCellUnderflow, "signature must contain at least 512 data bits")
	}
	var pub [ed25519.PublicKeySize]byte
	key.FillBytes(pub[:])
	vm.stack.pushBool(ed25519.Verify(pub[:], msg, sig))
	return nil
}

// dataSize counts the distinct cells, data bits and references
// reachable from a cell or slice, failing once more than bound
// cells are visited. A slice's own bits and references count
// but its cell does not.
func (vm *Machine) dataSize(slice, quiet bool) error {
	bv, err := vm.stack.PopFiniteInt()
	if err != nil {
		return err
	}
	if bv.v.Sign() < 0 {
		return errors.WithDetail(ErrRangeCheck, "finite non-negative integer expected")
	}
	bound := int64(math.MaxInt64)
	if bv.v.IsInt64() {
		bound = bv.v.Int64()
	}

	st := storageStat{vm: vm, limit: bound, seen: make(map[cell.Hash]struct{})}
	var ok bool
	if slice {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		st.bits, st.refs = int64(s.BitsLeft()), int64(s.RefsLeft())
		ok = true
		for i := 0; i < s.RefsLeft() && ok; i++ {
			c, _ := s.PreloadRef(i)
			ok, err = st.add(c)
			if err != nil {
				return err
			}
		}
	} else {
		c, err := vm.stack.PopMaybeCell()
		if err != nil {
			return err
		}
		ok = true
		if c != nil {
			if ok, err = st.add(c); err != nil {
				return err
			}
		}
	}

	if !ok {
		if quiet {
			vm.stack.pushInt64(0)
			return nil
		}
		return errors.WithDetail(ErrCellOverflow, "scanned too many cells")
	}
	vm.stack.pushInt64(st.cells)
	vm.stack.pushInt64(st.bits)
	vm.stack.pushInt64(st.refs)
	if quiet {
		vm.stack.pushInt64(-1)
	}
	return nil
}

type storageStat struct {
	vm                *Machine
	limit             int64
	cells, bits, refs int64
	seen              map[cell.Hash]struct{}
}

// add visits c and its subtree, reporting false once the
// cell limit is exceeded.
func (st *storageStat) add(c *cell.Cell) (bool, error) {
	if _, ok := st.seen[c.Hash()]; ok {
		return true, nil
	}
	if st.cells >= st.limit {
		return false, nil
	}
	st.seen[c.Hash()] = struct{}{}
	if err := st.vm.gas.consumeLoad(c); err != nil {
		return false, err
	}
	st.cells++
	st.bits += int64(c.BitLen())
	st.refs += int64(c.RefLen())
	for i := 0; i < c.RefLen(); i++ {
		if ok, err := st.add(c.Ref(i)); !ok || err != nil {
			return ok, err
		}
	}
	return true, nil
}
