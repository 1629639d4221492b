package vm

import (
	"math/big"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// Variable-length integers are stored as a byte count in lenBits
// bits followed by that many bytes of the value.
var varintOps = []opEntry{
	op("LDGRAMS", 0xFA00, 16, loadVarInt(4, false)),
	op("LDVARINT16", 0xFA01, 16, loadVarInt(4, true)),
	op("STGRAMS", 0xFA02, 16, storeVarInt(4, false)),
	op("STVARINT16", 0xFA03, 16, storeVarInt(4, true)),
	op("LDVARUINT32", 0xFA04, 16, loadVarInt(5, false)),
	op("LDVARINT32", 0xFA05, 16, loadVarInt(5, true)),
	op("STVARUINT32", 0xFA06, 16, storeVarInt(5, false)),
	op("STVARINT32", 0xFA07, 16, storeVarInt(5, true)),
}

func loadVarInt(lenBits int, signed bool) execFn {
	return func(vm *Machine, _ *Instruction) error {
		s, err := vm.stack.PopSlice()
		if err != nil {
			return err
		}
		x, err := readVarInt(&s, lenBits, signed)
		if err != nil {
			return err
		}
		vm.stack.Push(NewBigInt(x))
		vm.stack.Push(s)
		return nil
	}
}

func readVarInt(s *cell.Slice, lenBits int, signed bool) (*big.Int, error) {
	n, err := s.LoadUint(lenBits)
	if err != nil {
		return nil, ErrCellUnderflow
	}
	if n == 0 {
		return new(big.Int), nil
	}
	x, err := s.LoadBigInt(8*int(n), signed)
	if err != nil {
		return nil, ErrCellUnderflow
	}
	return x, nil
}

func storeVarInt(lenBits int, signed bool) execFn {
	return func(vm *Machine, _ *Instruction) error {
		x, err := vm.stack.PopFiniteInt()
		if err != nil {
			return err
		}
		b, err := vm.stack.PopBuilder()
		if err != nil {
			return err
		}
		n, ok := varIntLen(x.v, signed)
		if !ok || n >= 1<<lenBits {
			return errors.WithDetailf(ErrRangeCheck, "%s does not fit a %d-bit length", x, lenBits)
		}
		if !b.CanExtendBy(lenBits+8*n, 0) {
			return ErrCellOverflow
		}
		b = b.Clone()
		b.StoreUint(uint64(n), lenBits)
		if n > 0 {
			b.StoreBigInt(x.v, 8*n, signed)
		}
		vm.stack.Push(b)
		return nil
	}
}

// varIntLen returns the fewest bytes holding x.
func varIntLen(x *big.Int, signed bool) (int, bool) {
	if !signed && x.Sign() < 0 {
		return 0, false
	}
	if x.Sign() == 0 {
		return 0, true
	}
	bits := x.BitLen()
	if signed {
		bits = bitSize(x)
	}
	return (bits + 7) / 8, true
}
