package vm

import (
	"math/big"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// Output action tags. Each action cell holds a reference to the
// previous head of the list in c5, the tag, then its fields.
const (
	tagSendMsg       = 0x0ec3c86d
	tagReserve       = 0x36e6b809
	tagSetCode       = 0xad4de08e
	tagChangeLibrary = 0x26fa1dd4
)

// maxGramsBytes bounds a currency amount stored with a 4-bit
// byte count.
const maxGramsBytes = 15

var actionOps = []opEntry{
	op("SENDRAWMSG", 0xFB00, 16, func(vm *Machine, _ *Instruction) error {
		mode, err := vm.stack.PopSmallInt(0, 255)
		if err != nil {
			return err
		}
		msg, err := vm.stack.PopCell()
		if err != nil {
			return err
		}
		return vm.addAction(tagSendMsg, func(b *cell.Builder) error {
			return seq(b.StoreUint(uint64(mode), 8), func() error { return b.StoreRef(msg) })
		})
	}),
	op("RAWRESERVE", 0xFB02, 16, func(vm *Machine, _ *Instruction) error { return vm.reserve(false) }),
	op("RAWRESERVEX", 0xFB03, 16, func(vm *Machine, _ *Instruction) error { return vm.reserve(true) }),
	op("SETCODE", 0xFB04, 16, func(vm *Machine, _ *Instruction) error {
		code, err := vm.stack.PopCell()
		if err != nil {
			return err
		}
		return vm.addAction(tagSetCode, func(b *cell.Builder) error { return b.StoreRef(code) })
	}),
	op("SETLIBCODE", 0xFB06, 16, func(vm *Machine, _ *Instruction) error {
		mode, err := vm.popLibraryMode()
		if err != nil {
			return err
		}
		code, err := vm.stack.PopCell()
		if err != nil {
			return err
		}
		return vm.addAction(tagChangeLibrary, func(b *cell.Builder) error {
			return seq(b.StoreUint(uint64(mode<<1|1), 8), func() error { return b.StoreRef(code) })
		})
	}),
	op("CHANGELIB", 0xFB07, 16, func(vm *Machine, _ *Instruction) error {
		mode, err := vm.popLibraryMode()
		if err != nil {
			return err
		}
		h, err := vm.stack.PopFiniteInt()
		if err != nil {
			return err
		}
		if h.v.Sign() < 0 {
			return errors.WithDetail(ErrRangeCheck, "library hash must be non-negative")
		}
		hash := new(big.Int).And(h.v, new(big.Int).Sub(pow2(256), bigOne))
		return vm.addAction(tagChangeLibrary, func(b *cell.Builder) error {
			return seq(b.StoreUint(uint64(mode<<1), 8), func() error { return b.StoreBigInt(hash, 256, false) })
		})
	}),
}

// popLibraryMode pops a library change mode: 0 remove, 1 private,
// 2 public, optionally with bit 4 set to bounce on failure.
func (vm *Machine) popLibraryMode() (int, error) {
	mode, err := vm.stack.PopSmallInt(0, 31)
	if err != nil {
		return 0, err
	}
	if mode&15 > 2 {
		return 0, errors.WithDetailf(ErrRangeCheck, "library mode %d", mode)
	}
	return mode, nil
}

func (vm *Machine) reserve(extra bool) error {
	mode, err := vm.stack.PopSmallInt(0, 31)
	if err != nil {
		return err
	}
	var other *cell.Cell
	if extra {
		if other, err = vm.stack.PopMaybeCell(); err != nil {
			return err
		}
	}
	amount, err := vm.stack.PopFiniteInt()
	if err != nil {
		return err
	}
	n, ok := varIntLen(amount.v, false)
	if !ok || n > maxGramsBytes {
		return errors.WithDetailf(ErrRangeCheck, "amount %s out of range", amount)
	}
	return vm.addAction(tagReserve, func(b *cell.Builder) error {
		err := seq(b.StoreUint(uint64(mode), 8), func() error { return b.StoreUint(uint64(n), 4) })
		if n > 0 {
			err = seq(err, func() error { return b.StoreBigInt(amount.v, 8*n, false) })
		}
		if other == nil {
			return seq(err, func() error { return b.StoreUint(0, 1) })
		}
		return seq(err, func() error { return b.StoreUint(1, 1) }, func() error { return b.StoreRef(other) })
	})
}

// addAction prepends an action to the list in c5.
func (vm *Machine) addAction(tag uint32, fields func(b *cell.Builder) error) error {
	head := vm.regs.d[1]
	if head == nil {
		return errors.WithDetail(ErrTypeCheck, "c5 is undefined")
	}
	b := cell.NewBuilder()
	err := seq(b.StoreRef(head), func() error { return b.StoreUint(uint64(tag), 32) })
	if err = seq(err, func() error { return fields(b) }); err != nil {
		return errors.WithDetail(ErrCellOverflow, "cannot serialize output action")
	}
	c, err := vm.createCell(b)
	if err != nil {
		return err
	}
	vm.regs.d[1] = c
	return nil
}
