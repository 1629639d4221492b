package vm

import "github.com/mnill/tycho-vm/protocol/cell"

// Registers holds control registers c0..c3 (continuations),
// c4 and c5 (cells) and c7 (a tuple). c6 does not exist.
// A nil slot is undefined.
type Registers struct {
	c     [4]Continuation
	d     [2]*cell.Cell
	c7    Tuple
	hasC7 bool
}

func validReg(i int) bool {
	return i >= 0 && i <= 7 && i != 6
}

// Get returns register i, or nil if it is undefined.
func (r *Registers) Get(i int) Value {
	switch {
	case i >= 0 && i < 4:
		if r.c[i] != nil {
			return r.c[i]
		}
	case i == 4 || i == 5:
		if r.d[i-4] != nil {
			return r.d[i-4]
		}
	case i == 7:
		if r.hasC7 {
			return r.c7
		}
	}
	return nil
}

// Set stores v in register i. It fails with ErrTypeCheck
// if v does not have the type the register requires.
func (r *Registers) Set(i int, v Value) error {
	switch {
	case i >= 0 && i < 4:
		k, ok := v.(Continuation)
		if !ok {
			return typeErr("continuation", v)
		}
		r.c[i] = k
	case i == 4 || i == 5:
		c, ok := v.(*cell.Cell)
		if !ok {
			return typeErr("cell", v)
		}
		r.d[i-4] = c
	case i == 7:
		t, ok := v.(Tuple)
		if !ok {
			return typeErr("tuple", v)
		}
		r.c7, r.hasC7 = t, true
	default:
		return ErrTypeCheck
	}
	return nil
}

// Define is like Set, but fails with ErrTypeCheck if
// register i is already defined.
func (r *Registers) Define(i int, v Value) error {
	if r.Get(i) != nil {
		return ErrTypeCheck
	}
	return r.Set(i, v)
}

// defineCont sets c(i) to k unless it is already defined.
func (r *Registers) defineCont(i int, k Continuation) {
	if r.c[i] == nil {
		r.c[i] = k
	}
}

// apply overrides every register that save defines.
func (r *Registers) apply(save *Registers) {
	for i, k := range save.c {
		if k != nil {
			r.c[i] = k
		}
	}
	for i, c := range save.d {
		if c != nil {
			r.d[i] = c
		}
	}
	if save.hasC7 {
		r.c7, r.hasC7 = save.c7, true
	}
}

// empty reports whether no register is defined.
func (r *Registers) empty() bool {
	return r.c == [4]Continuation{} && r.d == [2]*cell.Cell{} && !r.hasC7
}
