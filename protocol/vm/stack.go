package vm

import (
	"strings"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// Stack is the operand stack. The top is the last element of items.
// Typed pops check the type before removing anything, so a failed
// pop leaves the stack unchanged.
type Stack struct {
	items []Value
}

// NewStack returns a stack holding vals, the last one on top.
func NewStack(vals ...Value) *Stack {
	return &Stack{items: append([]Value(nil), vals...)}
}

// Depth returns the number of entries.
func (s *Stack) Depth() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the entries, bottom first.
func (s *Stack) Items() []Value {
	if s == nil {
		return nil
	}
	return append([]Value(nil), s.items...)
}

// Push pushes v.
func (s *Stack) Push(v Value) {
	s.items = append(s.items, v)
}

func (s *Stack) pushInt64(x int64) { s.Push(NewInt(x)) }

func (s *Stack) pushBool(b bool) { s.Push(boolInt(b)) }

// Check fails with ErrStackUnderflow unless at least n entries exist.
func (s *Stack) Check(n int) error {
	if n < 0 || len(s.items) < n {
		return errors.WithDetailf(ErrStackUnderflow, "need %d entries, have %d", n, len(s.items))
	}
	return nil
}

// Fetch returns entry i, counting from the top at 0.
func (s *Stack) Fetch(i int) (Value, error) {
	if err := s.Check(i + 1); err != nil {
		return nil, err
	}
	return s.items[len(s.items)-1-i], nil
}

func (s *Stack) at(i int) Value { return s.items[len(s.items)-1-i] }

func (s *Stack) set(i int, v Value) { s.items[len(s.items)-1-i] = v }

// Swap exchanges entries i and j, counting from the top.
func (s *Stack) Swap(i, j int) error {
	if err := s.Check(max(i, j) + 1); err != nil {
		return err
	}
	n := len(s.items) - 1
	s.items[n-i], s.items[n-j] = s.items[n-j], s.items[n-i]
	return nil
}

// Pop removes and returns the top entry.
func (s *Stack) Pop() (Value, error) {
	if err := s.Check(1); err != nil {
		return nil, err
	}
	return s.pop(), nil
}

func (s *Stack) pop() Value {
	n := len(s.items) - 1
	v := s.items[n]
	s.items[n] = nil
	s.items = s.items[:n]
	return v
}

// drop removes the top n entries without checking.
func (s *Stack) drop(n int) {
	m := len(s.items) - n
	for i := m; i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = s.items[:m]
}

func typeErr(want string, got Value) error {
	return errors.WithDetailf(ErrTypeCheck, "expected %s, got %s", want, typeName(got))
}

// PopInt pops an integer, possibly NaN.
func (s *Stack) PopInt() (Int, error) {
	if err := s.Check(1); err != nil {
		return NaN, err
	}
	v, ok := s.at(0).(Int)
	if !ok {
		return NaN, typeErr("integer", s.at(0))
	}
	s.pop()
	return v, nil
}

// PopFiniteInt pops an integer and fails with ErrIntOverflow on NaN.
func (s *Stack) PopFiniteInt() (Int, error) {
	if err := s.Check(1); err != nil {
		return NaN, err
	}
	v, ok := s.at(0).(Int)
	if !ok {
		return NaN, typeErr("integer", s.at(0))
	}
	s.pop()
	if v.IsNaN() {
		return NaN, ErrIntOverflow
	}
	return v, nil
}

// PopSmallInt pops an integer in [min, max].
func (s *Stack) PopSmallInt(min, max int) (int, error) {
	v, err := s.PopFiniteInt()
	if err != nil {
		return 0, err
	}
	x, ok := v.Int64()
	if !ok || x < int64(min) || x > int64(max) {
		return 0, errors.WithDetailf(ErrRangeCheck, "%s not in [%d, %d]", v, min, max)
	}
	return int(x), nil
}

// PopBool pops an integer and reports whether it is nonzero.
func (s *Stack) PopBool() (bool, error) {
	v, err := s.PopFiniteInt()
	if err != nil {
		return false, err
	}
	return v.v.Sign() != 0, nil
}

// PopCell pops a cell.
func (s *Stack) PopCell() (*cell.Cell, error) {
	if err := s.Check(1); err != nil {
		return nil, err
	}
	c, ok := s.at(0).(*cell.Cell)
	if !ok {
		return nil, typeErr("cell", s.at(0))
	}
	s.pop()
	return c, nil
}

// PopMaybeCell pops a cell or null. Null yields a nil cell.
func (s *Stack) PopMaybeCell() (*cell.Cell, error) {
	if err := s.Check(1); err != nil {
		return nil, err
	}
	if _, ok := s.at(0).(Null); ok {
		s.pop()
		return nil, nil
	}
	return s.PopCell()
}

// PopSlice pops a slice.
func (s *Stack) PopSlice() (cell.Slice, error) {
	if err := s.Check(1); err != nil {
		return cell.Slice{}, err
	}
	cs, ok := s.at(0).(cell.Slice)
	if !ok {
		return cell.Slice{}, typeErr("slice", s.at(0))
	}
	s.pop()
	return cs, nil
}

// PopBuilder pops a builder. The result is shared with whatever
// else holds the value and must be cloned before it is modified.
func (s *Stack) PopBuilder() (*cell.Builder, error) {
	if err := s.Check(1); err != nil {
		return nil, err
	}
	b, ok := s.at(0).(*cell.Builder)
	if !ok {
		return nil, typeErr("builder", s.at(0))
	}
	s.pop()
	return b, nil
}

// PopCont pops a continuation.
func (s *Stack) PopCont() (Continuation, error) {
	if err := s.Check(1); err != nil {
		return nil, err
	}
	k, ok := s.at(0).(Continuation)
	if !ok {
		return nil, typeErr("continuation", s.at(0))
	}
	s.pop()
	return k, nil
}

// PopTuple pops a tuple of at most max entries.
func (s *Stack) PopTuple(max int) (Tuple, error) {
	if err := s.Check(1); err != nil {
		return nil, err
	}
	t, ok := s.at(0).(Tuple)
	if !ok {
		return nil, typeErr("tuple", s.at(0))
	}
	if len(t) > max {
		return nil, errors.WithDetailf(ErrTypeCheck, "tuple of %d entries, at most %d allowed", len(t), max)
	}
	s.pop()
	return t, nil
}

// PopMaybeTuple pops a tuple of at most max entries or null.
// Null yields a nil tuple and ok false.
func (s *Stack) PopMaybeTuple(max int) (t Tuple, ok bool, err error) {
	if err := s.Check(1); err != nil {
		return nil, false, err
	}
	if _, isNull := s.at(0).(Null); isNull {
		s.pop()
		return nil, false, nil
	}
	t, err = s.PopTuple(max)
	return t, err == nil, err
}

// Clone returns an independent copy of s. Entries are shared.
func (s *Stack) Clone() *Stack {
	if s == nil {
		return &Stack{}
	}
	return &Stack{items: append([]Value(nil), s.items...)}
}

// SplitTop removes the top n entries into a new stack, then drops
// skip more entries below them.
func (s *Stack) SplitTop(n, skip int) (*Stack, error) {
	if err := s.Check(n + skip); err != nil {
		return nil, err
	}
	m := len(s.items)
	top := &Stack{items: append([]Value(nil), s.items[m-n:]...)}
	s.drop(n + skip)
	return top, nil
}

// MoveFrom moves the top n entries of src onto s, keeping their order.
func (s *Stack) MoveFrom(src *Stack, n int) error {
	if err := src.Check(n); err != nil {
		return err
	}
	m := len(src.items)
	s.items = append(s.items, src.items[m-n:]...)
	src.drop(n)
	return nil
}

// DropBottom removes the bottom n entries.
func (s *Stack) DropBottom(n int) error {
	if err := s.Check(n); err != nil {
		return err
	}
	s.items = append(s.items[:0:0], s.items[n:]...)
	return nil
}

func (s *Stack) String() string {
	parts := make([]string, 0, s.Depth())
	for _, v := range s.Items() {
		parts = append(parts, FormatValue(v))
	}
	return "[ " + strings.Join(parts, " ") + " ]"
}
