package vm

import (
	"strings"

	"github.com/mnill/tycho-vm/protocol/cell"
)

// A Value is one stack entry. Its dynamic type is one of
// Null, Int, *cell.Cell, cell.Slice, *cell.Builder,
// Continuation or Tuple. Values are immutable: a builder
// on the stack is cloned before it is stored into.
type Value interface{}

// Null is the null value.
type Null struct{}

func (Null) String() string { return "(null)" }

// Tuple is an immutable sequence of at most MaxTupleLen values.
type Tuple []Value

// MaxTupleLen is the longest tuple instructions can build.
const MaxTupleLen = 255

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = FormatValue(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (t Tuple) with(i int, v Value) Tuple {
	n := len(t)
	if i >= n {
		n = i + 1
	}
	t2 := make(Tuple, n)
	copy(t2, t)
	for j := len(t); j < n; j++ {
		t2[j] = Null{}
	}
	t2[i] = v
	return t2
}

// typeName names the dynamic type of v for error details.
func typeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Int:
		return "integer"
	case *cell.Cell:
		return "cell"
	case cell.Slice:
		return "slice"
	case *cell.Builder:
		return "builder"
	case Continuation:
		return "continuation"
	case Tuple:
		return "tuple"
	}
	return "unknown"
}

// FormatValue renders v the way stack dumps show it.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil:
		return "(undefined)"
	case Null:
		return v.String()
	case Int:
		return v.String()
	case *cell.Cell:
		return v.String()
	case cell.Slice:
		return "CS" + v.String()
	case *cell.Builder:
		return v.String()
	case Continuation:
		return "Cont{" + v.String() + "}"
	case Tuple:
		return v.String()
	}
	return "?"
}

func sameType(a, b Value) bool {
	return typeName(a) == typeName(b)
}
