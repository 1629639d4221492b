package vm

import (
	"fmt"
	"strings"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// maxPrefixBits is the longest opcode prefix in the table.
const maxPrefixBits = 24

type (
	execFn   func(vm *Machine, ins *Instruction) error
	decodeFn func(ins *Instruction, code *cell.Slice) error
	showFn   func(ins *Instruction) string
)

// opEntry describes one opcode: a prefix of bits bits, argBits
// operand bits read into Instruction.x, then an optional decoder
// for variable-length operands.
type opEntry struct {
	name    string
	prefix  uint32
	bits    int
	argBits int
	check   func(x int) bool // rejects reserved operand values
	quiet   bool
	decode  decodeFn
	exec    execFn
	show    showFn
}

func (e opEntry) checks(f func(x int) bool) opEntry {
	e.check = f
	return e
}

func (e opEntry) decodes(f decodeFn) opEntry {
	e.decode = f
	return e
}

func (e opEntry) shows(f showFn) opEntry {
	e.show = f
	return e
}

// Instruction is one decoded instruction with its operands.
type Instruction struct {
	Name string
	Bits int // encoded length, prefix included
	Refs int // references consumed from the code cell

	x    int
	n    Int
	data cell.Slice
	ref  *cell.Cell
	ref2 *cell.Cell
	str  []byte

	entry *opEntry
}

func (ins *Instruction) quiet() bool { return ins.entry.quiet }

func (ins *Instruction) String() string {
	if ins.entry != nil && ins.entry.show != nil {
		return ins.entry.show(ins)
	}
	return ins.Name
}

type trieNode struct {
	child [2]*trieNode
	entry *opEntry
}

// opTrie is a binary trie over opcode prefixes.
type opTrie struct {
	root trieNode
}

// insert adds e. Two entries with the same prefix and length
// are a table construction error.
func (t *opTrie) insert(e *opEntry) {
	if e.bits <= 0 || e.bits > maxPrefixBits || e.prefix>>e.bits != 0 {
		panic(fmt.Sprintf("vm: bad opcode prefix %s %x/%d", e.name, e.prefix, e.bits))
	}
	n := &t.root
	for i := e.bits - 1; i >= 0; i-- {
		b := (e.prefix >> i) & 1
		if n.child[b] == nil {
			n.child[b] = new(trieNode)
		}
		n = n.child[b]
	}
	if n.entry != nil {
		panic(fmt.Sprintf("vm: duplicate opcode prefix %x/%d: %s and %s", e.prefix, e.bits, n.entry.name, e.name))
	}
	n.entry = e
}

// lookup returns the entry with the longest prefix matching code.
func (t *opTrie) lookup(code cell.Slice) *opEntry {
	n := min(code.BitsLeft(), maxPrefixBits)
	w, _ := code.PreloadUint(n)
	var best *opEntry
	node := &t.root
	for i := n - 1; i >= 0; i-- {
		node = node.child[(w>>i)&1]
		if node == nil {
			break
		}
		if node.entry != nil {
			best = node.entry
		}
	}
	return best
}

func newTrie(groups ...[]opEntry) *opTrie {
	t := new(opTrie)
	for _, g := range groups {
		for i := range g {
			t.insert(&g[i])
		}
	}
	return t
}

// Decode decodes the instruction at the start of code and returns
// it with the code that follows. It neither executes nor charges gas.
func Decode(code cell.Slice) (*Instruction, cell.Slice, error) {
	return decodeWith(codepage0, code)
}

func decodeWith(t *opTrie, code cell.Slice) (*Instruction, cell.Slice, error) {
	e := t.lookup(code)
	if e == nil {
		return nil, code, errors.WithDetailf(ErrInvalidOpcode, "no opcode matches %s", code)
	}
	rest := code
	rest.SkipBits(e.bits)
	ins := &Instruction{Name: e.name, entry: e}
	if e.argBits > 0 {
		x, err := rest.LoadUint(e.argBits)
		if err != nil {
			return nil, code, errors.WithDetailf(ErrInvalidOpcode, "truncated %s", e.name)
		}
		ins.x = int(x)
	}
	if e.check != nil && !e.check(ins.x) {
		return nil, code, errors.WithDetailf(ErrInvalidOpcode, "%s with reserved operand %d", e.name, ins.x)
	}
	if e.decode != nil {
		if err := e.decode(ins, &rest); err != nil {
			if errors.Root(err) == cell.ErrCellUnderflow {
				err = errors.WithDetailf(ErrInvalidOpcode, "truncated %s", e.name)
			}
			return nil, code, err
		}
	}
	ins.Bits = code.BitsLeft() - rest.BitsLeft()
	ins.Refs = code.RefsLeft() - rest.RefsLeft()
	return ins, rest, nil
}

// Disassemble decodes every instruction of code, following neither
// references nor embedded continuations. A decoding error ends the
// listing and is returned with the instructions before it.
func Disassemble(code cell.Slice) ([]*Instruction, error) {
	var out []*Instruction
	for code.BitsLeft() > 0 {
		ins, rest, err := Decode(code)
		if err != nil {
			return out, err
		}
		out = append(out, ins)
		code = rest
	}
	return out, nil
}

// Format renders instructions one per line.
func Format(list []*Instruction) string {
	var b strings.Builder
	for _, ins := range list {
		b.WriteString(ins.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Formatters shared by the opcode table.

func showX(ins *Instruction) string { return fmt.Sprintf("%s %d", ins.Name, ins.x) }

func showS(ins *Instruction) string { return fmt.Sprintf("%s s%d", ins.Name, ins.x) }

func showC(ins *Instruction) string { return fmt.Sprintf("%s c%d", ins.Name, ins.x) }

func showN(ins *Instruction) string { return fmt.Sprintf("%s %s", ins.Name, ins.n) }

func showSlice(ins *Instruction) string { return fmt.Sprintf("%s %s", ins.Name, ins.data) }

func showRef(ins *Instruction) string { return fmt.Sprintf("%s (%s)", ins.Name, ins.ref) }
