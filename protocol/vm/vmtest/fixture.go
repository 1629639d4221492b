// Package vmtest loads machine runs described in TOML files and
// checks their outcome.
//
// A fixture file holds any number of cases:
//
//	[[case]]
//	name = "add"
//	code = "72 73 A0"
//	want_stack = ["5"]
//	want_gas = 59
//
// Code and reference cells are hex bit strings; spaces are ignored.
// Stack values are written as decimal or 0x integers, null, NaN,
// x{..} for a slice, "cell x{..}" for a cell, "builder x{..}" for a
// builder and [a b ...] for a tuple.
package vmtest

import (
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vm"
)

// ErrFixture is returned for a malformed fixture.
var ErrFixture = errors.New("bad fixture")

// File is one fixture file.
type File struct {
	Cases []*Case `toml:"case"`

	Path string `toml:"-"`
}

// Case is one run and its expected outcome.
type Case struct {
	Name      string   `toml:"name"`
	Code      string   `toml:"code"`
	Refs      []string `toml:"refs"`
	Stack     []string `toml:"stack"`
	Data      string   `toml:"data"`
	Params    []string `toml:"params"`
	Gas       *Gas     `toml:"gas"`
	StepLimit int64    `toml:"step_limit"`

	Exit      int      `toml:"exit"`
	WantStack []string `toml:"want_stack"`
	WantGas   int64    `toml:"want_gas"`
	Committed *bool    `toml:"committed"`
}

// Gas mirrors vm.GasParams.
type Gas struct {
	Max    int64 `toml:"max"`
	Limit  int64 `toml:"limit"`
	Credit int64 `toml:"credit"`
}

// Load parses the fixture file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading fixture")
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	f.Path = path
	return f, nil
}

// Parse parses fixture file contents.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Sub(ErrFixture, err)
	}
	for i, c := range f.Cases {
		if c.Name == "" {
			return nil, errors.WithDetailf(ErrFixture, "case %d has no name", i)
		}
	}
	return &f, nil
}

// Glob loads every *.toml file in dir, sorted by name.
func Glob(dir string) ([]*File, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, errors.Wrap(err)
	}
	sort.Strings(paths)
	var files []*File
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Assemble builds a cell from hex bit-string notation with refs
// appended as references.
func Assemble(hex string, refs ...*cell.Cell) (*cell.Cell, error) {
	data, n, err := cell.ParseBitString(strings.Join(strings.Fields(hex), ""))
	if err != nil {
		return nil, err
	}
	b := cell.NewBuilder()
	if err := b.StoreBits(data, n); err != nil {
		return nil, err
	}
	for _, r := range refs {
		if err := b.StoreRef(r); err != nil {
			return nil, err
		}
	}
	return b.EndCell(), nil
}

// ParseValue parses one stack value.
func ParseValue(s string) (vm.Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "null" || s == "(null)":
		return vm.Null{}, nil
	case s == "NaN":
		return vm.NaN, nil
	case strings.HasPrefix(s, "["):
		if !strings.HasSuffix(s, "]") {
			return nil, errors.WithDetailf(ErrFixture, "unterminated tuple %q", s)
		}
		var t vm.Tuple
		for _, item := range splitTuple(s[1 : len(s)-1]) {
			v, err := ParseValue(item)
			if err != nil {
				return nil, err
			}
			t = append(t, v)
		}
		if t == nil {
			t = vm.Tuple{}
		}
		return t, nil
	case strings.HasPrefix(s, "x{"):
		c, err := Assemble(s)
		if err != nil {
			return nil, errors.Sub(ErrFixture, err)
		}
		return c.BeginParse(), nil
	case strings.HasPrefix(s, "cell "):
		c, err := Assemble(strings.TrimPrefix(s, "cell "))
		if err != nil {
			return nil, errors.Sub(ErrFixture, err)
		}
		return c, nil
	case strings.HasPrefix(s, "builder "):
		c, err := Assemble(strings.TrimPrefix(s, "builder "))
		if err != nil {
			return nil, errors.Sub(ErrFixture, err)
		}
		b := cell.NewBuilder()
		b.StoreSlice(c.BeginParse())
		return b, nil
	}
	x, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, errors.WithDetailf(ErrFixture, "bad value %q", s)
	}
	v := vm.NewBigInt(x)
	if v.IsNaN() {
		return nil, errors.WithDetailf(ErrFixture, "%s does not fit in 257 bits", s)
	}
	return v, nil
}

// splitTuple splits tuple contents on spaces outside brackets and
// braces.
func splitTuple(s string) []string {
	var (
		items []string
		depth int
		start = -1
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		case c == ' ' && depth == 0:
			if start >= 0 {
				items = append(items, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		items = append(items, s[start:])
	}
	return mergePrefixed(items)
}

// mergePrefixed rejoins "cell x{..}" and "builder x{..}" split on
// their space.
func mergePrefixed(items []string) []string {
	var out []string
	for i := 0; i < len(items); i++ {
		if (items[i] == "cell" || items[i] == "builder") && i+1 < len(items) {
			out = append(out, items[i]+" "+items[i+1])
			i++
			continue
		}
		out = append(out, items[i])
	}
	return out
}

func parseValues(ss []string) ([]vm.Value, error) {
	vals := make([]vm.Value, 0, len(ss))
	for _, s := range ss {
		v, err := ParseValue(s)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}
