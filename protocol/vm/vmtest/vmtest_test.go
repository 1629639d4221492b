package vmtest

import (
	"context"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vm"
	"github.com/mnill/tycho-vm/testutil"
)

func TestFixtures(t *testing.T) {
	files, err := Glob("testdata")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no fixtures found")
	}
	for _, f := range files {
		for _, c := range f.Cases {
			c := c
			t.Run(f.Path+"/"+c.Name, func(t *testing.T) {
				res, err := c.Check()
				if err != nil {
					if res != nil {
						t.Logf("result: %s", spew.Sdump(res.Stack.Items()))
					}
					t.Fatal(err)
				}
			})
		}
	}
}

func TestCheckAll(t *testing.T) {
	files, err := Glob("testdata")
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu   sync.Mutex
		runs int
	)
	failures, err := CheckAll(context.Background(), files, 4, func(*Case, *vm.Result) {
		mu.Lock()
		runs++
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range failures {
		t.Error(f)
	}
	want := 0
	for _, f := range files {
		want += len(f.Cases)
	}
	if runs != want {
		t.Errorf("runs = %d, want %d", runs, want)
	}
}

func TestMismatch(t *testing.T) {
	f, err := Parse([]byte(`
[[case]]
name = "wrong"
code = "72"
exit = 1
want_stack = ["3"]
want_gas = 1
`))
	if err != nil {
		t.Fatal(err)
	}
	failures, err := CheckAll(context.Background(), []*File{f}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want one", failures)
	}
	got := errors.Detail(failures[0].Err)
	want := "exit code = 0, want 1; stack[0] = 2, want 3; gas used = 23, want 1"
	if got != want {
		t.Errorf("detail = %q, want %q", got, want)
	}
	if !errors.Is(failures[0].Err, ErrMismatch) {
		t.Errorf("root = %v, want ErrMismatch", errors.Root(failures[0].Err))
	}
}

func TestBadFixture(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"syntax", `[[case]`},
		{"no name", "[[case]]\ncode = \"72\""},
	}
	for _, c := range cases {
		_, err := Parse([]byte(c.toml))
		if errors.Root(err) != ErrFixture {
			t.Errorf("%s: err = %v, want ErrFixture", c.name, err)
		}
	}

	f, err := Parse([]byte("[[case]]\nname = \"bad code\"\ncode = \"7G\""))
	if err != nil {
		t.Fatal(err)
	}
	_, err = CheckAll(context.Background(), []*File{f}, 2, nil)
	if errors.Root(err) != ErrFixture {
		t.Errorf("err = %v, want ErrFixture", err)
	}
}

func TestParseValue(t *testing.T) {
	empty := cell.NewBuilder().EndCell()
	cases := []struct {
		in   string
		want vm.Value
	}{
		{"42", vm.NewInt(42)},
		{"-0x10", vm.NewInt(-16)},
		{"null", vm.Null{}},
		{"NaN", vm.NaN},
		{"[]", vm.Tuple{}},
		{"[1 [2 null]]", vm.Tuple{vm.NewInt(1), vm.Tuple{vm.NewInt(2), vm.Null{}}}},
		{"cell x{}", empty},
	}
	for _, c := range cases {
		got, err := ParseValue(c.in)
		if err != nil {
			t.Errorf("ParseValue(%q): %v", c.in, err)
			continue
		}
		testutil.ExpectEqual(t, vm.FormatValue(got), vm.FormatValue(c.want), c.in)
	}

	s, err := ParseValue("x{A5}")
	if err != nil {
		t.Fatal(err)
	}
	if sl, ok := s.(cell.Slice); !ok || sl.BitsLeft() != 8 {
		t.Errorf("x{A5} = %s, want an 8-bit slice", vm.FormatValue(s))
	}

	for _, bad := range []string{"1e3", "[1 2", "x{G}", "0x"} {
		if _, err := ParseValue(bad); errors.Root(err) != ErrFixture {
			t.Errorf("ParseValue(%q) err = %v, want ErrFixture", bad, err)
		}
	}
}
