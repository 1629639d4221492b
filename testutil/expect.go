package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/mnill/tycho-vm/errors"
)

var wd, _ = os.Getwd()

var dump = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

func ExpectEqual(t testing.TB, actual, expected interface{}, msg string) {
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("%s: got %v, expected %v\n%s", msg, actual, expected, stackTrace())
	}
}

// ExpectDeepEqual is like ExpectEqual but compares with DeepEqual
// and dumps both values in full on a mismatch.
func ExpectDeepEqual(t testing.TB, actual, expected interface{}, msg string) {
	if !DeepEqual(actual, expected) {
		t.Errorf("%s:\ngot:\n%s\nexpected:\n%s\n%s", msg, dump.Sdump(actual), dump.Sdump(expected), stackTrace())
	}
}

// ExpectStringEqual compares the String forms of two values,
// such as cells or stacks.
func ExpectStringEqual(t testing.TB, actual, expected fmt.Stringer, msg string) {
	if a, e := actual.String(), expected.String(); a != e {
		t.Errorf("%s: got %s, expected %s\n%s", msg, a, e, stackTrace())
	}
}

func ExpectError(t testing.TB, expected error, msg string, fn func() error) {
	actual := fn()
	if expected != errors.Root(actual) {
		t.Errorf("%s: got error %v, expected %v\n%s", msg, actual, expected, stackTrace())
	}
}

func FatalErr(t testing.TB, err error) {
	args := []interface{}{err}
	for _, frame := range errors.Stack(err) {
		file := frame.File
		if rel, err := filepath.Rel(wd, file); err == nil && !strings.HasPrefix(rel, "../") {
			file = rel
		}
		funcname := frame.Func[strings.IndexByte(frame.Func, '.')+1:]
		s := fmt.Sprintf("\n%s:%d: %s", file, frame.Line, funcname)
		args = append(args, s)
	}
	t.Fatal(args...)
}

func stackTrace() []byte {
	buf := make([]byte, 16384)
	n := runtime.Stack(buf, false)
	return buf[:n]
}
