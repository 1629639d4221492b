package log

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	chainerrors "github.com/mnill/tycho-vm/errors"
)

func setTestLogWriter(w io.Writer) func() {
	logWriterMu.Lock()
	old := logWriter
	logWriter = w
	logWriterMu.Unlock()

	return func() {
		logWriterMu.Lock()
		logWriter = old
		logWriterMu.Unlock()
	}
}

func expectContains(t *testing.T, got string, want []string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("Result did not contain string:\ngot:  %s\nwant: %s", got, w)
		}
	}
}

func TestPrintkv(t *testing.T) {
	examples := []struct {
		keyvals []interface{}
		want    []string
	}{
		// Basic example
		{
			keyvals: []interface{}{"msg", "hello world"},
			want: []string{
				"at=log_test.go:",
				"t=",
				`msg="hello world"`,
			},
		},

		// Duplicate keys
		{
			keyvals: []interface{}{"msg", "hello world", "msg", "goodbye world"},
			want: []string{
				"at=log_test.go:",
				`msg="hello world"`,
				`msg="goodbye world"`,
			},
		},

		// Zero log params
		{
			keyvals: nil,
			want: []string{
				"at=log_test.go:",
				"t=",
			},
		},

		// Odd number of log params
		{
			keyvals: []interface{}{"k1", "v1", "k2"},
			want: []string{
				"k1=v1",
				"k2=",
				`log-error="odd number of log params"`,
			},
		},
	}

	for i, ex := range examples {
		t.Log("Example", i)

		buf := new(bytes.Buffer)
		reset := setTestLogWriter(buf)
		Printkv(context.Background(), ex.keyvals...)
		reset()

		expectContains(t, buf.String(), ex.want)
	}
}

func TestPrintkvRunID(t *testing.T) {
	buf := new(bytes.Buffer)
	reset := setTestLogWriter(buf)
	defer reset()

	Printkv(WithRunID(context.Background(), "run-7"), "exit", 0)
	expectContains(t, buf.String(), []string{"run=run-7", "exit=0"})

	buf.Reset()
	Printkv(context.Background())
	if strings.Contains(buf.String(), "run=") {
		t.Errorf("unexpected run key in %q", buf.String())
	}
}

func TestPrintf(t *testing.T) {
	buf := new(bytes.Buffer)
	reset := setTestLogWriter(buf)
	defer reset()

	Printf(context.Background(), "test round %d", 0)
	expectContains(t, buf.String(), []string{
		"at=log_test.go:",
		`message="test round 0"`,
	})
}

func TestError(t *testing.T) {
	buf := new(bytes.Buffer)
	reset := setTestLogWriter(buf)
	defer reset()

	Error(context.Background(), errors.New("boo"), "failure x ", 0)
	expectContains(t, buf.String(), []string{
		"at=log_test.go:",
		`error="failure x 0: boo"`,
	})
}

func TestErrorDetail(t *testing.T) {
	buf := new(bytes.Buffer)
	reset := setTestLogWriter(buf)
	defer reset()

	err := chainerrors.WithDetail(chainerrors.New("bad code"), "truncated")
	Error(context.Background(), err)
	expectContains(t, buf.String(), []string{
		`error="truncated: bad code"`,
		"detail=truncated",
	})
}

func TestFormatKey(t *testing.T) {
	examples := []struct {
		key  interface{}
		want string
	}{
		{"hello", "hello"},
		{"hello world", "hello-world"},
		{"", "?"},
		{true, "true"},
		{"a b\"c\nd;e\tf龜g", "a-b-c-d-e-f龜g"},
	}

	for i, ex := range examples {
		t.Log("Example", i)
		got := formatKey(ex.key)
		if got != ex.want {
			t.Errorf("formatKey(%#v) = %q want %q", ex.key, got, ex.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	examples := []struct {
		value interface{}
		want  string
	}{
		{"hello", "hello"},
		{"hello world", `"hello world"`},
		{1.5, "1.5"},
		{true, "true"},
		{errors.New("this is an error"), `"this is an error"`},
		{[]byte{'a', 'b', 'c'}, `"[97 98 99]"`},
		{bytes.NewBuffer([]byte{'a', 'b', 'c'}), "abc"},
		{"a b\"c\nd;e\tf龜g", `"a b\"c\nd;e\tf龜g"`},
	}

	for i, ex := range examples {
		t.Log("Example", i)
		got := formatValue(ex.value)
		if got != ex.want {
			t.Errorf("formatValue(%#v) = %q want %q", ex.value, got, ex.want)
		}
	}
}
