package errors

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	err := errors.New("0")
	err1 := Wrap(err, "1")
	err2 := Wrap(err1, "2")
	err3 := Wrap(err2)

	if got := Root(err1); got != err {
		t.Fatalf("Root(%v)=%v want %v", err1, got, err)
	}

	if got := Root(err2); got != err {
		t.Fatalf("Root(%v)=%v want %v", err2, got, err)
	}

	if err2.Error() != "2: 1: 0" {
		t.Fatalf("err msg = %s want '2: 1: 0'", err2.Error())
	}

	if err3.Error() != "2: 1: 0" {
		t.Fatalf("err msg = %s want '2: 1: 0'", err3.Error())
	}

	if len(Stack(err1)) == 0 {
		t.Fatal("wrapped error has no stack")
	}
}

func TestWrapNil(t *testing.T) {
	var err error

	if Wrap(err, "1") != nil {
		t.Fatal("wrapping nil error should yield nil")
	}
	if WithDetail(err, "x") != nil || WithData(err, "k", 1) != nil || Sub(New("a"), err) != nil {
		t.Fatal("annotating nil error should yield nil")
	}
}

func TestWrapf(t *testing.T) {
	err := errors.New("0")
	err1 := Wrapf(err, "there are %d errors being wrapped", 1)
	if err1.Error() != "there are 1 errors being wrapped: 0" {
		t.Fatalf("err msg = %s want 'there are 1 errors being wrapped: 0'", err1.Error())
	}
}

func TestUnwrap(t *testing.T) {
	root := New("root")
	err := WithDetail(Wrap(root, "ctx"), "more")
	if !errors.Is(err, root) {
		t.Fatal("errors.Is did not see through wrapper")
	}
	if !Is(err, root) {
		t.Fatal("Is(err, root) = false")
	}
}

func TestDetail(t *testing.T) {
	root := New("root")
	err := WithDetail(root, "a")
	err1 := WithDetailf(err, "b=%d", 2)
	err2 := WithDetail(err, "c")

	if got := Detail(err1); got != "a; b=2" {
		t.Errorf("Detail(err1) = %q want %q", got, "a; b=2")
	}
	if got := Detail(err2); got != "a; c" {
		t.Errorf("Detail(err2) = %q want %q", got, "a; c")
	}
	if got := Detail(root); got != "" {
		t.Errorf("Detail(root) = %q want empty", got)
	}
}

func TestData(t *testing.T) {
	err := WithData(New("root"), "a", 1)
	err = WithData(err, "b", "x")
	want := map[string]interface{}{"a": 1, "b": "x"}
	if got := Data(err); !reflect.DeepEqual(got, want) {
		t.Errorf("Data = %v want %v", got, want)
	}
}

func TestSub(t *testing.T) {
	low := New("low")
	high := New("high")
	err := Sub(high, WithDetail(low, "d"))
	if Root(err) != high {
		t.Fatalf("Root = %v want %v", Root(err), high)
	}
	if got := err.Error(); got != "high: d: low" {
		t.Fatalf("msg = %q", got)
	}
	if got := Detail(err); got != "d" {
		t.Fatalf("Detail = %q want d", got)
	}
}

func TestStackFrames(t *testing.T) {
	err := Wrap(New("boom"))
	stack := Stack(err)
	if len(stack) == 0 {
		t.Fatal("no stack")
	}
	if !strings.HasSuffix(stack[0].Func, "TestStackFrames") {
		t.Errorf("first frame = %s, want the caller of Wrap", stack[0])
	}
	if len(stack) > stackTraceSize {
		t.Errorf("stack has %d frames, want at most %d", len(stack), stackTraceSize)
	}
}
