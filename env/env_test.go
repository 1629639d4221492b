package env

import (
	"os"
	"reflect"
	"testing"
)

func TestInt(t *testing.T) {
	result := Int("nonexistent", 15)
	Parse()

	if *result != 15 {
		t.Fatalf("expected result=15, got result=%d", *result)
	}

	os.Setenv("int-key", "25")
	result = Int("int-key", 15)
	Parse()

	if *result != 25 {
		t.Fatalf("expected result=25, got result=%d", *result)
	}
}

func TestInt64(t *testing.T) {
	os.Setenv("gas-key", "10000000000")
	result := Int64("gas-key", 1)
	Parse()

	if *result != 10000000000 {
		t.Fatalf("expected result=10000000000, got result=%d", *result)
	}
}

func TestBool(t *testing.T) {
	os.Setenv("bool-key", "true")
	result := Bool("bool-key", false)
	Parse()

	if !*result {
		t.Fatal("expected result=true")
	}
}

func TestString(t *testing.T) {
	result := String("nonexistent", "default")
	os.Setenv("string-key", "abc")
	set := String("string-key", "default")
	Parse()

	if *result != "default" {
		t.Fatalf("expected result=default, got %q", *result)
	}
	if *set != "abc" {
		t.Fatalf("expected result=abc, got %q", *set)
	}
}

func TestStringSlice(t *testing.T) {
	os.Setenv("slice-key", "a,b,c")
	result := StringSlice("slice-key", "x")
	Parse()

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(*result, want) {
		t.Fatalf("expected %v, got %v", want, *result)
	}
}

func TestParseError(t *testing.T) {
	defer func() { funcs = nil }()
	os.Setenv("bad-int-key", "x")
	Int("bad-int-key", 1)
	if parse() {
		t.Fatal("expected parse failure")
	}
}
