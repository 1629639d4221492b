package errors_test

import (
	"fmt"

	"github.com/mnill/tycho-vm/errors"
)

var ErrBadCode = errors.New("bad code")

func ExampleSub() {
	err := errors.Sub(ErrBadCode, load())
	fmt.Println(errors.Root(err) == ErrBadCode)
	// Output: true
}

func load() error { return errors.New("truncated cell") }
