package vm

import (
	"strconv"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

// Exception codes. Explicit throws may use any code in 0..0xffff.
const (
	ExcStackUnderflow = 2
	ExcStackOverflow  = 3
	ExcIntOverflow    = 4
	ExcRangeCheck     = 5
	ExcInvalidOpcode  = 6
	ExcTypeCheck      = 7
	ExcCellOverflow   = 8
	ExcCellUnderflow  = 9
	ExcDictError      = 10
	ExcUnknown        = 11
	ExcFatal          = 12
	ExcOutOfGas       = 13
)

// Exit codes with no exception behind them.
const (
	ExitOK        = 0
	ExitAlt       = 1
	ExitOutOfGas  = ^ExcOutOfGas // -14
	ExitFatal     = ^ExcFatal    // -13
	ExitNoHandler = 11           // c3 default
)

// Exception is a VM-level failure: a numeric code and an optional
// parameter that a handler in c2 receives on the stack.
type Exception struct {
	Code  int
	Param Value // nil if absent
	msg   string
}

func (e *Exception) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return "exception " + strconv.Itoa(e.Code)
}

// Instruction handlers return these, possibly wrapped
// with errors.WithDetail.
var (
	ErrStackUnderflow = &Exception{Code: ExcStackUnderflow, msg: "stack underflow"}
	ErrStackOverflow  = &Exception{Code: ExcStackOverflow, msg: "stack overflow"}
	ErrIntOverflow    = &Exception{Code: ExcIntOverflow, msg: "integer overflow"}
	ErrRangeCheck     = &Exception{Code: ExcRangeCheck, msg: "range check error"}
	ErrInvalidOpcode  = &Exception{Code: ExcInvalidOpcode, msg: "invalid opcode"}
	ErrTypeCheck      = &Exception{Code: ExcTypeCheck, msg: "type check error"}
	ErrCellOverflow   = &Exception{Code: ExcCellOverflow, msg: "cell overflow"}
	ErrCellUnderflow  = &Exception{Code: ExcCellUnderflow, msg: "cell underflow"}
	ErrDictError      = &Exception{Code: ExcDictError, msg: "dictionary error"}
	ErrUnknown        = &Exception{Code: ExcUnknown, msg: "unknown error"}
	ErrFatal          = &Exception{Code: ExcFatal, msg: "fatal error"}
	ErrOutOfGas       = &Exception{Code: ExcOutOfGas, msg: "out of gas"}
)

// Errors returned by Run and Step for conditions outside
// the bytecode's control.
var (
	ErrStepLimit  = errors.New("step limit exceeded")
	ErrHalted     = errors.New("machine halted")
	ErrUnexpected = errors.New("unexpected error")
)

// throw returns an explicit exception.
func throw(code int, param Value) error {
	return &Exception{Code: code, Param: param}
}

// exceptionOf classifies err as a VM exception.
// Errors from the cell package map to their exception codes;
// anything else is ExcUnknown.
func exceptionOf(err error) *Exception {
	root := errors.Root(err)
	if e, ok := root.(*Exception); ok {
		return e
	}
	switch root {
	case cell.ErrCellOverflow, cell.ErrInvalidExotic:
		return ErrCellOverflow
	case cell.ErrCellUnderflow:
		return ErrCellUnderflow
	case cell.ErrRange:
		return ErrRangeCheck
	}
	return ErrUnknown
}

func isOutOfGas(err error) bool {
	return errors.Root(err) == ErrOutOfGas
}
