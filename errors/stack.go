package errors

import (
	"fmt"
	"runtime"
)

const stackTraceSize = 10

// StackFrame is one entry of the call stack recorded when an
// error is first wrapped.
type StackFrame struct {
	Func string
	File string
	Line int
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s:%d - %s", f.File, f.Line, f.Func)
}

// Stack returns the call stack recorded in err, or nil if err was
// not made by this package.
func Stack(err error) []StackFrame {
	if wErr, ok := err.(wrapperError); ok {
		return wErr.stack
	}
	return nil
}

// getStack returns at most size frames of the calling goroutine's
// stack, skipping skip frames above its caller.
func getStack(skip int, size int) []StackFrame {
	pc := make([]uintptr, size)
	n := runtime.Callers(skip+1, pc)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pc[:n])
	trace := make([]StackFrame, 0, n)
	for {
		f, more := frames.Next()
		trace = append(trace, StackFrame{Func: f.Function, File: f.File, Line: f.Line})
		if !more || len(trace) == size {
			break
		}
	}
	return trace
}
