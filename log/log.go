// Package log implements a standard convention for structured logging.
// Log entries are formatted as K=V pairs.
// By default, output is written to stdout; this can be changed with SetOutput.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mnill/tycho-vm/errors"
)

const rfc3339NanoFixed = "2006-01-02T15:04:05.000000000Z07:00"

var (
	logWriterMu sync.Mutex // protects the following
	logWriter   io.Writer  = os.Stdout
	prefix      []byte

	// pairDelims contains a list of characters that may be used as delimeters
	// between key-value pairs in a log entry. Keys and values will be quoted or
	// otherwise formatted to ensure that key-value extraction is unambiguous.
	pairDelims      = " ,;|&\t\n\r"
	illegalKeyChars = pairDelims + `="`
)

// Conventional key names for log entries
const (
	KeyCaller = "at"  // location of caller
	KeyTime   = "t"   // time of call
	KeyRunID  = "run" // VM run ID from context

	KeyMessage = "message" // produced by Printf
	KeyError   = "error"   // produced by Error
	KeyStack   = "stack"   // used by Printkv to print stack on subsequent lines

	keyLogError = "log-error" // for errors produced by the log package itself
)

type runIDKey struct{}

// WithRunID returns a context carrying id.
// Entries logged with that context include run=id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID stored in ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// SetOutput sets the log output to w.
// If SetOutput hasn't been called,
// the default behavior is to write to stdout.
func SetOutput(w io.Writer) {
	logWriterMu.Lock()
	logWriter = w
	logWriterMu.Unlock()
}

// SetPrefix sets the output prefix.
func SetPrefix(keyval ...interface{}) {
	// Invariant: len(keyval) is always even.
	if len(keyval)%2 != 0 {
		panic(fmt.Sprintf("odd-length prefix args: %v", keyval))
	}
	var b []byte
	for i := 0; i < len(keyval); i += 2 {
		k := formatKey(keyval[i])
		v := formatValue(keyval[i+1])
		b = append(b, k...)
		b = append(b, '=')
		b = append(b, v...)
		b = append(b, ' ')
	}
	logWriterMu.Lock()
	prefix = b
	logWriterMu.Unlock()
}

// Printkv writes a structured log entry to the log output. Log fields are
// specified as a variadic sequence of alternating keys and values.
//
// Duplicate keys will be preserved.
//
// Several fields are automatically added to the log entry: a timestamp, a
// string indicating the file and line number of the caller, and the run ID
// taken from the context, when there is one.
//
// As a special case, the auto-generated caller may be overridden by passing in
// a new value for the KeyCaller key as the first key-value pair. The override
// feature should be reserved for custom logging functions that wrap Printkv.
//
// Printkv will also print the stack trace, if any, on separate lines
// following the message. The stack is obtained from the following,
// in order of preference:
//   - a KeyStack value with type []byte or []errors.StackFrame
//   - a KeyError value with type error, using the result of errors.Stack
func Printkv(ctx context.Context, keyvals ...interface{}) {
	// Invariant: len(keyvals) is always even.
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "", keyLogError, "odd number of log params")
	}

	// The auto-generated caller value may be overwritten.
	var vcaller string
	if len(keyvals) >= 2 && keyvals[0] == KeyCaller {
		vcaller = formatValue(keyvals[1])
		keyvals = keyvals[2:]
	} else {
		vcaller = caller(1)
	}

	t := time.Now().UTC()

	// Prepend the log entry with auto-generated fields.
	out := KeyCaller + "=" + vcaller + " " + KeyTime + "=" + formatValue(t.Format(rfc3339NanoFixed))
	if id := RunID(ctx); id != "" {
		out += " " + KeyRunID + "=" + formatValue(id)
	}

	var stack interface{}
	for i := 0; i < len(keyvals); i += 2 {
		k := keyvals[i]
		v := keyvals[i+1]
		if k == KeyStack && isStackVal(v) {
			stack = v
			continue
		}
		if k == KeyError {
			if e, ok := v.(error); ok && stack == nil {
				stack = errors.Stack(errors.Wrap(e)) // wrap to ensure callstack
			}
		}
		out += " " + formatKey(k) + "=" + formatValue(v)
	}

	logWriterMu.Lock()
	logWriter.Write(prefix)
	logWriter.Write([]byte(out)) // ignore errors
	logWriter.Write([]byte{'\n'})
	writeRawStack(logWriter, stack)
	logWriterMu.Unlock()
}

// Fatalkv is equivalent to Printkv() followed by a call to os.Exit(1).
func Fatalkv(ctx context.Context, keyvals ...interface{}) {
	if len(keyvals) == 0 || keyvals[0] != KeyCaller {
		keyvals = append([]interface{}{KeyCaller, caller(1)}, keyvals...)
	}
	Printkv(ctx, keyvals...)
	os.Exit(1)
}

func writeRawStack(w io.Writer, v interface{}) {
	switch v := v.(type) {
	case []byte:
		if len(v) > 0 {
			w.Write(v)
			w.Write([]byte{'\n'})
		}
	case []errors.StackFrame:
		for _, s := range v {
			io.WriteString(w, s.String())
			w.Write([]byte{'\n'})
		}
	}
}

func isStackVal(v interface{}) bool {
	switch v.(type) {
	case []byte:
		return true
	case []errors.StackFrame:
		return true
	}
	return false
}

// Printf writes a log entry containing a message assigned to the
// "message" key. Arguments are handled as in fmt.Printf.
func Printf(ctx context.Context, format string, a ...interface{}) {
	Printkv(ctx, KeyCaller, caller(1), KeyMessage, fmt.Sprintf(format, a...))
}

// Error writes a log entry containing an error message assigned to the
// "error" key. The error's detail, if any, is logged under "detail".
// Optionally, an error message prefix can be included. Prefix arguments are
// handled as in fmt.Print.
func Error(ctx context.Context, err error, a ...interface{}) {
	if len(a) > 0 && len(errors.Stack(err)) > 0 {
		err = errors.Wrap(err, a...) // keep err's stack
	} else if len(a) > 0 {
		err = fmt.Errorf("%s: %s", fmt.Sprint(a...), err) // don't add a stack here
	}
	keyvals := []interface{}{KeyCaller, caller(1), KeyError, err}
	if d := errors.Detail(err); d != "" {
		keyvals = append(keyvals, "detail", d)
	}
	Printkv(ctx, keyvals...)
}

// caller returns a string containing filename and line number of a
// function invocation on the calling goroutine's stack.
// The argument skip is the number of stack frames to ascend, where
// 0 is the calling site of caller. If no stack information is not available,
// "?:?" is returned.
func caller(skip int) string {
	_, file, nline, ok := runtime.Caller(skip + 1)
	if !ok {
		return "?:?"
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return file + ":" + strconv.Itoa(nline)
}

// formatKey ensures that the stringified key is valid for use in a
// K=V format. It stubs out delimeter and quoter characters in
// the key string with hyphens.
func formatKey(k interface{}) string {
	s := fmt.Sprint(k)
	if s == "" {
		return "?"
	}

	for _, c := range illegalKeyChars {
		s = strings.Replace(s, string(c), "-", -1)
	}

	return s
}

// formatValue ensures that the stringified value is valid for use in a
// K=V format. It quotes the string value if delimeter or quoter
// characters are present in the value string.
func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, pairDelims) {
		return strconv.Quote(s)
	}
	return s
}

// RecoverAndLogError must be used inside a defer.
func RecoverAndLogError(ctx context.Context) {
	if err := recover(); err != nil {
		const size = 64 << 10
		buf := make([]byte, size)
		buf = buf[:runtime.Stack(buf, false)]
		Printkv(ctx,
			KeyMessage, "panic",
			KeyError, err,
			KeyStack, buf,
		)
	}
}
