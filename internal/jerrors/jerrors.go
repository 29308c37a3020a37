// Package jerrors draws the three error-handling lines of §7: terminal
// outcomes are results and never wrapped as errors; malformed input is a
// UsageError that aborts with a fixed exit code; anything else (stack
// underflow, unhandled opcode, corrupt heap reference) is an
// ImplementationBug that must carry a stack trace and the offending
// opcode/PC/state for debugging.
package jerrors

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// UsageError reports malformed external input: a bad method identifier,
// an argument tuple that doesn't match the method's descriptor, or an
// unrecognized CLI flag. Callers abort with the usage exit code (§6).
type UsageError struct {
	msg string
}

func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string { return e.msg }

// ImplementationBug reports a violated internal invariant: stack
// underflow, an opcode the current step function doesn't recognize, a PC
// that falls outside its method's bytecode, or a heap reference into a
// cell of the wrong kind. These never represent a program-under-test's
// behavior; they represent a defect in this interpreter.
type ImplementationBug struct {
	cause error
	// Context fields for the fatal log line (§7: "must log the opcode,
	// PC, and current state for debugging").
	Method string
	Offset int
	Detail string
}

func NewImplementationBug(method string, offset int, detail string) *ImplementationBug {
	return &ImplementationBug{
		cause:  errors.New(detail),
		Method: method,
		Offset: offset,
		Detail: detail,
	}
}

func (e *ImplementationBug) Error() string {
	return fmt.Sprintf("implementation bug at %s@%d: %s", e.Method, e.Offset, e.Detail)
}

func (e *ImplementationBug) Unwrap() error { return e.cause }

// Format prints Error() for every verb; "%+v" also appends the stack
// captured at detection.
func (e *ImplementationBug) Format(s fmt.State, verb rune) {
	io.WriteString(s, e.Error())
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%+v", e.StackTrace())
	}
}

// StackTrace exposes the pkg/errors-captured frames so callers can print
// "%+v" for a fatal log line, per §7.
func (e *ImplementationBug) StackTrace() errors.StackTrace {
	type tracer interface{ StackTrace() errors.StackTrace }
	if t, ok := e.cause.(tracer); ok {
		return t.StackTrace()
	}
	return nil
}
