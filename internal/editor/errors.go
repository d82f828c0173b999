package editor

import (
	stdErrors "errors"
	"fmt"
)

// Kind classifies an editing failure.
type Kind int

const (
	// KindValidation marks bad or missing parameters, detected before the
	// document is changed.
	KindValidation Kind = iota + 1
	// KindNotFound marks a search text that does not occur where requested.
	KindNotFound
	// KindAutomation marks failures of the document host: open, lock, save.
	KindAutomation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindAutomation:
		return "automation error"
	default:
		return "unknown error"
	}
}

// Error is the error type produced by the resolver and executor.
type Error struct {
	Kind   Kind
	Op     string // operation that failed, e.g. "resolve", "insert"
	Line   int    // addressed line, 0 when not applicable
	Target string // search text, empty when not applicable
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf returns a KindValidation error.
func Validationf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns the error for a search text missing from a line.
func NotFound(op string, line int, target string) *Error {
	return &Error{
		Kind:   KindNotFound,
		Op:     op,
		Line:   line,
		Target: target,
		Msg:    fmt.Sprintf("no match for %q on line %d", target, line),
	}
}

// Automation wraps a host failure.
func Automation(op, msg string, err error) *Error {
	return &Error{Kind: KindAutomation, Op: op, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error count as
// automation failures.
func KindOf(err error) Kind {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Kind
	}
	return KindAutomation
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a KindValidation error.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}
