package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Non-fatal runtime conditions.
	BufferFull Code = "buffer_full" // receive ring at capacity, byte dropped
	QueueFull  Code = "queue_full"  // command queue at capacity
	Busy       Code = "busy"
	NotReady   Code = "not_ready"
	Timeout    Code = "timeout"

	// Fatal at startup.
	Config Code = "config" // invalid capacity, baud or option

	// Lifecycle and IO.
	Closed      Code = "closed"
	IO          Code = "io"
	Unsupported Code = "unsupported"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	for err != nil {
		if c, ok := err.(Code); ok {
			return c
		}
		type coder interface{ Code() Code }
		if x, ok := err.(coder); ok {
			return x.Code()
		}
		err = errors.Unwrap(err)
	}
	return Error
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, c Code) bool {
	for err != nil {
		if got, ok := err.(Code); ok && got == c {
			return true
		}
		type coder interface{ Code() Code }
		if x, ok := err.(coder); ok && x.Code() == c {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
