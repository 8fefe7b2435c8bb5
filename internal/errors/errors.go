// Package errors defines the semantic error taxonomy shared across the
// matching engine, event bus and streaming gateway.
package errors

import (
	"fmt"
	"time"
)

// Code classifies an error by how the caller should react to it.
type Code string

const (
	// Validation marks a malformed or missing submission field. Surfaced
	// to the caller as an HTTP 400-class response; no engine mutation
	// has occurred.
	Validation Code = "VALIDATION"
	// UnknownSymbol marks a quote lookup for a symbol that has never
	// traded. Not fatal: callers get a zero-price, zero-quantity quote.
	UnknownSymbol Code = "UNKNOWN_SYMBOL"
	// Overloaded marks producer-side backpressure: a bus subscriber's
	// queue overflowed, or the engine has halted and is rejecting new
	// submissions.
	Overloaded Code = "OVERLOADED"
	// Transport marks a client disconnect or broken pipe at the
	// streaming gateway. Absorbed silently by cleaning up the
	// subscription.
	Transport Code = "TRANSPORT"
	// Internal marks an invariant violation inside the matching engine.
	// Fatal: the engine must not proceed with a possibly-crossed book.
	Internal Code = "INTERNAL"
)

// MatchError is a structured error carrying a stable Code plus an
// optional chain of detail and cause.
type MatchError struct {
	Code      Code
	Message   string
	Details   map[string]any
	Timestamp time.Time
	Cause     error
}

func (e *MatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *MatchError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value detail and returns the receiver for
// chaining.
func (e *MatchError) WithDetail(key string, value any) *MatchError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a MatchError with the given code and message.
func New(code Code, message string) *MatchError {
	return &MatchError{Code: code, Message: message, Timestamp: time.Now()}
}

// Newf creates a MatchError with a formatted message.
func Newf(code Code, format string, args ...any) *MatchError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *MatchError {
	if err == nil {
		return nil
	}
	return &MatchError{Code: code, Message: message, Timestamp: time.Now(), Cause: err}
}

// Is reports whether err is a MatchError of the given code.
func Is(err error, code Code) bool {
	me, ok := err.(*MatchError)
	return ok && me.Code == code
}
