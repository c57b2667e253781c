// Package domainerrors provides a transport-agnostic coded error type shared
// by services, stores, and handlers.
package domainerrors

import "errors"

// Code represents a domain error category independent of the transport layer.
type Code string

const (
	CodeInvalidInput      Code = "invalid_input"      // malformed caller input, rejected before any network call
	CodeInvalidState      Code = "invalid_state"      // operation invoked outside its allowed workflow state
	CodeAuthFailure       Code = "auth_failure"       // provider credential exchange failed
	CodeProviderRejected  Code = "provider_rejected"  // provider processed the call and declined it
	CodeDuplicateIdentity Code = "duplicate_identity" // a profile already exists for this government id
	CodeTransport         Code = "transport_error"    // network failure, timeout, or unparseable provider response
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeUnauthorized      Code = "unauthorized"
	CodeForbidden         Code = "forbidden"
	CodeInternal          Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error. If the wrapped
// error is already a domain error its code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the domain code from an error chain, defaulting to internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
