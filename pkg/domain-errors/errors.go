// Package domainerrors carries the client-facing error taxonomy.
//
// Services translate infrastructure facts (see pkg/platform/sentinel) into these
// coded errors. A coded error may additionally carry a ProcessCode, the structured
// outcome the client localizes and acts on. The ProcessCode is the single source of
// truth for what a caller sees, so it is never attached to internal failures.
package domainerrors

import (
	"errors"

	"idauth/pkg/domain"
)

// Code classifies an error for transport mapping.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "access_denied"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnhandledCase marks a programming error: an unmapped method/schema
	// combination. It is always surfaced as a server error.
	CodeUnhandledCase Code = "unhandled_case"
)

// Error is a coded domain error.
type Error struct {
	Code        Code
	Message     string
	ProcessCode domain.ProcessCode
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewProcess creates a coded error carrying a client-facing ProcessCode.
func NewProcess(code Code, pc domain.ProcessCode, msg string) error {
	return &Error{Code: code, Message: msg, ProcessCode: pc}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// WrapProcess wraps err with a code and ProcessCode.
func WrapProcess(err error, code Code, pc domain.ProcessCode, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, ProcessCode: pc, Err: err}
}

// HasCode reports whether the outermost coded error in the chain has the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ProcessCodeOf returns the first ProcessCode found in the chain.
// Internal and unhandled-case errors never expose one.
func ProcessCodeOf(err error) (domain.ProcessCode, bool) {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return domain.ProcessCodeNone, false
		}
		if de.Code == CodeInternal || de.Code == CodeUnhandledCase {
			return domain.ProcessCodeNone, false
		}
		if de.ProcessCode != domain.ProcessCodeNone {
			return de.ProcessCode, true
		}
		err = de.Err
	}
	return domain.ProcessCodeNone, false
}
