// Package domainerrors defines coded errors shared by services and transports.
//
// Services return errors built with New or Wrap so that handlers can translate
// them into responses without inspecting messages. Infrastructure facts (a key
// that does not exist, a backend that is down) are expressed with
// pkg/platform/sentinel and translated into coded errors by the service layer.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	// CodeValidation marks input that broke a domain rule. Recoverable by the
	// caller correcting the input; never retried automatically.
	CodeValidation Code = "validation_error"
	// CodeInvalidNumber marks a coordinate that could not be read as a number.
	CodeInvalidNumber Code = "invalid_number"
	// CodeBadRequest marks a malformed request (undecodable body, bad query).
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller acting on someone else's data.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a missing resource the caller addressed explicitly.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness violation.
	CodeConflict Code = "conflict"
	// CodeStore marks a failed backing-store call (network, permission,
	// malformed data). The caller decides whether to retry.
	CodeStore Code = "store_error"
	// CodeInternal marks anything else.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error renders the message, followed by the cause when the cause is a plain
// error. A coded cause is a less specific form of the same failure and is
// left out of the text.
func (e *Error) Error() string {
	var coded *Error
	if e.Err != nil && !errors.As(e.Err, &coded) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a coded error with the same code and message.
// A target with an empty message matches on code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New returns a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err yields a plain coded error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode, kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Message returns the message of the outermost coded error, or the plain
// error text when err is not coded.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsValidation reports whether err is an input problem the caller can fix.
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation) || HasCode(err, CodeInvalidNumber)
}
