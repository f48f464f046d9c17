// Package apperr defines the error kinds every service operation reports to its caller.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the transport boundary.
type Kind string

const (
	KindValidation   Kind = "ValidationFailed"
	KindNotFound     Kind = "NotFound"
	KindUnauthorized Kind = "Unauthorized"
	KindConflict     Kind = "Conflict"
	KindUpstream     Kind = "UpstreamFailure"
	KindInternal     Kind = "Internal"
)

// Reason refines an Unauthorized failure.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonInvalid     Reason = "Invalid"
	ReasonExpired     Reason = "Expired"
	ReasonReused      Reason = "Reused"
	ReasonCredentials Reason = "Credentials"
	ReasonForbidden   Reason = "Forbidden"
)

// MsgInvalidCredentials is the only message a failed login ever returns.
const MsgInvalidCredentials = "invalid credentials"

// Error is the single failure type surfaced by services.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed input.
func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NotFound reports an absent root entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Unauthorized reports an authentication or ownership failure.
func Unauthorized(reason Reason, message string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Message: message}
}

// InvalidCredentials is the generic login failure.
func InvalidCredentials() *Error {
	return Unauthorized(ReasonCredentials, MsgInvalidCredentials)
}

// Forbidden reports an ownership mismatch.
func Forbidden(message string) *Error {
	return Unauthorized(ReasonForbidden, message)
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Upstream reports a media store failure.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Internal wraps an unexpected persistence or runtime failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As extracts an *Error from err. Errors of any other type are reported as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// ReasonOf returns the Unauthorized reason carried by err, if any.
func ReasonOf(err error) Reason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ReasonNone
}
