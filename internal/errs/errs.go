// Package errs defines the error types returned to clients.
//
// Two shapes live here:
//   - Error, the closed set of outcomes of a password change attempt
//     (Unauthenticated, PermissionDenied, InvalidArgument, Internal). Each
//     transport maps a Kind to its own status line at the boundary.
//   - HTTPError, the generic JSON error body used by the echo error funnel.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failed password change attempt.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindPermissionDenied Kind = "permission-denied"
	KindInvalidArgument  Kind = "invalid-argument"
	KindInternal         Kind = "internal"
)

// HTTPStatus maps the kind to a plain HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CallableStatus maps the kind to the status string of the callable
// protocol error envelope.
func (k Kind) CallableStatus() string {
	switch k {
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindPermissionDenied:
		return "PERMISSION_DENIED"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}

// Reason narrows a Kind so each transport can pick its own wording.
type Reason string

const (
	ReasonMissingCredentials Reason = "missing_credentials"
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonNotAdmin           Reason = "not_admin"
	ReasonMissingFields      Reason = "missing_fields"
	ReasonPasswordTooShort   Reason = "password_too_short"
	ReasonMalformedPayload   Reason = "malformed_payload"
	ReasonUnexpected         Reason = "unexpected"
)

// Error is a tagged password change failure.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CauseMessage returns the underlying error text, or Message when there is
// no cause.
func (e *Error) CauseMessage() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// HTTPError converts the tagged error into the generic JSON error body.
// Internal errors get the generic 500 body so causes never leak through
// the error funnel.
func (e *Error) HTTPError() *HTTPError {
	switch e.Kind {
	case KindUnauthenticated:
		return NewUnauthorizedError(e.Message)
	case KindPermissionDenied:
		return NewForbiddenError(e.Message)
	case KindInvalidArgument:
		return NewBadRequestError(e.Message, e.Fields)
	default:
		return NewInternalServerError()
	}
}

func Unauthenticated(reason Reason, message string) *Error {
	return &Error{Kind: KindUnauthenticated, Reason: reason, Message: message}
}

func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Reason: ReasonNotAdmin, Message: message}
}

func InvalidArgument(reason Reason, message string, fields []FieldError) *Error {
	return &Error{Kind: KindInvalidArgument, Reason: reason, Message: message, Fields: fields}
}

// Internal wraps an unexpected failure. The cause is kept for logging and
// for transports that echo it back to the caller.
func Internal(cause error) *Error {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindInternal, Reason: ReasonUnexpected, Message: msg, Cause: cause}
}

// From returns err as *Error, wrapping anything else as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
