package errs

import (
	"net/http"
)

func newHTTPError(status int, message string) *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(status)),
		Message: message,
		Status:  status,
	}
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string) *HTTPError {
	return newHTTPError(http.StatusUnauthorized, message)
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string) *HTTPError {
	return newHTTPError(http.StatusForbidden, message)
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// errors is an optional slice of field errors.
func NewBadRequestError(message string, errors []FieldError) *HTTPError {
	httpErr := newHTTPError(http.StatusBadRequest, message)
	httpErr.Errors = errors
	return httpErr
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string) *HTTPError {
	return newHTTPError(http.StatusNotFound, message)
}

// NewInternalServerError creates a 500 Internal Server Error HTTPError.
//
// The message is the generic status text, never the internal error.
func NewInternalServerError() *HTTPError {
	return newHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// NewTooManyRequestsError creates a 429 HTTPError for throttled clients.
func NewTooManyRequestsError() *HTTPError {
	return newHTTPError(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
}

// NewServiceUnavailableError creates a 503 HTTPError. /status returns it
// with one entry in errors per failed required dependency.
func NewServiceUnavailableError(message string, errors []FieldError) *HTTPError {
	httpErr := newHTTPError(http.StatusServiceUnavailable, message)
	httpErr.Errors = errors
	return httpErr
}
