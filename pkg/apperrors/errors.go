// Package apperrors defines the domain error taxonomy shared by the REST and
// real-time layers. Every domain-rule violation carries a machine-checkable
// kind plus a human-readable message; transport layers map the kind to a
// status code or a scoped error event.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindConflict
	KindBadRequest
	KindUnauthorized
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// AsError returns the typed error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps an error to a REST status code. Unknown errors map to 500;
// callers must not leak their detail to clients.
func HTTPStatus(err error) int {
	appErr, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
