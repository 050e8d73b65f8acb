// Package apperr defines the error kinds surfaced by drop verification,
// shared by the location tracker and the confirmation service.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Unauthorized             Kind = "unauthorized"
	InvalidInput             Kind = "invalid_input"
	NotFound                 Kind = "not_found"
	PreconditionFailed       Kind = "precondition_failed"
	Conflict                 Kind = "conflict"
	LocationPermissionDenied Kind = "location_permission_denied"
	LocationUnavailable      Kind = "location_unavailable"
	LocationTimeout          Kind = "location_timeout"
	Unexpected               Kind = "unexpected"
)

// Error is a classified error. Message is safe to show to the end user;
// Err carries the underlying cause and is never sent over the wire.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so errors.Is(err, apperr.E(apperr.Conflict, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// HTTPStatus maps a kind to the status code the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case InvalidInput, PreconditionFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
