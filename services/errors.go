package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"
)

type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindInvalidState    ErrorKind = "invalid_state"
	KindUpstream        ErrorKind = "upstream_error"
	KindValidation      ErrorKind = "validation_error"
)

// Error is a classified failure. Handlers turn it into a status code and a JSON body.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status overrides the default status for the kind (upstream timeouts, server-side validation).
	Status int
	// UpstreamStatus is the third-party HTTP status for KindUpstream.
	UpstreamStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func InvalidInput(msg string) *Error    { return &Error{Kind: KindInvalidInput, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func InvalidState(msg string) *Error    { return &Error{Kind: KindInvalidState, Message: msg} }

// UpstreamFailure reports a non-2xx third-party response.
func UpstreamFailure(status int, body string) *Error {
	return &Error{
		Kind:           KindUpstream,
		Message:        fmt.Sprintf("store API returned %d: %s", status, body),
		Status:         http.StatusInternalServerError,
		UpstreamStatus: status,
	}
}

// UpstreamTimeout reports an aborted third-party call.
func UpstreamTimeout(err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: "store API timed out",
		Status:  http.StatusGatewayTimeout,
		Err:     err,
	}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// storeError classifies a data store failure; what names the entity for not-found messages.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return NotFound(what + " not found")
	case errors.Is(err, storage.ErrPermissionDenied):
		return Forbidden("not allowed to modify " + what)
	case errors.Is(err, storage.ErrForeignKey), errors.Is(err, storage.ErrDuplicate):
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	return fmt.Errorf("%s: %w", what, err)
}
