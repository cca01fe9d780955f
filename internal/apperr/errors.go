// Package apperr holds the error kinds surfaced by the front-desk core.
// Callers wrap the sentinels with context using fmt.Errorf("%w: ...") and
// the API boundary classifies them with KindOf.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRoomUnavailable   = errors.New("room unavailable")
	ErrRoomTypeMismatch  = errors.New("room type mismatch")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
)

// Kind is a stable, transport-independent error classification.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_FAILED"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindRoomUnavailable   Kind = "ROOM_UNAVAILABLE"
	KindRoomTypeMismatch  Kind = "ROOM_TYPE_MISMATCH"
	KindConflict          Kind = "CONFLICT"
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindInternal          Kind = "INTERNAL_ERROR"
)

var kinds = []struct {
	err    error
	kind   Kind
	status int
}{
	{ErrValidation, KindValidation, http.StatusBadRequest},
	{ErrInvalidTransition, KindInvalidTransition, http.StatusUnprocessableEntity},
	{ErrRoomUnavailable, KindRoomUnavailable, http.StatusConflict},
	{ErrRoomTypeMismatch, KindRoomTypeMismatch, http.StatusUnprocessableEntity},
	{ErrConflict, KindConflict, http.StatusConflict},
	{ErrNotFound, KindNotFound, http.StatusNotFound},
	{ErrForbidden, KindForbidden, http.StatusForbidden},
}

// KindOf classifies err. Errors that wrap none of the sentinels are internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// HTTPStatus maps err to the status code the boundary should respond with.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsInternal reports whether err is an unexpected failure whose detail must
// not leak to callers.
func IsInternal(err error) bool {
	return KindOf(err) == KindInternal
}
