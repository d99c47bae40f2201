package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for the error classes handlers are allowed to act on. Everything
// else is treated as a store failure and surfaced generically.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotParticipant  = errors.New("not a participant")
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStore           = errors.New("store unavailable")
)

type AppError struct {
	Err     error  // sentinel, possibly wrapping a cause
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "invalid or missing credentials",
	}
}

func NotParticipant() *AppError {
	return &AppError{
		Err:     ErrNotParticipant,
		Message: "not a participant",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Store keeps the cause for logging but exposes only a generic message to
// callers.
func Store(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %v", ErrStore, err),
		Message: "store unavailable",
	}
}

// Kind names the error class for acknowledgment payloads so clients can
// distinguish "fix your input" from "not allowed" from "try again".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotParticipant):
		return "not_allowed"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "store"
	}
}

// Status maps an error to its HTTP status code family.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
