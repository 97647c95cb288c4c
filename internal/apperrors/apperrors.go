package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindAlreadyRunning       Kind = "ALREADY_RUNNING"
	KindInvalidState         Kind = "INVALID_STATE"
	KindTransientSyncFailure Kind = "TRANSIENT_SYNC_FAILURE"
	KindInternal             Kind = "INTERNAL"
)

type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an error from an HTTP status code; the kind is derived from the code.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Kind: kindForCode(code), Message: message, Err: err}
}

func NotFound(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Kind: KindForbidden, Message: message}
}

func AlreadyRunning(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Kind: KindAlreadyRunning, Message: message}
}

func InvalidState(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Kind: KindInvalidState, Message: message}
}

func TransientSyncFailure(message string, err error) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Kind: KindTransientSyncFailure, Message: message, Err: err}
}

// Is reports whether err carries an AppError of the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func kindForCode(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return KindForbidden
	case http.StatusConflict:
		return KindInvalidState
	case http.StatusServiceUnavailable:
		return KindTransientSyncFailure
	default:
		return KindInternal
	}
}
