package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// HTTPStatus maps the error code onto a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrNotFound, ErrRouteNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// Password policy error codes
const (
	// ErrConfiguration is a startup-time structural misconfiguration.
	ErrConfiguration ErrorCode = iota + 2000
	// ErrRuntimeContract is raised when a history target breaks its contract while archiving.
	ErrRuntimeContract
	// ErrValidation is raised when a validated subject is not a policy account.
	ErrValidation
	// ErrRouteNotFound is returned by URL generators for unknown route names.
	ErrRouteNotFound
)

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Configuration builds a fatal configuration error.
func Configuration(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// RuntimeContract builds an error for a history/account type that cannot honour its contract.
func RuntimeContract(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrRuntimeContract,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation builds a hard validation wiring error.
func Validation(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// RouteNotFound reports an unknown route name.
func RouteNotFound(name string) *AppError {
	return &AppError{
		Code:    ErrRouteNotFound,
		Message: fmt.Sprintf("route %q not found", name),
	}
}

// HasCode reports whether err wraps an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsConfiguration(err error) bool { return HasCode(err, ErrConfiguration) }
func IsRuntimeContract(err error) bool { return HasCode(err, ErrRuntimeContract) }
func IsValidation(err error) bool { return HasCode(err, ErrValidation) }
func IsRouteNotFound(err error) bool { return HasCode(err, ErrRouteNotFound) }
func IsNotFound(err error) bool { return HasCode(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return HasCode(err, ErrUnauthorized) }

// Forbidden builds an access-denied error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// As and Is forward to the standard library so callers need a single errors import.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func Is(err, target error) bool { return stderrors.Is(err, target) }
