package errors

import (
	"errors"
	"fmt"
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrUnresolvableKey
	ErrPartialFetch
	ErrValidation
	ErrMutation
	ErrStaleSelection
	ErrUpstream
)

// Error constructors
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

// UnresolvableKey marks a record that carries none of the known
// identifier or timestamp aliases. Callers exclude the record from
// joins instead of failing.
func UnresolvableKey(entity, field string) *AppError {
	return &AppError{
		Code:    ErrUnresolvableKey,
		Message: fmt.Sprintf("no known %s alias on %s record", field, entity),
	}
}

// PartialFetch marks a collection whose fan-out request failed. The
// screen stays usable with that collection degraded to empty.
func PartialFetch(collection string, err error) *AppError {
	return &AppError{
		Code:    ErrPartialFetch,
		Message: fmt.Sprintf("failed to load %s", collection),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

// Mutation wraps an upstream rejection of a create/update/delete. The
// message is what the user sees, so it prefers the server payload.
func Mutation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrMutation,
		Message: message,
		Err:     err,
	}
}

func StaleSelection(entity, id string) *AppError {
	return &AppError{
		Code:    ErrStaleSelection,
		Message: fmt.Sprintf("selected %s %s no longer exists", entity, id),
	}
}

func Upstream(message string, err error) *AppError {
	return &AppError{
		Code:    ErrUpstream,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
