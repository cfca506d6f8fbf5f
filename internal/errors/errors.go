package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a content error code.
type ErrorCode string

const (
	ErrValidation      ErrorCode = "VALIDATION_ERROR" // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrConflict        ErrorCode = "CONFLICT"         // 409
	ErrDataUnavailable ErrorCode = "DATA_UNAVAILABLE" // 500
	ErrCancelled       ErrorCode = "CANCELLED"        // 499
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// ContentError represents a structured error with code, status, and details.
type ContentError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error, if any. It is never shown to clients.
	cause error
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ContentError) Unwrap() error {
	return e.cause
}

// NewValidation creates a 400 error for unrecognized discriminators or bad parameters.
func NewValidation(msg string) *ContentError {
	return &ContentError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewUnknownType creates a 400 error for a type discriminator that is not recognized.
func NewUnknownType(name string) *ContentError {
	return &ContentError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("unknown content type: %q", name),
		Details: map[string]any{"type": name},
	}
}

// NewNotFound creates a 404 error for an unknown (kind, slug) address.
func NewNotFound(kind, slug string) *ContentError {
	return &ContentError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, slug),
		Details: map[string]any{"kind": kind, "slug": slug},
	}
}

// NewConflict creates a 409 error for import collisions.
func NewConflict(msg string) *ContentError {
	return &ContentError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewDataUnavailable creates a 500 error for an unreachable or malformed record store.
func NewDataUnavailable(source string, err error) *ContentError {
	msg := fmt.Sprintf("data unavailable: %s", source)
	if err != nil {
		msg = fmt.Sprintf("data unavailable: %s: %v", source, err)
	}
	return &ContentError{
		Code:    ErrDataUnavailable,
		Status:  500,
		Message: msg,
		Details: map[string]any{"source": source},
		cause:   err,
	}
}

// NewCancelled creates an error for an operation stopped by context cancellation.
func NewCancelled(op string) *ContentError {
	return &ContentError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ContentError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ContentError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// AsDataUnavailable converts a record store error into the taxonomy.
// ContentErrors pass through untouched; anything else becomes DATA_UNAVAILABLE.
func AsDataUnavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	var cErr *ContentError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewDataUnavailable(source, err)
}

// Is checks if an error (or anything it wraps) is a ContentError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ContentError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// PublicMessage returns the message safe to show to clients.
// Server-side failures collapse to a generic message.
func PublicMessage(err error) string {
	var cErr *ContentError
	if !stderrors.As(err, &cErr) {
		return "an internal error occurred"
	}
	switch cErr.Code {
	case ErrDataUnavailable:
		return "content is temporarily unavailable"
	case ErrInternal:
		return "an internal error occurred"
	}
	return cErr.Message
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var cErr *ContentError
	if stderrors.As(err, &cErr) && cErr.Status != 0 {
		return cErr.Status
	}
	return 500
}

// CodeOf returns the error code for err, defaulting to INTERNAL.
func CodeOf(err error) ErrorCode {
	var cErr *ContentError
	if stderrors.As(err, &cErr) {
		return cErr.Code
	}
	return ErrInternal
}

// As reports whether err wraps a target of the given type, like errors.As.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
