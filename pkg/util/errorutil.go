package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors across services and transport.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Retryable  bool
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError flags malformed or missing input. Recoverable by the
// caller correcting input, never retried automatically.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewNotFound flags an absent resource or a ticket/tenant mismatch.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidAssignment flags a requested assignee set containing non-members
// of the ticket's tenant. Details carry the rejected ids where known.
func NewInvalidAssignment(message string, details map[string]any) error {
	return NewDomainError("INVALID_ASSIGNMENT", message, http.StatusBadRequest, details)
}

// NewPersistenceFailure wraps a store-level fault. Safe to retry the whole
// logical update: writes are atomic, never partially applied.
func NewPersistenceFailure(err error) error {
	return &DomainError{
		Code:       "PERSISTENCE_FAILURE",
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Retryable:  true,
		Err:        err,
	}
}

// NewUnauthorized flags a missing or invalid session.
func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to the DomainError form.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsRetryable reports whether the error represents a transient store fault.
func IsRetryable(err error) bool {
	de := ToDomainError(err)
	return de != nil && de.Retryable
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	de := ToDomainError(err)
	return de != nil && de.Code == code
}
