package domain

import "fmt"

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeDataSource   = "DATA_SOURCE_ERROR"
	ErrCodeComputation  = "COMPUTATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Error constructors

// NewValidationError creates an error for rejected request input. Raised
// before any data fetch happens.
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewDataSourceError creates an error for a failed fetch from an underlying
// data source. The root cause stays wrapped for logging; callers see only
// the generic message.
func NewDataSourceError(err error) error {
	return &DomainError{
		Code:    ErrCodeDataSource,
		Message: "failed to generate analysis",
		Err:     err,
	}
}

// NewComputationError creates an error for an aggregation failure. The
// pipeline fails closed instead of emitting fabricated figures.
func NewComputationError(err error) error {
	return &DomainError{
		Code:    ErrCodeComputation,
		Message: "analysis computation failed",
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Helper functions to check error types

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeValidation
	}
	return false
}

// IsDataSource checks if the error is a data source error
func IsDataSource(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeDataSource
	}
	return false
}

// IsComputation checks if the error is a computation error
func IsComputation(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeComputation
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeNotFound
	}
	return false
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeUnauthorized
	}
	return false
}
