package service

import (
	"errors"
	"fmt"
)

// Common service errors. The API layer maps each to an HTTP status.
var (
	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrCardNotOwned indicates the card belongs to a different owner.
	ErrCardNotOwned = errors.New("unauthorized access: card not owned by user")

	// ErrDuplicateCard indicates the owner already has a card for the item.
	ErrDuplicateCard = errors.New("card already exists for item")

	// ErrCardInactive indicates a suspended or archived card was graded.
	ErrCardInactive = errors.New("card is not active")
)

// ServiceError wraps unexpected failures with the operation that produced them.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "apply_grade", "retention_rate")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
