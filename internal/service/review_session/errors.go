package review_session

import (
	"errors"
	"fmt"
)

// Common error types for the session manager.
var (
	// ErrNoCardsDue indicates Start found nothing to review.
	ErrNoCardsDue = errors.New("no cards due for review")

	// ErrSessionInProgress indicates Start was called while a session is reviewing.
	ErrSessionInProgress = errors.New("a review session is already in progress")

	// ErrNoActiveSession indicates the owner has no session in the reviewing state.
	ErrNoActiveSession = errors.New("no active review session")

	// ErrOutOfOrder indicates the card is not the one currently presented.
	ErrOutOfOrder = errors.New("card is not the current card of the session")

	// ErrSessionNotFinished indicates Complete was called with cards left and force unset.
	ErrSessionNotFinished = errors.New("review session still has cards")
)

// ServiceError wraps errors from the session manager with additional context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start", "answer")
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

// NewAnswerError returns a new ServiceError for the answer operation.
func NewAnswerError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "answer", Message: message, Err: err}
}

// NewStartError returns a new ServiceError for the start operation.
func NewStartError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "start", Message: message, Err: err}
}
