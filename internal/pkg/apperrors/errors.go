package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers. Handlers map these onto HTTP
// status codes; services and repositories wrap them with context.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrConflict      = errors.New("resource conflict")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrValidation      = errors.New("validation failed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrDatabase       = errors.New("database error")
	ErrInternalServer = errors.New("internal server error")
)

// Lending-specific sentinels.
var (
	// ErrLimitExceeded is the creation-time hard stop: the applicant's
	// aggregate pending+approved exposure would pass the lending cap.
	// Nothing is persisted when this is returned.
	ErrLimitExceeded = errors.New("loan limit exceeded")

	// ErrInvalidTransition covers any lifecycle operation attempted from a
	// state that does not permit it (approving a non-pending loan,
	// foreclosing a closed loan, paying an installment out of order).
	ErrInvalidTransition = errors.New("invalid loan state transition")

	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrLoanFullyPaid        = errors.New("loan is already fully paid")
	ErrDeletionBlocked      = errors.New("loan has payment history and cannot be deleted")
)

// ValidationError carries the offending field alongside the message so
// API responses can point at what to fix.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// NewValidationError builds a field-level validation error that matches
// both errors.Is(err, ErrValidation) and errors.As(&ValidationError{}).
func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// AppError is a coded error for cases where callers need more than a
// sentinel, currently only database failures.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}
