package service

import (
	"errors"
	"fmt"

	"goldennest/models"
)

var (
	// ErrNotFound is returned when a household, request, member or investment does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation does not fit the current state,
	// such as voting on a closed request
	ErrInvalidState = errors.New("invalid state")

	// ErrDuplicateVote is returned when an approver votes twice on one request
	ErrDuplicateVote = fmt.Errorf("duplicate vote: %w", ErrInvalidState)

	// ErrForbidden is returned when the caller may not perform the operation
	ErrForbidden = fmt.Errorf("forbidden: %w", ErrInvalidState)

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")

	// ErrExecutionFailure matches every *ExecutionError
	ErrExecutionFailure = errors.New("execution failed")
)

// ExecutionError reports that the side effects of an approved request could not be applied
type ExecutionError struct {
	RequestID   int64
	RequestType models.RequestType
	Cause       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute %s request %d: %v", e.RequestType, e.RequestID, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrExecutionFailure) match any execution error
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailure
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidState)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}
