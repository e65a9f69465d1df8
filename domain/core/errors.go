package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrReportNotFound   = fmt.Errorf("%w: report", ErrNotFound)
	ErrProtocolNotFound = fmt.Errorf("%w: protocol", ErrNotFound)
	ErrMarkerNotFound   = fmt.Errorf("%w: marker", ErrNotFound)

	// Validation errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidUnitSystem = fmt.Errorf("%w: unit system must be eu or us", ErrInvalidInput)
	ErrInvalidDate       = fmt.Errorf("%w: date", ErrInvalidInput)
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrNonFiniteResult   = errors.New("non-finite value in result")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewNonFiniteError(path string) error {
	return fmt.Errorf("%w at %s", ErrNonFiniteResult, path)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnsupportedFormat)
}
