package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrReportNotFound = fmt.Errorf("%w: report", ErrNotFound)

	// Input validation errors
	ErrEmptyDataset       = errors.New("dataset has no records")
	ErrMissingOutcome     = errors.New("outcome column not present in dataset")
	ErrUnknownDomain      = errors.New("unknown domain")
	ErrUnknownAttribute   = errors.New("attribute not recognized for domain")
	ErrDuplicateAttribute = errors.New("attribute appears more than once in weight table")
	ErrInvalidWeight      = errors.New("attribute weight must be within [0,1]")
	ErrInvalidRunConfig   = errors.New("invalid run configuration")
	ErrSchemaMismatch     = errors.New("record does not match dataset schema")
)

// NewNotFoundError wraps ErrNotFound with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewRunConfigError reports an invalid run configuration field
func NewRunConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidRunConfig, field, reason)
}

// IsNotFoundError checks for any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError reports whether err stems from rejected caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrMissingOutcome) ||
		errors.Is(err, ErrUnknownDomain) ||
		errors.Is(err, ErrUnknownAttribute) ||
		errors.Is(err, ErrDuplicateAttribute) ||
		errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidRunConfig) ||
		errors.Is(err, ErrSchemaMismatch)
}
