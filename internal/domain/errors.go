package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during competence estimation and vote
// aggregation.
var (
	// ErrEmptyPool indicates that a classifier pool has no members.
	ErrEmptyPool = errors.New("classifier pool is empty")

	// ErrPoolMismatch indicates that a per-classifier vector (mask or
	// competence) does not match the pool size.
	ErrPoolMismatch = errors.New("length does not match classifier pool")

	// ErrEmptyRegion indicates that a region of competence has no neighbors.
	ErrEmptyRegion = errors.New("region of competence is empty")

	// ErrRegionOutOfRange indicates a neighbor index outside the selection set.
	ErrRegionOutOfRange = errors.New("region index outside selection set")

	// ErrRegionMisaligned indicates that neighbor indices and distances differ
	// in length.
	ErrRegionMisaligned = errors.New("region indices and distances misaligned")

	// ErrDimensionMismatch indicates a query whose dimensionality differs from
	// the selection set.
	ErrDimensionMismatch = errors.New("query dimensionality mismatch")

	// ErrNoVotes indicates that vote aggregation received an empty sequence.
	ErrNoVotes = errors.New("no votes to aggregate")

	// ErrInvalidTableShape indicates a correctness table with a non-positive axis.
	ErrInvalidTableShape = errors.New("invalid correctness table shape")

	// ErrNotFitted indicates that classification was requested before fit.
	ErrNotFitted = errors.New("engine has not been fitted")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
