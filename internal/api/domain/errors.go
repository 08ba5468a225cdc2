package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrContractNotFound is returned when a contract cannot be found in the database
	ErrContractNotFound = errors.New("contract not found")

	// ErrPaymentNotFound is returned when a payment cannot be found in the database
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrSlotsExhausted is returned when a job has no remaining open slots.
	// Nothing is mutated when this error is returned.
	ErrSlotsExhausted = errors.New("all slots for this job have been filled")

	// ErrDuplicateProposal is returned when a contract already exists for a proposal
	ErrDuplicateProposal = errors.New("contract already exists for this proposal")
)

// ValidationError marks caller-fixable input problems (malformed ids,
// out-of-range enum values). It is raised before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStatusError is returned when a status transition names a value
// outside the entity's closed status set.
type InvalidStatusError struct {
	Entity string
	Value  string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid %s status: %q", e.Entity, e.Value)
}
