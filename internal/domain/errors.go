package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation rejects malformed input before any write is attempted.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound marks an update or delete against a record that no
	// longer exists.
	ErrNotFound = errors.New("not found")
	// ErrConsistency marks a suppression pointing at a base occurrence
	// that does not exist. Surfaced, never silently healed.
	ErrConsistency = errors.New("schedule inconsistent")
	// ErrStore wraps a failed read or write against a collaborator; the
	// operation is treated as not applied.
	ErrStore = errors.New("store failure")
)

func errValidationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
