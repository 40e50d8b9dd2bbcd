package user

import (
	"maps"
	"slices"
	"strings"
)

// FormErrors maps a form field name to a human-readable message.
type FormErrors map[string]string

// Clone returns an independent copy.
func (f FormErrors) Clone() FormErrors {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// Get returns the message for field, or "".
func (f FormErrors) Get(field string) string {
	return f[field]
}

// Empty reports whether there are no messages.
func (f FormErrors) Empty() bool {
	return len(f) == 0
}

// ValidationError is returned when a create or update payload is rejected.
type ValidationError struct {
	Errors FormErrors
}

// NewValidationError creates a ValidationError for the given field messages.
func NewValidationError(errors FormErrors) *ValidationError {
	return &ValidationError{Errors: errors}
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	fields := slices.Sorted(maps.Keys(e.Errors))
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Errors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
