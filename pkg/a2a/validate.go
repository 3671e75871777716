package a2a

import "fmt"

// ValidationError describes a structurally invalid protocol object.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrMissingField builds a ValidationError for a required field that is
// absent or empty.
func ErrMissingField(field string) error {
	return &ValidationError{Field: field, Reason: "required field is missing or empty"}
}
