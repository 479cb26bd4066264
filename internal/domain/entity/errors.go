package entity

import "fmt"

// ValidationError reports a snapshot missing a field required before any
// mutation or ledger call may happen.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("snapshot validation failed: missing required field %q", e.Field)
}
