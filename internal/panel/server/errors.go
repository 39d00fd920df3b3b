package server

import "fmt"

// Common domain errors
var (
	ErrServerNotFound         = fmt.Errorf("server not found")
	ErrInvalidStatus          = fmt.Errorf("invalid server status")
	ErrUUIDConflict           = fmt.Errorf("server UUID already in use")
	ErrConcurrentModification = fmt.Errorf("concurrent modification detected - version mismatch")
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
