package node

import "fmt"

// Common domain errors
var (
	ErrNodeNotFound           = fmt.Errorf("node not found")
	ErrInvalidStatus          = fmt.Errorf("invalid node status")
	ErrNodeOffline            = fmt.Errorf("node is offline")
	ErrFQDNConflict           = fmt.Errorf("FQDN already in use")
	ErrNameConflict           = fmt.Errorf("node name already in use")
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

// ConflictError represents a resource conflict error
type ConflictError struct {
	Resource string
	Value    string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s (value: %s)", e.Resource, e.Message, e.Value)
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, value, message string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Value:    value,
		Message:  message,
	}
}

// HealthCheckError represents errors during node health checks
type HealthCheckError struct {
	NodeID string
	Check  string
	Err    error
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("health check '%s' failed for node %s: %v", e.Check, e.NodeID, e.Err)
}

func (e *HealthCheckError) Unwrap() error {
	return e.Err
}

// NewHealthCheckError creates a new health check error
func NewHealthCheckError(nodeID, check string, err error) *HealthCheckError {
	return &HealthCheckError{
		NodeID: nodeID,
		Check:  check,
		Err:    err,
	}
}
