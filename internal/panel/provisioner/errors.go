package provisioner

import (
	"errors"
	"fmt"
)

var (
	// ErrProvisioningDisabled is returned when no cloud credentials are
	// configured.
	ErrProvisioningDisabled = errors.New("machine provisioning is not configured")

	ErrHealthCheckFailed = errors.New("daemon health check failed")
)

// ProvisionError provides structured error information with context.
// It tracks which stage failed, whether a retry makes sense, and the
// cloud machine id when one was already created.
type ProvisionError struct {
	Stage     string // ssh-keys, template-render, machine-create, health-check
	Message   string
	Err       error
	Retryable bool
	MachineID string
}

func (e *ProvisionError) Error() string {
	if e.MachineID != "" {
		return fmt.Sprintf("%s (stage: %s, machine_id: %s): %v", e.Message, e.Stage, e.MachineID, e.Err)
	}
	return fmt.Sprintf("%s (stage: %s): %v", e.Message, e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the operation can be retried.
func (e *ProvisionError) IsRetryable() bool {
	return e.Retryable
}

// WithMachineID attaches the cloud machine id for cleanup purposes.
func (e *ProvisionError) WithMachineID(id string) *ProvisionError {
	e.MachineID = id
	return e
}

// DestroyError represents an error while destroying a cloud machine.
type DestroyError struct {
	MachineID string
	Message   string
	Err       error
}

func (e *DestroyError) Error() string {
	return fmt.Sprintf("destroy failed for machine %s: %s: %v", e.MachineID, e.Message, e.Err)
}

func (e *DestroyError) Unwrap() error {
	return e.Err
}
