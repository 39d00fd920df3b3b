package api

import (
	"fmt"

	"github.com/gookit/goutil/arrutil"
	"github.com/gookit/goutil/strutil"

	"github.com/blockpanel/blockpanel/pkg/api"
)

// Forced kill stays a daemon-level capability; the panel only relays the
// graceful power actions.
var validPowerActions = []string{"start", "stop", "restart"}

// ValidateRegisterNodeRequest checks request shape before the domain layer
// runs its own invariants. Surface-level checks only; the node model owns
// the real validation.
func ValidateRegisterNodeRequest(req *api.RegisterNodeRequest) error {
	if strutil.IsBlank(req.Name) {
		return fmt.Errorf("name is required")
	}
	if strutil.IsBlank(req.FQDN) {
		return fmt.Errorf("fqdn is required")
	}
	if strutil.IsBlank(req.Token) {
		return fmt.Errorf("token is required")
	}
	if req.Port <= 0 {
		return fmt.Errorf("port is required")
	}
	return nil
}

// ValidateCreateServerRequest checks request shape for server creation.
func ValidateCreateServerRequest(req *api.CreateServerRequest) error {
	if strutil.IsBlank(req.Name) {
		return fmt.Errorf("name is required")
	}
	if strutil.IsBlank(req.NodeID) {
		return fmt.Errorf("node_id is required")
	}
	if strutil.IsBlank(req.DockerImage) {
		return fmt.Errorf("docker_image is required")
	}
	if req.MemoryMB <= 0 {
		return fmt.Errorf("memory_mb must be positive")
	}
	if req.DiskMB <= 0 {
		return fmt.Errorf("disk_mb must be positive")
	}
	return nil
}

// ValidatePowerRequest checks the requested power action.
func ValidatePowerRequest(req *api.PowerRequest) error {
	if !arrutil.Contains(validPowerActions, req.Action) {
		return fmt.Errorf("action must be one of start, stop, restart")
	}
	return nil
}
