// Package events defines all event types, constants, and data structures used
// throughout the panel. This is the single source of truth for event
// definitions.
package events

import "time"

// Node Lifecycle Events
const (
	EventNodeRegistered    = "node.registered"
	EventNodeStatusChanged = "node.status.changed"
	EventNodeDeleted       = "node.deleted"
)

// Server Lifecycle Events
const (
	EventServerProvisioned   = "server.provisioned"
	EventServerProvisionFail = "server.provision.failed"
	EventServerStatusChanged = "server.status.changed"
	EventServerDeleted       = "server.deleted"
)

// NodeRegisteredEvent is published when a node joins the registry.
type NodeRegisteredEvent struct {
	NodeID    string    `json:"node_id"`
	Name      string    `json:"name"`
	FQDN      string    `json:"fqdn"`
	Timestamp time.Time `json:"timestamp"`
}

// NodeStatusChangedEvent represents a node health transition.
type NodeStatusChangedEvent struct {
	NodeID    string    `json:"node_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}

// NodeDeletedEvent is published when a node leaves the registry.
type NodeDeletedEvent struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerProvisionedEvent is published once a daemon accepts an install.
type ServerProvisionedEvent struct {
	ServerID   string        `json:"server_id"`
	ServerUUID string        `json:"server_uuid"`
	NodeID     string        `json:"node_id"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

// ServerProvisionFailedEvent is published when an install fails.
type ServerProvisionFailedEvent struct {
	ServerID  string    `json:"server_id,omitempty"`
	NodeID    string    `json:"node_id"`
	Error     string    `json:"error"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerStatusChangedEvent represents a server power-state transition.
type ServerStatusChangedEvent struct {
	ServerID  string    `json:"server_id"`
	NodeID    string    `json:"node_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerDeletedEvent is published when a server is removed.
type ServerDeletedEvent struct {
	ServerID  string    `json:"server_id"`
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}
