package node

import (
	"time"

	"github.com/google/uuid"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
)

// Node represents a physical or virtual machine running the game daemon.
// The Token field is the daemon's bearer credential; it is excluded from
// JSON so it can never leak through an API response.
type Node struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	FQDN          string     `json:"fqdn" db:"fqdn"`
	Port          int        `json:"port" db:"port"`
	UseTLS        bool       `json:"use_tls" db:"use_tls"`
	Token         string     `json:"-" db:"token"`
	MemoryMB      int64      `json:"memory_mb" db:"memory_mb"`
	DiskMB        int64      `json:"disk_mb" db:"disk_mb"`
	PortsStart    int        `json:"ports_start" db:"ports_start"`
	PortsEnd      int        `json:"ports_end" db:"ports_end"`
	Status        Status     `json:"status" db:"status"`
	Version       int64      `json:"version" db:"version"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
}

// NewNode creates a new node with validation
func NewNode(name, fqdn string, port int, useTLS bool, token string, memoryMB, diskMB int64, portsStart, portsEnd int) (*Node, error) {
	n := &Node{
		ID:         uuid.New().String(),
		Name:       name,
		FQDN:       fqdn,
		Port:       port,
		UseTLS:     useTLS,
		Token:      token,
		MemoryMB:   memoryMB,
		DiskMB:     diskMB,
		PortsStart: portsStart,
		PortsEnd:   portsEnd,
		Status:     StatusUnknown,
		Version:    1,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	return n, nil
}

// Validate checks all node invariants.
func (n *Node) Validate() error {
	if n.Name == "" {
		return NewValidationError("name", "cannot be empty", nil)
	}
	if n.FQDN == "" {
		return NewValidationError("fqdn", "cannot be empty", nil)
	}
	if n.Port <= 0 || n.Port > 65535 {
		return NewValidationError("port", "must be between 1 and 65535", n.Port)
	}
	if n.Token == "" {
		return NewValidationError("token", "cannot be empty", nil)
	}
	if n.MemoryMB <= 0 {
		return NewValidationError("memory_mb", "must be positive", n.MemoryMB)
	}
	if n.DiskMB <= 0 {
		return NewValidationError("disk_mb", "must be positive", n.DiskMB)
	}
	if n.PortsStart <= 0 || n.PortsStart > 65535 {
		return NewValidationError("ports_start", "must be between 1 and 65535", n.PortsStart)
	}
	if n.PortsEnd <= 0 || n.PortsEnd > 65535 {
		return NewValidationError("ports_end", "must be between 1 and 65535", n.PortsEnd)
	}
	if n.PortsEnd <= n.PortsStart {
		return NewValidationError("ports_end", "must be greater than ports_start", n.PortsEnd)
	}
	return nil
}

// Conn returns the connection parameters the daemon transport needs.
func (n *Node) Conn() daemon.NodeConn {
	return daemon.NodeConn{
		FQDN:   n.FQDN,
		Port:   n.Port,
		UseTLS: n.UseTLS,
		Token:  n.Token,
	}
}

// RedactedToken returns a fixed mask in place of the node's credential.
// The token itself is never shown, not even partially.
func (n *Node) RedactedToken() string {
	return "********"
}

// MarkOnline records a successful health probe.
func (n *Node) MarkOnline(checkedAt time.Time) {
	n.Status = StatusOnline
	n.LastCheckedAt = &checkedAt
	n.UpdatedAt = time.Now()
	n.Version++
}

// MarkOffline records a failed health probe.
func (n *Node) MarkOffline(checkedAt time.Time) {
	n.Status = StatusOffline
	n.LastCheckedAt = &checkedAt
	n.UpdatedAt = time.Now()
	n.Version++
}

// IsOnline reports whether the last probe saw the daemon up.
func (n *Node) IsOnline() bool {
	return n.Status == StatusOnline
}

// PortRangeSize returns how many allocatable ports the node advertises.
func (n *Node) PortRangeSize() int {
	return n.PortsEnd - n.PortsStart + 1
}
