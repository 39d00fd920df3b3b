package node

// Status represents the panel's last known view of a node's daemon.
type Status string

const (
	// StatusUnknown means the node has never been probed.
	StatusUnknown Status = "unknown"
	// StatusOnline means the last daemon probe succeeded.
	StatusOnline Status = "online"
	// StatusOffline means the last daemon probe failed.
	StatusOffline Status = "offline"
)

// IsValid checks if the status is a valid node status
func (s Status) IsValid() bool {
	switch s {
	case StatusUnknown, StatusOnline, StatusOffline:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsOperational returns true if the node can accept daemon calls
func (s Status) IsOperational() bool {
	return s == StatusOnline
}
