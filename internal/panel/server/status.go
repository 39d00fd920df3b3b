package server

// Status represents the panel's view of a game server's power state.
type Status string

const (
	// StatusOffline means the server process is stopped.
	StatusOffline Status = "offline"
	// StatusStarting means a start was acknowledged but not yet confirmed.
	StatusStarting Status = "starting"
	// StatusOnline means the server process is running.
	StatusOnline Status = "online"
	// StatusInstalling means the daemon is still installing the server.
	StatusInstalling Status = "installing"
)

// IsValid checks if the status is a valid server status
func (s Status) IsValid() bool {
	switch s {
	case StatusOffline, StatusStarting, StatusOnline, StatusInstalling:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTransient returns true if the status should resolve on its own
func (s Status) IsTransient() bool {
	return s == StatusStarting || s == StatusInstalling
}

// FromDaemonState maps a daemon-reported process state onto a panel status.
func FromDaemonState(state string) Status {
	switch state {
	case "running":
		return StatusOnline
	case "starting":
		return StatusStarting
	case "installing":
		return StatusInstalling
	default:
		return StatusOffline
	}
}
