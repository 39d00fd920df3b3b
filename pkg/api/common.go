// Package api holds the wire types shared by the panel's HTTP API and its
// clients.
package api

// Response is the standard API response wrapper
type Response[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// RegisterNodeRequest registers a machine running the game daemon. The token
// is accepted on input only; no API response ever echoes it back.
type RegisterNodeRequest struct {
	Name       string `json:"name"`
	FQDN       string `json:"fqdn"`
	Port       int    `json:"port"`
	UseTLS     bool   `json:"use_tls"`
	Token      string `json:"token"`
	MemoryMB   int64  `json:"memory_mb"`
	DiskMB     int64  `json:"disk_mb"`
	PortsStart int    `json:"ports_start"`
	PortsEnd   int    `json:"ports_end"`
}

// CreateServerRequest provisions a game server onto a node.
type CreateServerRequest struct {
	Name        string            `json:"name"`
	NodeID      string            `json:"node_id"`
	DockerImage string            `json:"docker_image"`
	MemoryMB    int64             `json:"memory_mb"`
	DiskMB      int64             `json:"disk_mb"`
	Port        int               `json:"port,omitempty"`
	Edition     string            `json:"edition,omitempty"`
	GameVersion string            `json:"game_version,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// PowerRequest applies a power action to a server.
type PowerRequest struct {
	Action string `json:"action"`
}

// LogsResponse carries a server's console output.
type LogsResponse struct {
	Logs string `json:"logs"`
}
