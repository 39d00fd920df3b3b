package server

import (
	"time"

	"github.com/google/uuid"
)

// Server represents a game server record owned by the panel. ID is the
// panel's identifier; UUID is the identity the daemon knows the server by.
type Server struct {
	ID          string `json:"id" db:"id"`
	UUID        string `json:"uuid" db:"uuid"`
	Name        string `json:"name" db:"name"`
	NodeID      string `json:"node_id" db:"node_id"`
	DockerImage string `json:"docker_image" db:"docker_image"`
	MemoryMB    int64  `json:"memory_mb" db:"memory_mb"`
	DiskMB      int64  `json:"disk_mb" db:"disk_mb"`
	Port        int    `json:"port" db:"port"`
	// Edition and GameVersion describe what the server runs (e.g. "paper",
	// "1.21"). Display only; nothing in the control flow reads them.
	Edition     string    `json:"edition" db:"edition"`
	GameVersion string    `json:"game_version" db:"game_version"`
	Status      Status    `json:"status" db:"status"`
	Version     int64     `json:"version" db:"version"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewServer creates a new server record with validation. The daemon-side
// UUID is generated here so the panel record exists before the install call.
func NewServer(name, nodeID, dockerImage string, memoryMB, diskMB int64, port int) (*Server, error) {
	s := &Server{
		ID:          uuid.New().String(),
		UUID:        uuid.New().String(),
		Name:        name,
		NodeID:      nodeID,
		DockerImage: dockerImage,
		MemoryMB:    memoryMB,
		DiskMB:      diskMB,
		Port:        port,
		Status:      StatusInstalling,
		Version:     1,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	return s, nil
}

// Validate checks all server invariants.
func (s *Server) Validate() error {
	if s.Name == "" {
		return NewValidationError("name", "cannot be empty", nil)
	}
	if s.NodeID == "" {
		return NewValidationError("node_id", "cannot be empty", nil)
	}
	if s.DockerImage == "" {
		return NewValidationError("docker_image", "cannot be empty", nil)
	}
	if s.MemoryMB <= 0 {
		return NewValidationError("memory_mb", "must be positive", s.MemoryMB)
	}
	if s.DiskMB <= 0 {
		return NewValidationError("disk_mb", "must be positive", s.DiskMB)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return NewValidationError("port", "must be between 1 and 65535", s.Port)
	}
	return nil
}

// UpdateStatus changes the server status with validation
func (s *Server) UpdateStatus(newStatus Status) error {
	if !newStatus.IsValid() {
		return ErrInvalidStatus
	}

	s.Status = newStatus
	s.UpdatedAt = time.Now()
	s.Version++
	return nil
}

// IsRunning reports whether the panel believes the process is up.
func (s *Server) IsRunning() bool {
	return s.Status == StatusOnline || s.Status == StatusStarting
}
