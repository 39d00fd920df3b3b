package server

import (
	"testing"
)

func validServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("survival", "node-uuid-1", "ghcr.io/pterodactyl/yolks:java_21", 4096, 10240, 25565)
	if err != nil {
		t.Fatalf("expected valid server, got %v", err)
	}
	return s
}

func TestNewServer(t *testing.T) {
	s := validServer(t)

	if s.ID == "" || s.UUID == "" {
		t.Error("expected generated panel ID and daemon UUID")
	}
	if s.ID == s.UUID {
		t.Error("panel ID and daemon UUID should be distinct")
	}
	if s.Status != StatusInstalling {
		t.Errorf("expected installing status for new server, got %s", s.Status)
	}
	if s.Version != 1 {
		t.Errorf("expected version 1, got %d", s.Version)
	}
}

func TestServer_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Server)
	}{
		{"empty name", func(s *Server) { s.Name = "" }},
		{"empty node", func(s *Server) { s.NodeID = "" }},
		{"empty image", func(s *Server) { s.DockerImage = "" }},
		{"zero memory", func(s *Server) { s.MemoryMB = 0 }},
		{"zero disk", func(s *Server) { s.DiskMB = 0 }},
		{"invalid port", func(s *Server) { s.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validServer(t)
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestServer_UpdateStatus(t *testing.T) {
	s := validServer(t)

	if err := s.UpdateStatus(StatusOnline); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Status != StatusOnline || s.Version != 2 {
		t.Errorf("expected online at version 2, got %s v%d", s.Status, s.Version)
	}

	if err := s.UpdateStatus(Status("crashed")); err != ErrInvalidStatus {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestFromDaemonState(t *testing.T) {
	cases := map[string]Status{
		"running":    StatusOnline,
		"starting":   StatusStarting,
		"installing": StatusInstalling,
		"offline":    StatusOffline,
		"stopping":   StatusOffline,
		"":           StatusOffline,
	}

	for state, want := range cases {
		if got := FromDaemonState(state); got != want {
			t.Errorf("FromDaemonState(%q) = %s, want %s", state, got, want)
		}
	}
}
