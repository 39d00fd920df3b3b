package api

import (
	"net/http"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/orchestrator"
	"github.com/blockpanel/blockpanel/internal/panel/server"
	"github.com/blockpanel/blockpanel/pkg/api"
)

func (s *Server) createServerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req api.CreateServerRequest
		if err := ParseJSONRequest(r, &req); err != nil {
			_ = WriteValidationError(w, err, GetRequestID(ctx))
			return
		}
		if err := ValidateCreateServerRequest(&req); err != nil {
			_ = WriteValidationError(w, err, GetRequestID(ctx))
			return
		}

		srv, err := s.orch.CreateServer(ctx, orchestrator.CreateServerRequest{
			Name:        req.Name,
			NodeID:      req.NodeID,
			DockerImage: req.DockerImage,
			MemoryMB:    req.MemoryMB,
			DiskMB:      req.DiskMB,
			Port:        req.Port,
			Edition:     req.Edition,
			GameVersion: req.GameVersion,
			Environment: req.Environment,
		})
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}

		_ = WriteCreated(w, srv)
	}
}

func (s *Server) listServersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers, err := s.store.ListServers(r.Context())
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		if servers == nil {
			servers = []*server.Server{}
		}
		_ = WriteSuccess(w, servers)
	}
}

func (s *Server) getServerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv, err := s.store.GetServer(r.Context(), r.PathValue("serverID"))
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, srv)
	}
}

func (s *Server) deleteServerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.orch.DeleteServer(r.Context(), r.PathValue("serverID")); err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// powerHandler applies a power action. The orchestrator only flips the
// stored status after the daemon acknowledges the signal.
func (s *Server) powerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req api.PowerRequest
		if err := ParseJSONRequest(r, &req); err != nil {
			_ = WriteValidationError(w, err, GetRequestID(ctx))
			return
		}
		if err := ValidatePowerRequest(&req); err != nil {
			_ = WriteValidationError(w, err, GetRequestID(ctx))
			return
		}

		serverID := r.PathValue("serverID")
		if err := s.orch.PowerAction(ctx, serverID, daemon.Signal(req.Action)); err != nil {
			WriteErrorResponse(w, r, err)
			return
		}

		srv, err := s.store.GetServer(ctx, serverID)
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, srv)
	}
}

func (s *Server) logsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := s.orch.GetServerLogs(r.Context(), r.PathValue("serverID"))
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, api.LogsResponse{Logs: logs})
	}
}

// reconcileServerHandler asks the daemon for the server's real state and
// folds it into the panel record.
func (s *Server) reconcileServerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv, err := s.orch.ReconcileServer(r.Context(), r.PathValue("serverID"))
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, srv)
	}
}
