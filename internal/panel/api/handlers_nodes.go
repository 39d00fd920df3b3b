package api

import (
	"net/http"

	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/panel/orchestrator"
	"github.com/blockpanel/blockpanel/pkg/api"
)

// registerNodeHandler registers a new node in the registry. The node model's
// json tags keep the token out of the response body.
func (s *Server) registerNodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req api.RegisterNodeRequest
		if err := ParseJSONRequest(r, &req); err != nil {
			_ = WriteValidationError(w, err, GetRequestID(ctx))
			return
		}
		if err := ValidateRegisterNodeRequest(&req); err != nil {
			_ = WriteValidationError(w, err, GetRequestID(ctx))
			return
		}

		n, err := s.orch.RegisterNode(ctx, orchestrator.RegisterNodeRequest{
			Name:       req.Name,
			FQDN:       req.FQDN,
			Port:       req.Port,
			UseTLS:     req.UseTLS,
			Token:      req.Token,
			MemoryMB:   req.MemoryMB,
			DiskMB:     req.DiskMB,
			PortsStart: req.PortsStart,
			PortsEnd:   req.PortsEnd,
		})
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}

		_ = WriteCreated(w, n)
	}
}

func (s *Server) listNodesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodes, err := s.store.ListNodes(r.Context())
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		if nodes == nil {
			nodes = []*node.Node{}
		}
		_ = WriteSuccess(w, nodes)
	}
}

func (s *Server) getNodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.store.GetNode(r.Context(), r.PathValue("nodeID"))
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, n)
	}
}

func (s *Server) deleteNodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.orch.DeleteNode(r.Context(), r.PathValue("nodeID")); err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// checkNodeHandler triggers an immediate health probe instead of waiting for
// the background sweep.
func (s *Server) checkNodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.orch.ReconcileNode(r.Context(), r.PathValue("nodeID"))
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, n)
	}
}

func (s *Server) listNodeServersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodeID := r.PathValue("nodeID")

		// 404 for unknown nodes instead of an empty list
		if _, err := s.store.GetNode(r.Context(), nodeID); err != nil {
			WriteErrorResponse(w, r, err)
			return
		}

		servers, err := s.store.ListServersByNode(r.Context(), nodeID)
		if err != nil {
			WriteErrorResponse(w, r, err)
			return
		}
		_ = WriteSuccess(w, servers)
	}
}
