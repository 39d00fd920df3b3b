package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/db"
	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/panel/orchestrator"
	"github.com/blockpanel/blockpanel/internal/panel/server"
	applogger "github.com/blockpanel/blockpanel/internal/shared/logger"
	"github.com/blockpanel/blockpanel/pkg/api"
)

// Orchestrator defines the control-plane operations the API server exposes.
type Orchestrator interface {
	RegisterNode(ctx context.Context, req orchestrator.RegisterNodeRequest) (*node.Node, error)
	DeleteNode(ctx context.Context, nodeID string) error
	ReconcileNode(ctx context.Context, nodeID string) (*node.Node, error)
	CreateServer(ctx context.Context, req orchestrator.CreateServerRequest) (*server.Server, error)
	DeleteServer(ctx context.Context, serverID string) error
	PowerAction(ctx context.Context, serverID string, signal daemon.Signal) error
	GetServerLogs(ctx context.Context, serverID string) (string, error)
	ReconcileServer(ctx context.Context, serverID string) (*server.Server, error)
}

// ServerConfig contains configuration for the API server.
type ServerConfig struct {
	Address     string   `mapstructure:"address" yaml:"address"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DefaultServerConfig returns the default API server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:     ":8080",
		CORSOrigins: []string{"*"},
	}
}

// Server represents the HTTP API server with proper lifecycle management.
type Server struct {
	server      *http.Server
	orch        Orchestrator
	store       db.Store
	logger      *applogger.Logger
	corsOrigins []string
	version     string
}

// NewServer creates a new API server instance.
func NewServer(config ServerConfig, orch Orchestrator, store db.Store, version string, logger *applogger.Logger) *Server {
	return &Server{
		orch:        orch,
		store:       store,
		logger:      logger.WithComponent("api"),
		corsOrigins: config.CORSOrigins,
		version:     version,
		server: &http.Server{
			Addr:         config.Address,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the HTTP server and begins serving requests.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	s.server.Handler = s.registerRoutes(mux)

	s.logger.InfoContext(ctx, "starting API server", "address", s.server.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("api server failed to start: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		s.logger.InfoContext(ctx, "API server started successfully", "address", s.server.Addr)
		return nil
	}
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}

	s.logger.InfoContext(ctx, "API server shut down successfully")
	return nil
}

// Handler builds the full route handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.registerRoutes(http.NewServeMux())
}

// registerRoutes registers API routes with middleware.
func (s *Server) registerRoutes(mux *http.ServeMux) http.Handler {
	mux.HandleFunc("/health", s.healthHandler())

	// Node registry
	mux.HandleFunc("POST /api/v1/nodes", s.registerNodeHandler())
	mux.HandleFunc("GET /api/v1/nodes", s.listNodesHandler())
	mux.HandleFunc("GET /api/v1/nodes/{nodeID}", s.getNodeHandler())
	mux.HandleFunc("DELETE /api/v1/nodes/{nodeID}", s.deleteNodeHandler())
	mux.HandleFunc("POST /api/v1/nodes/{nodeID}/check", s.checkNodeHandler())
	mux.HandleFunc("GET /api/v1/nodes/{nodeID}/servers", s.listNodeServersHandler())

	// Server lifecycle
	mux.HandleFunc("POST /api/v1/servers", s.createServerHandler())
	mux.HandleFunc("GET /api/v1/servers", s.listServersHandler())
	mux.HandleFunc("GET /api/v1/servers/{serverID}", s.getServerHandler())
	mux.HandleFunc("DELETE /api/v1/servers/{serverID}", s.deleteServerHandler())
	mux.HandleFunc("POST /api/v1/servers/{serverID}/power", s.powerHandler())
	mux.HandleFunc("GET /api/v1/servers/{serverID}/logs", s.logsHandler())
	mux.HandleFunc("POST /api/v1/servers/{serverID}/reconcile", s.reconcileServerHandler())

	return Chain(
		Recovery(s.logger),
		RequestID(s.logger),
		Logging(),
		CORS(s.corsOrigins),
	)(mux)
}

// healthHandler returns the service health status.
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if err := s.store.Ping(r.Context()); err != nil {
			status = "degraded"
		}

		if err := WriteSuccess(w, api.HealthResponse{Status: status, Version: s.version}); err != nil {
			s.logger.ErrorCtx(r.Context(), "failed to encode health response", err)
		}
	}
}
