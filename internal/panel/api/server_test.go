package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/db"
	"github.com/blockpanel/blockpanel/internal/panel/events"
	"github.com/blockpanel/blockpanel/internal/panel/orchestrator"
	applogger "github.com/blockpanel/blockpanel/internal/shared/logger"
	"github.com/blockpanel/blockpanel/pkg/api"
)

type apiEnv struct {
	handler http.Handler
	store   db.Store
	orch    *orchestrator.Orchestrator
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	_, store := db.NewTestDB(t)
	bus := events.NewBus(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	t.Cleanup(func() { _ = bus.Close() })

	log := applogger.NewDevelopment("api_test")
	transport := daemon.NewTransport(daemon.DefaultTransportConfig(), log)
	orch := orchestrator.New(store, bus, transport, orchestrator.DefaultCircuitBreakerConfig(), log)

	srv := NewServer(DefaultServerConfig(), orch, store, "test", log)
	return &apiEnv{handler: srv.Handler(), store: store, orch: orch}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var resp api.Response[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp), "body: %s", rec.Body.String())
	require.True(t, resp.Success, "expected success response, body: %s", rec.Body.String())
	return resp.Data
}

// registerTestNode registers a node whose daemon address points at daemonURL.
func (e *apiEnv) registerTestNode(t *testing.T, daemonURL string) map[string]any {
	t.Helper()

	parsed, err := url.Parse(daemonURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/v1/nodes", api.RegisterNodeRequest{
		Name:       "node-" + portStr,
		FQDN:       host,
		Port:       port,
		Token:      "ptdl_super_secret",
		MemoryMB:   16384,
		DiskMB:     102400,
		PortsStart: 25565,
		PortsEnd:   25665,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decodeData[map[string]any](t, rec)
}

func okDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/system":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":"1.11.0"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/servers":
			w.WriteHeader(http.StatusAccepted)
		case strings.HasSuffix(r.URL.Path, "/power"):
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/logs"):
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("[INFO] Done!"))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"uuid":"x","state":"running"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPI_NodeRegistration(t *testing.T) {
	t.Run("registers node and never echoes the token", func(t *testing.T) {
		env := newAPIEnv(t)
		daemonSrv := okDaemon(t)

		created := env.registerTestNode(t, daemonSrv.URL)
		assert.NotEmpty(t, created["id"])
		_, hasToken := created["token"]
		assert.False(t, hasToken, "token must never be echoed")
	})

	t.Run("registered node visible in list without token", func(t *testing.T) {
		env := newAPIEnv(t)
		daemonSrv := okDaemon(t)
		env.registerTestNode(t, daemonSrv.URL)

		rec := env.do(t, http.MethodGet, "/api/v1/nodes", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "ptdl_super_secret")

		nodes := decodeData[[]map[string]any](t, rec)
		require.Len(t, nodes, 1)
		assert.Equal(t, "online", nodes[0]["status"], "initial probe should have run")
		_, hasToken := nodes[0]["token"]
		assert.False(t, hasToken)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		env := newAPIEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/nodes", api.RegisterNodeRequest{Name: "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid port range rejected", func(t *testing.T) {
		env := newAPIEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/nodes", api.RegisterNodeRequest{
			Name:       "alpha",
			FQDN:       "node1.example.com",
			Port:       8080,
			Token:      "tok",
			MemoryMB:   1024,
			DiskMB:     1024,
			PortsStart: 25665,
			PortsEnd:   25565,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ports_end")
	})

	t.Run("unknown node 404", func(t *testing.T) {
		env := newAPIEnv(t)
		rec := env.do(t, http.MethodGet, "/api/v1/nodes/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPI_ServerLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	daemonSrv := okDaemon(t)
	n := env.registerTestNode(t, daemonSrv.URL)
	nodeID := n["id"].(string)

	var serverID string

	t.Run("create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/servers", api.CreateServerRequest{
			Name:        "survival",
			NodeID:      nodeID,
			DockerImage: "ghcr.io/pterodactyl/yolks:java_21",
			MemoryMB:    4096,
			DiskMB:      10240,
		})
		require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

		created := decodeData[map[string]any](t, rec)
		serverID = created["id"].(string)
		assert.Equal(t, "installing", created["status"])
		assert.Equal(t, float64(25565), created["port"])
	})

	t.Run("power start flips status to online", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/servers/"+serverID+"/power", api.PowerRequest{Action: "start"})
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

		srv := decodeData[map[string]any](t, rec)
		assert.Equal(t, "online", srv["status"])
	})

	t.Run("invalid power action rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/servers/"+serverID+"/power", api.PowerRequest{Action: "reboot"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("kill is not a panel power action", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/servers/"+serverID+"/power", api.PowerRequest{Action: "kill"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logs pass through while online", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/servers/"+serverID+"/logs", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		logs := decodeData[api.LogsResponse](t, rec)
		assert.Equal(t, "[INFO] Done!", logs.Logs)
	})

	t.Run("offline logs short-circuit", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/servers/"+serverID+"/power", api.PowerRequest{Action: "stop"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/v1/servers/"+serverID+"/logs", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		logs := decodeData[api.LogsResponse](t, rec)
		assert.Equal(t, orchestrator.OfflineLogMessage, logs.Logs)
	})

	t.Run("node with servers cannot be deleted", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/v1/nodes/"+nodeID, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete server then node", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/v1/servers/"+serverID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodDelete, "/api/v1/nodes/"+nodeID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAPI_DaemonFailuresMapToGatewayErrors(t *testing.T) {
	env := newAPIEnv(t)

	failingDaemon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/system" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":"1.11.0"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("container runtime unavailable"))
	}))
	defer failingDaemon.Close()

	n := env.registerTestNode(t, failingDaemon.URL)
	nodeID := n["id"].(string)

	rec := env.do(t, http.MethodPost, "/api/v1/servers", api.CreateServerRequest{
		Name:        "survival",
		NodeID:      nodeID,
		DockerImage: "ghcr.io/pterodactyl/yolks:java_21",
		MemoryMB:    4096,
		DiskMB:      10240,
	})
	require.Equal(t, http.StatusBadGateway, rec.Code, "body: %s", rec.Body.String())

	var resp api.Response[any]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "provision_failed", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestAPI_HealthAndRequestID(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	health := decodeData[api.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
}

func TestAPI_RequestIDPropagation(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-fixed-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-fixed-123", rec.Header().Get("X-Request-ID"))
}
