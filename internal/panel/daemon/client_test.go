package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

func newTestClient(t *testing.T, serverURL, token string) *Client {
	t.Helper()
	log := logger.NewDevelopment("daemon_test")
	return NewClient(testConn(t, serverURL, token), NewTransport(DefaultTransportConfig(), log), log)
}

func TestClient_IsOnline(t *testing.T) {
	t.Run("healthy daemon", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/system" {
				t.Errorf("expected path /api/system, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":"1.11.0"}`))
		}))
		defer server.Close()

		if !newTestClient(t, server.URL, "tok").IsOnline(context.Background()) {
			t.Error("expected online daemon")
		}
	})

	t.Run("auth rejection reads as offline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		if newTestClient(t, server.URL, "bad-token").IsOnline(context.Background()) {
			t.Error("expected offline for auth rejection")
		}
	})

	t.Run("unreachable daemon never errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := newTestClient(t, server.URL, "tok")
		server.Close()

		if client.IsOnline(context.Background()) {
			t.Error("expected offline for closed daemon")
		}
	})
}

func TestClient_SetPowerState(t *testing.T) {
	t.Run("sends signal and accepts 204", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/servers/srv-uuid-1/power" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}

			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode power body: %v", err)
			}
			if len(body) != 1 || body["signal"] != "start" {
				t.Errorf(`expected body {"signal":"start"}, got %v`, body)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		err := newTestClient(t, server.URL, "tok").SetPowerState(context.Background(), "srv-uuid-1", SignalStart)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rejects unknown signal locally", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("daemon should not be contacted for an invalid signal")
		}))
		defer server.Close()

		err := newTestClient(t, server.URL, "tok").SetPowerState(context.Background(), "srv-uuid-1", Signal("reboot"))
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("daemon rejection surfaces as APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte("server is installing"))
		}))
		defer server.Close()

		err := newTestClient(t, server.URL, "tok").SetPowerState(context.Background(), "srv-uuid-1", SignalStop)
		var apiErr *APIError
		if !asError(err, &apiErr) {
			t.Fatalf("expected APIError, got %T: %v", err, err)
		}
		if apiErr.Status != http.StatusConflict {
			t.Errorf("expected status 409, got %d", apiErr.Status)
		}
	})
}

func TestClient_CreateServer(t *testing.T) {
	t.Run("sends full install configuration", func(t *testing.T) {
		var received createServerPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/servers" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Fatalf("failed to decode create body: %v", err)
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		req := ProvisionRequest{
			UUID:        "srv-uuid-2",
			Name:        "survival",
			DockerImage: "ghcr.io/pterodactyl/yolks:java_21",
			MemoryMB:    4096,
			DiskMB:      10240,
			Environment: map[string]string{"MINECRAFT_VERSION": "1.21"},
		}
		resp, err := newTestClient(t, server.URL, "tok").CreateServer(context.Background(), req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.UUID != "srv-uuid-2" {
			t.Errorf("empty ack body must fall back to the requested uuid, got %q", resp.UUID)
		}

		if received.UUID != "srv-uuid-2" {
			t.Errorf("expected uuid srv-uuid-2, got %q", received.UUID)
		}
		if received.Limits.MemoryMB != 4096 || received.Limits.DiskMB != 10240 {
			t.Errorf("unexpected limits: %+v", received.Limits)
		}
		if received.Limits.CPU != 0 || received.Limits.IOWeight != 500 {
			t.Errorf("unexpected cpu/io limits: %+v", received.Limits)
		}
		if received.Stop.Type != "command" || received.Stop.Value != "stop" {
			t.Errorf("unexpected stop config: %+v", received.Stop)
		}
		if !strings.Contains(received.Startup, "-Xmx4096M") {
			t.Errorf("expected startup to carry heap size, got %q", received.Startup)
		}
		if received.Environment["MINECRAFT_VERSION"] != "1.21" {
			t.Errorf("caller environment lost: %+v", received.Environment)
		}
		if received.Environment["SERVER_MEMORY"] != "4096" {
			t.Errorf("expected SERVER_MEMORY 4096, got %q", received.Environment["SERVER_MEMORY"])
		}
		if received.Allocations.Default == nil || len(received.Allocations.Default) != 0 {
			t.Errorf("expected empty allocation list, got %+v", received.Allocations.Default)
		}
	})

	t.Run("daemon failure propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte("uuid already in use"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "tok").CreateServer(context.Background(), ProvisionRequest{UUID: "dup"})
		var apiErr *APIError
		if !asError(err, &apiErr) {
			t.Fatalf("expected APIError, got %T: %v", err, err)
		}
	})

	t.Run("ack body is decoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"uuid": "srv-uuid-3", "state": "installing"}`))
		}))
		defer server.Close()

		resp, err := newTestClient(t, server.URL, "tok").CreateServer(context.Background(), ProvisionRequest{UUID: "srv-uuid-3"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.State != "installing" {
			t.Errorf("expected state installing, got %q", resp.State)
		}
	})
}

func TestClient_GetLogs(t *testing.T) {
	t.Run("raw text passes through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/servers/srv-1/logs" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("[INFO] Done (3.2s)!"))
		}))
		defer server.Close()

		logs, err := newTestClient(t, server.URL, "tok").GetLogs(context.Background(), "srv-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logs != "[INFO] Done (3.2s)!" {
			t.Errorf("unexpected logs: %q", logs)
		}
	})

	t.Run("JSON string wrapper unwraps", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":"line one\nline two"}`))
		}))
		defer server.Close()

		logs, err := newTestClient(t, server.URL, "tok").GetLogs(context.Background(), "srv-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logs != "line one\nline two" {
			t.Errorf("unexpected logs: %q", logs)
		}
	})

	t.Run("JSON line array joins", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":["first","second"]}`))
		}))
		defer server.Close()

		logs, err := newTestClient(t, server.URL, "tok").GetLogs(context.Background(), "srv-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logs != "first\nsecond" {
			t.Errorf("unexpected logs: %q", logs)
		}
	})

	t.Run("unrecognized JSON normalizes to empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"object":{"nested":true}}`))
		}))
		defer server.Close()

		logs, err := newTestClient(t, server.URL, "tok").GetLogs(context.Background(), "srv-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logs != "" {
			t.Errorf("expected empty logs, got %q", logs)
		}
	})
}

func TestClient_GetServerDetails(t *testing.T) {
	t.Run("decodes details", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/servers/srv-9" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"uuid":"srv-9","state":"running"}`))
		}))
		defer server.Close()

		details, err := newTestClient(t, server.URL, "tok").GetServerDetails(context.Background(), "srv-9")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if details.State != "running" || !details.Running() {
			t.Errorf("unexpected details: %+v", details)
		}
	})

	t.Run("non-JSON details are malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("running"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "tok").GetServerDetails(context.Background(), "srv-9")
		var malformed *MalformedResponseError
		if !asError(err, &malformed) {
			t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
		}
	})
}

func TestClient_DeleteServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/api/servers/srv-3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := newTestClient(t, server.URL, "tok").DeleteServer(context.Background(), "srv-3"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
