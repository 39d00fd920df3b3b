package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

func asError[T error](err error, target *T) bool {
	return errors.As(err, target)
}

func testConn(t *testing.T, serverURL, token string) NodeConn {
	t.Helper()

	parsed, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(parsed.Host)
	if err != nil {
		t.Fatalf("failed to split test server host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("failed to parse test server port: %v", err)
	}

	return NodeConn{
		FQDN:   host,
		Port:   port,
		UseTLS: parsed.Scheme == "https",
		Token:  token,
	}
}

func newTestTransport() *Transport {
	return NewTransport(DefaultTransportConfig(), logger.NewDevelopment("daemon_test"))
}

func TestTransport_Send(t *testing.T) {
	t.Run("sets bearer auth and headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
				t.Errorf("expected bearer auth header, got %q", got)
			}
			if got := r.Header.Get("Accept"); got != "application/json" {
				t.Errorf("expected Accept application/json, got %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		conn := testConn(t, server.URL, "secret-token")
		payload, err := newTestTransport().Send(context.Background(), conn, http.MethodPost, "/api/test", map[string]string{"k": "v"})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !payload.IsEmpty() {
			t.Errorf("expected empty payload for 204, got kind %d", payload.Kind())
		}
	})

	t.Run("no content type header without body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Content-Type"); got != "" {
				t.Errorf("expected no Content-Type for bodyless request, got %q", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		conn := testConn(t, server.URL, "tok")
		_, err := newTestTransport().Send(context.Background(), conn, http.MethodGet, "/api/test", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("classifies JSON body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte(`{"state":"running"}`))
		}))
		defer server.Close()

		conn := testConn(t, server.URL, "tok")
		payload, err := newTestTransport().Send(context.Background(), conn, http.MethodGet, "/api/test", nil)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if payload.Kind() != PayloadJSON {
			t.Fatalf("expected JSON payload, got kind %d", payload.Kind())
		}

		var decoded struct {
			State string `json:"state"`
		}
		if err := payload.Decode(&decoded); err != nil {
			t.Fatalf("expected decode to succeed, got %v", err)
		}
		if decoded.State != "running" {
			t.Errorf("expected state running, got %q", decoded.State)
		}
	})

	t.Run("classifies text body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("[12:00:01] Server started"))
		}))
		defer server.Close()

		conn := testConn(t, server.URL, "tok")
		payload, err := newTestTransport().Send(context.Background(), conn, http.MethodGet, "/api/test", nil)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if payload.Kind() != PayloadText {
			t.Fatalf("expected text payload, got kind %d", payload.Kind())
		}
		if payload.Text() != "[12:00:01] Server started" {
			t.Errorf("unexpected text payload: %q", payload.Text())
		}
	})

	t.Run("declared JSON that fails to parse is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		conn := testConn(t, server.URL, "tok")
		_, err := newTestTransport().Send(context.Background(), conn, http.MethodGet, "/api/test", nil)

		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		var malformed *MalformedResponseError
		if !asError(err, &malformed) {
			t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
		}
	})

	t.Run("non-2xx becomes APIError with body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"uuid already in use"}`))
		}))
		defer server.Close()

		conn := testConn(t, server.URL, "tok")
		_, err := newTestTransport().Send(context.Background(), conn, http.MethodPost, "/api/test", nil)

		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		var apiErr *APIError
		if !asError(err, &apiErr) {
			t.Fatalf("expected APIError, got %T: %v", err, err)
		}
		if apiErr.Status != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", apiErr.Status)
		}
		if !strings.Contains(apiErr.Body, "uuid already in use") {
			t.Errorf("expected body preserved, got %q", apiErr.Body)
		}
	})

	t.Run("connection failure becomes UnreachableError without token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		conn := testConn(t, server.URL, "super-secret-token")
		server.Close()

		_, err := newTestTransport().Send(context.Background(), conn, http.MethodGet, "/api/test", nil)

		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		var unreachable *UnreachableError
		if !asError(err, &unreachable) {
			t.Fatalf("expected UnreachableError, got %T: %v", err, err)
		}
		if !strings.Contains(err.Error(), conn.Host()) {
			t.Errorf("expected error to mention host %s, got %q", conn.Host(), err.Error())
		}
		if strings.Contains(err.Error(), "super-secret-token") {
			t.Errorf("error message leaked the auth token: %q", err.Error())
		}
	})

	t.Run("timeout becomes UnreachableError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		transport := NewTransport(TransportConfig{Timeout: 20 * time.Millisecond}, logger.NewDevelopment("daemon_test"))
		conn := testConn(t, server.URL, "tok")
		_, err := transport.Send(context.Background(), conn, http.MethodGet, "/api/test", nil)

		var unreachable *UnreachableError
		if !asError(err, &unreachable) {
			t.Fatalf("expected UnreachableError on timeout, got %T: %v", err, err)
		}
	})
}

func TestNodeConn_BaseURL(t *testing.T) {
	conn := NodeConn{FQDN: "node1.example.com", Port: 8080, UseTLS: false}
	if got := conn.BaseURL(); got != "http://node1.example.com:8080" {
		t.Errorf("unexpected base URL: %s", got)
	}

	conn.UseTLS = true
	conn.Port = 443
	if got := conn.BaseURL(); got != "https://node1.example.com:443" {
		t.Errorf("unexpected base URL: %s", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxErrorBodyBytes+100)
	got := truncate([]byte(long), maxErrorBodyBytes)
	if len(got) > maxErrorBodyBytes+len("... (truncated)") {
		t.Errorf("truncated body too long: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Error("expected truncation marker suffix")
	}
}
