package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

const (
	// DefaultTimeout bounds a single daemon round trip.
	DefaultTimeout = 8 * time.Second

	// maxErrorBodyBytes caps how much of a failure body is kept on APIError.
	maxErrorBodyBytes = 2048

	// maxResponseBytes caps how much of any response body is read.
	maxResponseBytes = 4 << 20
)

// NodeConn carries everything the transport needs to reach one daemon.
// The token is a bearer credential and must never appear in logs or errors.
type NodeConn struct {
	FQDN   string
	Port   int
	UseTLS bool
	Token  string
}

// BaseURL builds the daemon's base URL from the connection parameters.
func (c NodeConn) BaseURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.FQDN, c.Port)
}

// Host returns the host:port pair, safe to include in errors and logs.
func (c NodeConn) Host() string {
	return fmt.Sprintf("%s:%d", c.FQDN, c.Port)
}

// TransportConfig holds transport tuning knobs.
type TransportConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultTransportConfig returns the default transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Timeout: DefaultTimeout,
	}
}

// Transport issues single HTTP round trips against node daemons. It does not
// retry; callers own retry policy. Every daemon operation funnels through
// Send so auth, timeouts, and response classification live in one place.
type Transport struct {
	httpClient *http.Client
	logger     *logger.Logger
}

// NewTransport creates a transport with the given configuration.
func NewTransport(config TransportConfig, log *logger.Logger) *Transport {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Transport{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithComponent("daemon-transport"),
	}
}

// Send performs one authenticated request against the daemon described by
// conn. A non-nil body is JSON-encoded. Responses classify as:
//   - network failure: UnreachableError
//   - 2xx, no body: empty payload
//   - 2xx, JSON content type: JSON payload (MalformedResponseError if unparseable)
//   - 2xx, anything else: text payload
//   - non-2xx: APIError carrying status and truncated body
func (t *Transport) Send(ctx context.Context, conn NodeConn, method, path string, body any) (Payload, error) {
	url := conn.BaseURL() + path

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Payload{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to build request for %s: %w", conn.Host(), err)
	}

	req.Header.Set("Authorization", "Bearer "+conn.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.DebugContext(ctx, "daemon request failed",
			"method", method,
			"path", path,
			"host", conn.Host(),
			"duration_ms", time.Since(start),
		)
		return Payload{}, NewUnreachableError(conn.Host(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Payload{}, NewUnreachableError(conn.Host(), err)
	}

	t.logger.DebugContext(ctx, "daemon request completed",
		"method", method,
		"path", path,
		"host", conn.Host(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Payload{}, NewAPIError(resp.StatusCode, truncate(raw, maxErrorBodyBytes))
	}

	return classify(resp, raw)
}

func classify(resp *http.Response, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return EmptyPayload(), nil
	}

	contentType := resp.Header.Get("Content-Type")
	if isJSONContentType(contentType) {
		if !json.Valid(raw) {
			return Payload{}, NewMalformedResponseError(
				fmt.Sprintf("body declared %s but is not valid JSON", contentType), nil)
		}
		return JSONPayload(raw), nil
	}

	return TextPayload(raw), nil
}

func isJSONContentType(contentType string) bool {
	mediaType := contentType
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		mediaType = contentType[:idx]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func truncate(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "... (truncated)"
}
