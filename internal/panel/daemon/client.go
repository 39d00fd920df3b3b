package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

// Signal is a power action understood by the daemon.
type Signal string

const (
	SignalStart   Signal = "start"
	SignalStop    Signal = "stop"
	SignalRestart Signal = "restart"
	SignalKill    Signal = "kill"
)

// Valid reports whether the signal is one the daemon accepts.
func (s Signal) Valid() bool {
	switch s {
	case SignalStart, SignalStop, SignalRestart, SignalKill:
		return true
	}
	return false
}

// ProvisionRequest describes a game server to install on a node.
type ProvisionRequest struct {
	UUID        string
	Name        string
	DockerImage string
	MemoryMB    int64
	DiskMB      int64
	Environment map[string]string
}

// ProvisionResponse is the daemon's acknowledgement of an install request.
// Daemons that ack with an empty 2xx yield a response carrying only the
// requested UUID.
type ProvisionResponse struct {
	UUID  string `json:"uuid"`
	State string `json:"state"`
}

// ServerDetails is the daemon's view of a single installed server.
type ServerDetails struct {
	UUID        string `json:"uuid"`
	State       string `json:"state"`
	Suspended   bool   `json:"suspended"`
	Utilization struct {
		MemoryBytes int64   `json:"memory_bytes"`
		DiskBytes   int64   `json:"disk_bytes"`
		CPUAbsolute float64 `json:"cpu_absolute"`
	} `json:"utilization"`
}

// Running reports whether the daemon considers the server process up.
func (d ServerDetails) Running() bool {
	return d.State == "running" || d.State == "starting"
}

// createServerPayload is the wire shape the daemon expects for installs.
type createServerPayload struct {
	UUID        string            `json:"uuid"`
	Name        string            `json:"name"`
	DockerImage string            `json:"docker_image"`
	Startup     string            `json:"startup"`
	Environment map[string]string `json:"environment"`
	Limits      resourceLimits    `json:"limits"`
	Allocations allocationSet     `json:"allocations"`
	Stop        stopConfig        `json:"stop"`
}

type resourceLimits struct {
	MemoryMB int64 `json:"memory"`
	DiskMB   int64 `json:"disk"`
	CPU      int64 `json:"cpu"`
	IOWeight int64 `json:"io"`
}

type allocationSet struct {
	Default []allocation `json:"default"`
}

type allocation struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

type stopConfig struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Client wraps a Transport with the daemon's operation surface for one node.
type Client struct {
	conn      NodeConn
	transport *Transport
	logger    *logger.Logger
}

// NewClient creates a client bound to a single node's daemon.
func NewClient(conn NodeConn, transport *Transport, log *logger.Logger) *Client {
	return &Client{
		conn:      conn,
		transport: transport,
		logger:    log.WithComponent("daemon-client"),
	}
}

// Host returns the daemon's host:port, safe for logs.
func (c *Client) Host() string {
	return c.conn.Host()
}

// IsOnline probes the daemon's system endpoint. It never returns an error;
// any failure, including an auth rejection, reads as offline.
func (c *Client) IsOnline(ctx context.Context) bool {
	_, err := c.transport.Send(ctx, c.conn, http.MethodGet, "/api/system", nil)
	if err != nil {
		c.logger.DebugContext(ctx, "daemon health probe failed",
			"host", c.conn.Host(),
			"error", err.Error(),
		)
		return false
	}
	return true
}

// SetPowerState sends a power signal for the given server. The daemon
// acknowledges with 204; any body on success is tolerated and ignored.
func (c *Client) SetPowerState(ctx context.Context, serverUUID string, signal Signal) error {
	if !signal.Valid() {
		return fmt.Errorf("invalid power signal %q", signal)
	}

	path := fmt.Sprintf("/api/servers/%s/power", serverUUID)
	body := map[string]string{"signal": string(signal)}

	_, err := c.transport.Send(ctx, c.conn, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("power signal %s for server %s failed: %w", signal, serverUUID, err)
	}
	return nil
}

// CreateServer installs a new server on the node. The install runs
// asynchronously on the daemon side; a 2xx ack means the daemon accepted
// the configuration and owns it from here.
func (c *Client) CreateServer(ctx context.Context, req ProvisionRequest) (*ProvisionResponse, error) {
	payload := createServerPayload{
		UUID:        req.UUID,
		Name:        req.Name,
		DockerImage: req.DockerImage,
		Startup:     startupCommand(req.MemoryMB),
		Environment: buildEnvironment(req),
		Limits: resourceLimits{
			MemoryMB: req.MemoryMB,
			DiskMB:   req.DiskMB,
			CPU:      0,
			IOWeight: 500,
		},
		Allocations: allocationSet{Default: []allocation{}},
		Stop:        stopConfig{Type: "command", Value: "stop"},
	}

	ack, err := c.transport.Send(ctx, c.conn, http.MethodPost, "/api/servers", payload)
	if err != nil {
		return nil, fmt.Errorf("create server %s failed: %w", req.UUID, err)
	}

	// The 2xx ack stands even when its body is empty or undecodable; the
	// daemon owns the install from here either way.
	resp := &ProvisionResponse{UUID: req.UUID}
	if ack.Kind() == PayloadJSON {
		var body ProvisionResponse
		if err := ack.Decode(&body); err != nil {
			c.logger.WarnContext(ctx, "daemon install ack body not decodable",
				"server_uuid", req.UUID,
				"host", c.conn.Host(),
			)
		} else {
			if body.UUID == "" {
				body.UUID = req.UUID
			}
			resp = &body
		}
	}

	c.logger.InfoContext(ctx, "server install accepted by daemon",
		"server_uuid", req.UUID,
		"host", c.conn.Host(),
	)
	return resp, nil
}

// GetLogs fetches the server's recent console output. The daemon may answer
// with raw text or a JSON wrapper; both normalize to a plain string. A JSON
// body without a recognizable log field yields "" rather than an error.
func (c *Client) GetLogs(ctx context.Context, serverUUID string) (string, error) {
	path := fmt.Sprintf("/api/servers/%s/logs", serverUUID)

	payload, err := c.transport.Send(ctx, c.conn, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("fetch logs for server %s failed: %w", serverUUID, err)
	}

	switch payload.Kind() {
	case PayloadText:
		return payload.Text(), nil
	case PayloadJSON:
		return extractLogText(payload), nil
	default:
		return "", nil
	}
}

// GetServerDetails fetches the daemon's current record for a server.
func (c *Client) GetServerDetails(ctx context.Context, serverUUID string) (*ServerDetails, error) {
	path := fmt.Sprintf("/api/servers/%s", serverUUID)

	payload, err := c.transport.Send(ctx, c.conn, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch details for server %s failed: %w", serverUUID, err)
	}

	var details ServerDetails
	if err := payload.Decode(&details); err != nil {
		return nil, fmt.Errorf("fetch details for server %s failed: %w", serverUUID, err)
	}
	if details.UUID == "" {
		details.UUID = serverUUID
	}
	return &details, nil
}

// DeleteServer removes a server and its data from the node.
func (c *Client) DeleteServer(ctx context.Context, serverUUID string) error {
	path := fmt.Sprintf("/api/servers/%s", serverUUID)

	_, err := c.transport.Send(ctx, c.conn, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("delete server %s failed: %w", serverUUID, err)
	}
	return nil
}

// startupCommand renders the default Java invocation for the given heap size.
func startupCommand(memoryMB int64) string {
	return fmt.Sprintf("java -Xms128M -Xmx%dM -jar server.jar nogui", memoryMB)
}

func buildEnvironment(req ProvisionRequest) map[string]string {
	env := make(map[string]string, len(req.Environment)+2)
	for k, v := range req.Environment {
		env[k] = v
	}
	env["SERVER_MEMORY"] = fmt.Sprintf("%d", req.MemoryMB)
	if _, ok := env["SERVER_JARFILE"]; !ok {
		env["SERVER_JARFILE"] = "server.jar"
	}
	return env
}

// extractLogText pulls console text out of the daemon's JSON log wrapper.
// Accepts {"data": "..."} or {"data": ["line", ...]}; anything else is "".
func extractLogText(payload Payload) string {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := payload.Decode(&wrapper); err != nil || len(wrapper.Data) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(wrapper.Data, &text); err == nil {
		return text
	}

	var lines []string
	if err := json.Unmarshal(wrapper.Data, &lines); err == nil {
		out := ""
		for i, line := range lines {
			if i > 0 {
				out += "\n"
			}
			out += line
		}
		return out
	}

	return ""
}
