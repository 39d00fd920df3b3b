package provisioner

import (
	"bytes"
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

//go:embed templates
var templatesFS embed.FS

const (
	bootstrapWait       = 60 * time.Second
	healthCheckInterval = 10 * time.Second
	maxHealthChecks     = 12
)

// CloudInitData contains the data for rendering the cloud-init template.
type CloudInitData struct {
	Token         string
	DaemonPort    int
	SSHPublicKeys []string
}

// ProvisionResult describes a machine that came up with a healthy daemon.
// Token is the generated daemon bearer token; the caller registers it in
// the node registry and must not log it.
type ProvisionResult struct {
	MachineID  string
	IPAddress  string
	DaemonPort int
	Token      string
}

// Config contains configuration for the Hetzner provisioner.
type Config struct {
	ServerType   string
	Image        string
	Location     string
	DaemonPort   int
	SSHPublicKey string // Path to an SSH public key file or the key content itself
}

// Hetzner provisions daemon machines on Hetzner Cloud.
type Hetzner struct {
	client    *hcloud.Client
	config    *Config
	transport *daemon.Transport
	logger    *logger.Logger
}

// NewHetzner creates a new Hetzner provisioner.
func NewHetzner(apiToken string, config *Config, transport *daemon.Transport, log *logger.Logger) (*Hetzner, error) {
	if apiToken == "" {
		return nil, ErrProvisioningDisabled
	}
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.DaemonPort <= 0 {
		return nil, fmt.Errorf("daemon port is required")
	}

	return &Hetzner{
		client:    hcloud.NewClient(hcloud.WithToken(apiToken)),
		config:    config,
		transport: transport,
		logger:    log.WithComponent("provisioner"),
	}, nil
}

// generateToken returns a fresh daemon bearer token. The token is opaque;
// it is handed to cloud-init and to the node registry and never logged.
func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate daemon token: %w", err)
	}
	return "bpnl_" + hex.EncodeToString(buf), nil
}

// readSSHPublicKeys reads SSH public keys from the configured source.
func (h *Hetzner) readSSHPublicKeys() ([]string, error) {
	if h.config.SSHPublicKey == "" {
		h.logger.Warn("No SSH public key configured, SSH access will not be available")
		return []string{}, nil
	}

	var sshKeys []string

	if strings.HasPrefix(h.config.SSHPublicKey, "ssh-") || strings.HasPrefix(h.config.SSHPublicKey, "ecdsa-") {
		sshKeys = append(sshKeys, strings.TrimSpace(h.config.SSHPublicKey))
	} else {
		keyBytes, err := os.ReadFile(h.config.SSHPublicKey)
		if err != nil {
			return nil, &ProvisionError{
				Stage:   "ssh-keys",
				Message: "failed to read SSH public key file",
				Err:     err,
			}
		}

		for _, line := range strings.Split(string(keyBytes), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				sshKeys = append(sshKeys, line)
			}
		}
	}

	if len(sshKeys) == 0 {
		h.logger.Warn("No valid SSH public keys found")
	}
	return sshKeys, nil
}

// generateCloudInit renders the cloud-init template that installs and
// starts the node daemon with the generated token.
func (h *Hetzner) generateCloudInit(token string) (string, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/daemon-node.yaml")
	if err != nil {
		return "", &ProvisionError{
			Stage:   "template-render",
			Message: "failed to parse cloud-init template",
			Err:     err,
		}
	}

	sshKeys, err := h.readSSHPublicKeys()
	if err != nil {
		return "", err
	}

	data := CloudInitData{
		Token:         token,
		DaemonPort:    h.config.DaemonPort,
		SSHPublicKeys: sshKeys,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &ProvisionError{
			Stage:   "template-render",
			Message: "failed to render cloud-init template",
			Err:     err,
		}
	}
	return buf.String(), nil
}

// healthCheck probes the daemon system endpoint over the same transport the
// panel uses for node control.
func (h *Hetzner) healthCheck(ctx context.Context, ipAddress, token string) bool {
	conn := daemon.NodeConn{
		FQDN:  ipAddress,
		Port:  h.config.DaemonPort,
		Token: token,
	}
	return daemon.NewClient(conn, h.transport, h.logger).IsOnline(ctx)
}

// ProvisionMachine creates a cloud machine running the node daemon and waits
// until the daemon answers health probes. On exhausted health checks the
// machine is destroyed again.
func (h *Hetzner) ProvisionMachine(ctx context.Context, name string) (*ProvisionResult, error) {
	token, err := generateToken()
	if err != nil {
		return nil, &ProvisionError{Stage: "token", Message: "token generation failed", Err: err}
	}

	cloudInit, err := h.generateCloudInit(token)
	if err != nil {
		return nil, err
	}

	sshKeys, _, err := h.client.SSHKey.List(ctx, hcloud.SSHKeyListOpts{})
	if err != nil {
		return nil, &ProvisionError{
			Stage:     "ssh-keys",
			Message:   "failed to list SSH keys",
			Err:       err,
			Retryable: true,
		}
	}

	if name == "" {
		name = fmt.Sprintf("bp-node-%d", time.Now().Unix())
	}

	h.logger.Info("Creating Hetzner machine",
		slog.String("name", name),
		slog.String("server_type", h.config.ServerType),
		slog.String("location", h.config.Location))

	result, _, err := h.client.Server.Create(ctx, hcloud.ServerCreateOpts{
		Name:       name,
		ServerType: &hcloud.ServerType{Name: h.config.ServerType},
		Image:      &hcloud.Image{Name: h.config.Image},
		Location:   &hcloud.Location{Name: h.config.Location},
		PublicNet: &hcloud.ServerCreatePublicNet{
			EnableIPv4: true,
			EnableIPv6: false,
		},
		SSHKeys:  sshKeys,
		UserData: cloudInit,
	})
	if err != nil {
		return nil, &ProvisionError{
			Stage:     "machine-create",
			Message:   "failed to create Hetzner machine",
			Err:       err,
			Retryable: hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded),
		}
	}

	machineID := fmt.Sprintf("%d", result.Server.ID)
	ipAddress := result.Server.PublicNet.IPv4.IP.String()

	h.logger.Info("Machine created, waiting for daemon bootstrap",
		slog.String("machine_id", machineID),
		slog.String("ip_address", ipAddress))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(bootstrapWait):
	}

	for i := 0; i < maxHealthChecks; i++ {
		if h.healthCheck(ctx, ipAddress, token) {
			h.logger.Info("Daemon is answering health probes",
				slog.String("machine_id", machineID),
				slog.String("ip_address", ipAddress))
			return &ProvisionResult{
				MachineID:  machineID,
				IPAddress:  ipAddress,
				DaemonPort: h.config.DaemonPort,
				Token:      token,
			}, nil
		}

		h.logger.Debug("Daemon not ready yet",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", maxHealthChecks))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(healthCheckInterval):
		}
	}

	h.logger.Error("Health checks exhausted, destroying machine",
		slog.String("machine_id", machineID))

	if destroyErr := h.DestroyMachine(ctx, machineID); destroyErr != nil {
		h.logger.Error("Failed to clean up unhealthy machine",
			slog.String("machine_id", machineID),
			slog.String("error", destroyErr.Error()))
	}

	return nil, &ProvisionError{
		Stage:     "health-check",
		Message:   fmt.Sprintf("daemon failed health checks after %d attempts", maxHealthChecks),
		Err:       ErrHealthCheckFailed,
		Retryable: true,
		MachineID: machineID,
	}
}

// DestroyMachine deletes a previously provisioned cloud machine.
func (h *Hetzner) DestroyMachine(ctx context.Context, machineID string) error {
	var hetznerID int64
	if _, err := fmt.Sscanf(machineID, "%d", &hetznerID); err != nil {
		return &DestroyError{
			MachineID: machineID,
			Message:   "invalid machine ID format",
			Err:       err,
		}
	}

	_, _, err := h.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: hetznerID})
	if err != nil {
		return &DestroyError{
			MachineID: machineID,
			Message:   "failed to delete Hetzner machine",
			Err:       err,
		}
	}

	h.logger.Info("Machine destroyed", slog.String("machine_id", machineID))
	return nil
}
