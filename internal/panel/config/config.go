package config

import (
	"fmt"
	"time"
)

// Config defines the configuration for the panel service.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	DB      DBConfig      `mapstructure:"db"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
	Health  HealthConfig  `mapstructure:"health"`
	Hetzner HetznerConfig `mapstructure:"hetzner"`
}

// ServiceConfig defines service-level configuration options.
type ServiceConfig struct {
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines the logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig defines the API server configuration.
type APIConfig struct {
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DBConfig defines the database configuration.
type DBConfig struct {
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
}

// DaemonConfig tunes outbound calls to node daemons.
type DaemonConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// HealthConfig tunes the background node health sweep.
type HealthConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// HetznerConfig defines the Hetzner provider configuration used for
// provisioning new daemon nodes. Optional; node provisioning is disabled
// when no API token is configured.
type HetznerConfig struct {
	APIToken     string `mapstructure:"api_token"`
	ServerType   string `mapstructure:"server_type"`
	Image        string `mapstructure:"image"`
	Location     string `mapstructure:"location"`
	DaemonPort   int    `mapstructure:"daemon_port"`
	SSHPublicKey string `mapstructure:"ssh_public_key"`
}

// Enabled reports whether cloud provisioning is configured.
func (c HetznerConfig) Enabled() bool {
	return c.APIToken != ""
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	if c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if c.Daemon.Timeout <= 0 {
		return fmt.Errorf("daemon.timeout must be positive")
	}
	if c.Health.Interval <= 0 {
		return fmt.Errorf("health.interval must be positive")
	}
	if c.Health.FailureThreshold <= 0 {
		return fmt.Errorf("health.failure_threshold must be positive")
	}
	if c.Hetzner.Enabled() && c.Hetzner.DaemonPort <= 0 {
		return fmt.Errorf("hetzner.daemon_port must be positive when provisioning is enabled")
	}

	return nil
}
