package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from YAML files and environment variables
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// Load loads configuration from files and environment variables.
// YAML files take precedence over defaults, ENV variables override both.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName("config")
	l.v.SetConfigType("yaml")

	// Search paths in order of priority
	l.v.AddConfigPath("/etc/blockpanel")
	l.v.AddConfigPath("$HOME/.blockpanel")
	l.v.AddConfigPath(".")

	l.v.SetEnvPrefix("BLOCKPANEL")
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.setDefaults()

	// A missing config file is fine; defaults and ENV carry the service
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from an explicit file path.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)

	l.v.SetEnvPrefix("BLOCKPANEL")
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Service defaults
	l.v.SetDefault("service.shutdown_timeout", "30s")

	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "json")

	// API defaults
	l.v.SetDefault("api.listen_addr", ":8080")
	l.v.SetDefault("api.cors_origins", []string{"*"})

	// Database defaults
	l.v.SetDefault("db.path", "./data/panel.db")
	l.v.SetDefault("db.max_open_conns", 25)
	l.v.SetDefault("db.max_idle_conns", 5)
	l.v.SetDefault("db.conn_max_lifetime", 300)

	// Daemon transport defaults
	l.v.SetDefault("daemon.timeout", "8s")

	// Health sweep defaults
	l.v.SetDefault("health.interval", "30s")
	l.v.SetDefault("health.failure_threshold", 3)
	l.v.SetDefault("health.reset_timeout", "30s")

	// Hetzner defaults (provisioning stays disabled without an api_token)
	l.v.SetDefault("hetzner.server_type", "cx22")
	l.v.SetDefault("hetzner.image", "ubuntu-24.04")
	l.v.SetDefault("hetzner.location", "nbg1")
	l.v.SetDefault("hetzner.daemon_port", 8080)
}
