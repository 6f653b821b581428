// This file contains the remote device configuration and YAML loader.
package remote

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default resource bounds.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultCommandTimeout   = 30 * time.Second
	DefaultMaxResponseBytes = 1 << 20
)

// Config describes how to reach the remote signing device. It is supplied by
// the caller at construction time; the client never reads global state.
type Config struct {
	// Host and Port address the device over TCP.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// SocketPath addresses the device over a local stream socket.
	// When set, Host and Port are ignored and responses are newline-framed.
	SocketPath string `yaml:"socket_path"`

	// SoftCardRoot is the directory tree scanned for softcards.
	SoftCardRoot string `yaml:"softcard_root"`

	// CardName and PassphraseEnv supply the authentication credentials for
	// signing. The passphrase itself is only ever read from the named
	// environment variable, never from the file.
	CardName      string `yaml:"card_name"`
	PassphraseEnv string `yaml:"passphrase_env"`

	// ConnectTimeout bounds transport establishment.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// CommandTimeout bounds each request/response exchange.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// MaxResponseBytes caps response buffering. The device protocol has no
	// length prefix on responses, so this is the only memory bound; overflow
	// is a framing error.
	MaxResponseBytes int `yaml:"max_response_bytes"`
}

// LoadConfig loads a remote device configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse remote config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid remote config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration addresses a device.
func (c *Config) Validate() error {
	if c.SocketPath == "" && c.Host == "" {
		return fmt.Errorf("either socket_path or host is required")
	}
	if c.SocketPath == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.ConnectTimeout < 0 || c.CommandTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Passphrase reads the card passphrase from the configured environment
// variable. Returns empty when no variable is configured.
func (c *Config) Passphrase() (string, error) {
	if c.PassphraseEnv == "" {
		return "", nil
	}
	passphrase := os.Getenv(c.PassphraseEnv)
	if passphrase == "" {
		return "", fmt.Errorf("environment variable %s is not set or empty", c.PassphraseEnv)
	}
	return passphrase, nil
}

// withDefaults returns a copy with unset bounds filled in.
func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return c
}
