package config

import (
	"fmt"
	"os"
	"time"
)

// Command channel methods accepted in the method field.
const (
	MethodLegacy    = "legacy"
	MethodWebSocket = "websocket"
)

// Well-known ports that imply a method when method is unset.
const (
	LegacyPort       = 55000
	WebSocketPort    = 8001
	WebSocketTLSPort = 8002
)

// Config describes one television and how to talk to it.
type Config struct {
	Name        string  `yaml:"name,omitempty" json:"name,omitempty"`               // Display name shown on the TV when pairing
	Description string  `yaml:"description,omitempty" json:"description,omitempty"` // Legacy handshake description (defaults to hostname)
	Host        string  `yaml:"host,omitempty" json:"host,omitempty"`
	Port        int     `yaml:"port,omitempty" json:"port,omitempty"`
	ID          string  `yaml:"id,omitempty" json:"id,omitempty"`           // Client id sent in the legacy handshake
	Method      string  `yaml:"method,omitempty" json:"method,omitempty"`   // "legacy", "websocket" or empty for auto
	Timeout     float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"` // Seconds; 0 keeps per-component defaults
	DeviceID    string  `yaml:"device_id,omitempty" json:"device_id,omitempty"`
	HTTPPort    int     `yaml:"http_port,omitempty" json:"http_port,omitempty"` // Plain WebSocket and /api/v2/ port (default 8001)
	TokenFile   string  `yaml:"token_file,omitempty" json:"token_file,omitempty"`
	LogLevel    string  `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// Default returns a configuration with the description set to the hostname.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Description == "" {
		if host, err := os.Hostname(); err == nil {
			c.Description = host
		} else {
			c.Description = "samsungctl"
		}
	}
}

// TimeoutDuration converts the Timeout field to a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}

// ResolvedMethod returns the declared method, or the one implied by Port.
// It returns "" when neither decides.
func (c *Config) ResolvedMethod() string {
	if c.Method != "" {
		return c.Method
	}
	switch c.Port {
	case LegacyPort:
		return MethodLegacy
	case WebSocketPort, WebSocketTLSPort:
		return MethodWebSocket
	}
	return ""
}

// Validate checks field values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Method {
	case "", MethodLegacy, MethodWebSocket:
	default:
		return fmt.Errorf("unknown method %q (expected %q or %q)", c.Method, MethodLegacy, MethodWebSocket)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", c.HTTPPort)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
