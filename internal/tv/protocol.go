package tv

import (
	"github.com/tya/samsungctl/internal/config"
	"github.com/tya/samsungctl/internal/remote"
)

// LastLegacyYear is the newest model year that only speaks the legacy protocol.
const LastLegacyYear = 2014

// SelectProtocol returns config.MethodLegacy or config.MethodWebSocket.
// A method or port in cfg wins; otherwise year decides, and an unknown
// year (0) selects WebSocket.
func SelectProtocol(cfg *config.Config, year int) string {
	if cfg != nil {
		if m := cfg.ResolvedMethod(); m != "" {
			return m
		}
	}
	if year > 0 && year <= LastLegacyYear {
		return config.MethodLegacy
	}
	return config.MethodWebSocket
}

// legacyConfig maps the session configuration onto a legacy channel.
func legacyConfig(cfg *config.Config, host string) remote.LegacyConfig {
	lc := remote.LegacyConfig{
		Host:        host,
		Description: cfg.Description,
		ID:          cfg.ID,
		Name:        cfg.Name,
		DialTimeout: cfg.TimeoutDuration(),
	}
	if cfg.Port != 0 && cfg.Port != config.WebSocketPort && cfg.Port != config.WebSocketTLSPort {
		lc.Port = cfg.Port
	}
	return lc
}

// webSocketConfig maps the session configuration onto a WebSocket channel.
// Port selects the TLS port unless it is the plain one; HTTPPort always
// sets the plain port.
func webSocketConfig(cfg *config.Config, host, deviceID string, tokens remote.TokenStore) remote.WebSocketConfig {
	wc := remote.WebSocketConfig{
		Host:           host,
		Name:           cfg.Name,
		DeviceID:       deviceID,
		ConnectTimeout: cfg.TimeoutDuration(),
		Tokens:         tokens,
	}
	switch {
	case cfg.Port == config.WebSocketPort:
		wc.Port = cfg.Port
	case cfg.Port != 0 && cfg.Port != config.LegacyPort:
		wc.TLSPort = cfg.Port
	}
	if cfg.HTTPPort != 0 {
		wc.Port = cfg.HTTPPort
	}
	return wc
}
