// Package config loads and saves samsungctl session configuration.
//
// A configuration names one television: where it lives, which command channel
// protocol to use, and how this client identifies itself during pairing. The
// file is YAML; because YAML is a superset of JSON, configuration files written
// as JSON objects load unchanged.
//
// # File Location
//
// The default directory follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/samsungctl or $HOME/.config/samsungctl
//   - macOS: $HOME/.config/samsungctl
//   - Windows: %LOCALAPPDATA%\samsungctl
//
// The same directory holds token.dat, the WebSocket pairing token cache.
//
// # Usage Example
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	cfg.Host = "192.168.1.63"
//	if err := cfg.Save(path); err != nil {
//	    return err
//	}
//
// Save writes to a temporary file and renames it over the target.
package config
