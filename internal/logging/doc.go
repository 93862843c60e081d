// Package logging builds the zap loggers handed to every samsungctl component.
//
// There is no package-level logger. Callers construct one with New and pass it
// into the discovery engine, the UPnP client, the command channels and the
// session; components treat a nil logger as zap.NewNop().
//
// # Log Levels
//
//   - Debug: raw SSDP datagrams, legacy frames (hex + ascii), WebSocket payloads
//   - Info: connections, handshakes, key presses
//   - Warn: pending authorization, cancelled pairing, unexpected events
//   - Error: failures surfaced to the caller
//
// # Configuration
//
// The level comes from the argument to New, falling back to the
// SAMSUNGCTL_LOG_LEVEL environment variable. With neither set the returned
// logger is silent, which is what a library embedded in another program wants:
//
//	logger, err := logging.New("debug")
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = logger.Sync() }()
//
// # Byte Dumps
//
// RawBytes logs a labelled hex and ascii rendering of a buffer at debug level,
// truncated to 256 bytes. It costs nothing when debug is disabled.
package logging
