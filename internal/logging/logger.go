package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar is the environment variable consulted when New is called
// with an empty level.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "SAMSUNGCTL_LOG_LEVEL"

// maxDump caps how many bytes RawBytes renders.
const maxDump = 256

// New creates a logger with the specified level.
// If level is empty, it checks the SAMSUNGCTL_LOG_LEVEL environment variable.
// If neither is set, a no-op logger is returned.
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		return zap.NewNop(), nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("samsungctl"), nil
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// OrNop returns logger, or a no-op logger when logger is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// RawBytes logs raw bytes at debug level (useful for debugging protocol issues)
func RawBytes(logger *zap.Logger, label string, data []byte) {
	if logger == nil || !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	logger.Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", HexDump(data)),
		zap.String("ascii", ASCIIDump(data)),
	)
}

// HexDump renders at most 256 bytes as hex, marking truncation with "...".
func HexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDump {
		return hex.EncodeToString(data[:maxDump]) + "..."
	}
	return hex.EncodeToString(data)
}

// ASCIIDump renders at most 256 bytes with non-printable bytes shown as '.'.
func ASCIIDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDump {
		data = data[:maxDump]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}
