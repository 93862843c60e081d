// Samsungctl controls Samsung televisions over the local network.
//
// It finds TVs with SSDP (and mDNS as a hint), sends remote-control keys
// over the legacy binary protocol or the WebSocket protocol depending on the
// model year, and reads or changes volume, mute, input source and picture
// settings through the TV's UPnP services.
//
// Usage:
//
//	samsungctl [command] [flags]
//
// Settings are read from the config file (see 'samsungctl --help') and can
// be overridden with flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/config"
	"github.com/tya/samsungctl/internal/logging"
	"github.com/tya/samsungctl/internal/version"
)

// Global flags
var (
	configPath string
	host       string
	port       int
	method     string
	remoteName string
	timeout    float64
	tokenFile  string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		if _, shown := err.(reportedError); !shown {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "samsungctl",
	Short: "Remote control for Samsung TVs",
	Long: `Control Samsung televisions over the local network.

Older TVs (2014 and earlier) are driven over the legacy binary protocol on
port 55000, newer ones over the WebSocket remote API on ports 8001/8002.
The protocol is picked from the config, the port, or the model year the TV
reports.

Without --host the first TV answering SSDP discovery is used.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup(cmd)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: <config dir>/config.yaml)")
	pf.StringVar(&host, "host", "", "TV address (skips discovery of other TVs)")
	pf.IntVar(&port, "port", 0, "Remote control port (55000 legacy, 8001/8002 websocket)")
	pf.StringVar(&method, "method", "", `Remote protocol: "legacy", "websocket" or empty for auto`)
	pf.StringVar(&remoteName, "name", "", "Name shown on the TV when pairing")
	pf.Float64Var(&timeout, "timeout", 0, "Network timeout in seconds")
	pf.StringVar(&tokenFile, "token-file", "", "Pairing token file (.db selects the bolt store)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default silent")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the config file, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("method") {
		cfg.Method = method
	}
	if flags.Changed("name") {
		cfg.Name = remoteName
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("token-file") {
		cfg.TokenFile = tokenFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", zap.String("path", path), zap.String("host", cfg.Host))
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("samsungctl %s\n", version.Full())
	},
}
