package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/discovery"
	"github.com/tya/samsungctl/internal/remote"
	"github.com/tya/samsungctl/internal/tv"
	"github.com/tya/samsungctl/internal/ui"
	"github.com/tya/samsungctl/internal/upnp"
)

// discoverTimeout bounds the SSDP search used to locate the target TV.
var discoverTimeout time.Duration

func init() {
	rootCmd.PersistentFlags().DurationVar(&discoverTimeout, "discover-timeout", 4*time.Second, "How long to search for the TV")
}

// reportedError is an error whose failure box has already been printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// report prints a failure box for err and returns it marked as shown.
func report(title string, err error) error {
	if err == nil {
		return nil
	}
	fmt.Fprintln(os.Stderr, ui.NewFailureResult(title, err, troubleshooting(err)).Render())
	return reportedError{err}
}

// commandContext is cancelled on interrupt so a pending pairing prompt can
// be abandoned with Ctrl-C.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// locate runs SSDP discovery for the configured host, or for any TV when no
// host is set. A configured host that does not answer yields nil locations:
// the remote channel still works, only the UPnP control model is missing.
func locate(ctx context.Context) (*discovery.Locations, error) {
	engine := discovery.NewEngine(logger)
	engine.Target = cfg.Host

	seq, err := engine.Discover(ctx, discoverTimeout)
	if err != nil {
		if cfg.Host != "" {
			logger.Warn("discovery unavailable", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	for loc := range seq {
		return loc, nil
	}

	if cfg.Host != "" {
		logger.Info("TV did not answer discovery", zap.String("host", cfg.Host))
		return nil, nil
	}
	return nil, errors.New("no Samsung TV found on the network")
}

// openControl describes the TV without opening a remote channel.
func openControl(ctx context.Context) (*tv.Session, error) {
	loc, err := locate(ctx)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("TV at %s did not answer discovery: %w", cfg.Host, tv.ErrNotSupported)
	}

	devices, err := tv.DescribeAll(ctx, upnp.NewClient(logger), loc)
	if err != nil {
		return nil, err
	}
	h := cfg.Host
	if h == "" {
		h = loc.Address
	}
	return tv.NewSession(cfg, h, nil, devices, logger), nil
}

// openRemote describes the TV when it can and connects the remote channel,
// pairing if needed.
func openRemote(ctx context.Context) (*tv.Session, error) {
	loc, err := locate(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(os.Stderr, "Connecting (accept the remote on the TV if it asks)...")
	return tv.Open(ctx, tv.Options{Config: cfg, Locations: loc, Logger: logger})
}

// troubleshooting returns tips matching the kind of failure.
func troubleshooting(err error) []string {
	switch {
	case remote.IsAccessDenied(err):
		return []string{
			"The TV refused the remote; open the TV's device connection manager and allow it",
			"Remove the entry for this remote on the TV and pair again",
		}
	case remote.IsAuthorizationTimeout(err):
		return []string{
			"Nobody answered the pairing prompt on the TV in time",
			"Run the command again and accept the prompt",
		}
	case remote.IsUnhandledResponse(err):
		return []string{
			"The TV answered with an unknown code; re-run with --log-level debug to see the raw bytes",
			"Try forcing the other protocol with --method",
		}
	case remote.IsNetworkError(err):
		return []string{
			"Check that the TV is switched on and on the same network",
			"Newer TVs use --port 8001/8002, older ones --port 55000",
		}
	case errors.Is(err, tv.ErrNotSupported):
		return []string{
			"The TV did not expose the UPnP service for this command",
			"Increase --discover-timeout if the TV answers discovery slowly",
		}
	case upnp.IsValidationError(err):
		return []string{"Check the value against 'samsungctl actions'"}
	}
	return nil
}
