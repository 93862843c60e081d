package tv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tya/samsungctl/internal/config"
	"github.com/tya/samsungctl/internal/discovery"
	"github.com/tya/samsungctl/internal/logging"
	"github.com/tya/samsungctl/internal/remote"
	"github.com/tya/samsungctl/internal/upnp"
)

var (
	// ErrNotSupported is returned by property calls the session has no
	// UPnP service for.
	ErrNotSupported = errors.New("not supported by this TV")

	// ErrSourceNotFound is returned when no input source matches.
	ErrSourceNotFound = errors.New("source not found")
)

// Options configure Open.
type Options struct {
	// Config supplies host, method, ports and client identity. Required.
	Config *config.Config

	// Locations from discovery. When set, the UPnP control model is
	// loaded and Config.Host may be empty.
	Locations *discovery.Locations

	// Tokens for the WebSocket channel. When nil, Config.TokenFile or the
	// default token path is opened. Open takes ownership of the store and
	// closes it on failure, when the legacy protocol is selected, or with
	// the session.
	Tokens remote.TokenStore

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Devices are the UPnP description documents of one TV. Any may be nil.
type Devices struct {
	MainTVServer   *upnp.Device
	MediaRenderer  *upnp.Device
	RemoteReceiver *upnp.Device
}

// All returns the non-nil devices in lookup order.
func (d Devices) All() []*upnp.Device {
	var out []*upnp.Device
	for _, dev := range []*upnp.Device{d.MainTVServer, d.MediaRenderer, d.RemoteReceiver} {
		if dev != nil {
			out = append(out, dev)
		}
	}
	return out
}

// Session is one connected TV.
type Session struct {
	cfg     *config.Config
	host    string
	method  string
	channel remote.Channel
	devices Devices
	client  *http.Client
	logger  *zap.Logger

	mu      sync.Mutex
	sources map[int]Source
}

// Open describes the TV (when Locations are given), selects a protocol,
// and connects the command channel. It blocks while the TV asks for
// pairing approval.
func Open(ctx context.Context, opts Options) (*Session, error) {
	fail := func(err error) (*Session, error) {
		if opts.Tokens != nil {
			opts.Tokens.Close()
		}
		return nil, err
	}

	if opts.Config == nil {
		return fail(errors.New("config is required"))
	}
	if err := opts.Config.Validate(); err != nil {
		return fail(fmt.Errorf("invalid config: %w", err))
	}
	logger := logging.OrNop(opts.Logger).Named("session")

	host := opts.Config.Host
	if host == "" && opts.Locations != nil {
		host = opts.Locations.Address
	}
	if host == "" {
		return fail(errors.New("no TV host configured or discovered"))
	}

	var devices Devices
	if opts.Locations != nil {
		var err error
		devices, err = DescribeAll(ctx, upnpClient(opts.HTTPClient, logger), opts.Locations)
		if err != nil {
			return fail(err)
		}
	}

	s := newSession(opts.Config, host, devices, opts.HTTPClient, logger)

	year := 0
	if opts.Config.ResolvedMethod() == "" && devices.MainTVServer != nil {
		y, err := s.Year(ctx)
		if err != nil {
			logger.Warn("failed to read model year, assuming WebSocket", zap.Error(err))
		}
		year = y
	}
	s.method = SelectProtocol(opts.Config, year)
	logger.Info("selected protocol", zap.String("host", host), zap.String("method", s.method), zap.Int("year", year))

	ch, err := s.newChannel(opts.Tokens)
	if err != nil {
		return fail(err)
	}
	s.channel = ch

	if err := ch.Connect(ctx); err != nil {
		ch.Close()
		return nil, err
	}
	return s, nil
}

// NewSession wraps an existing channel. devices may be empty and ch may be
// nil for a session that only uses the UPnP control model.
func NewSession(cfg *config.Config, host string, ch remote.Channel, devices Devices, logger *zap.Logger) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	s := newSession(cfg, host, devices, nil, logging.OrNop(logger).Named("session"))
	s.channel = ch
	return s
}

func newSession(cfg *config.Config, host string, devices Devices, client *http.Client, logger *zap.Logger) *Session {
	if client == nil {
		client = &http.Client{Timeout: upnp.DefaultTimeout}
	}
	return &Session{
		cfg:     cfg,
		host:    host,
		devices: devices,
		client:  client,
		logger:  logger,
		sources: make(map[int]Source),
	}
}

func upnpClient(httpClient *http.Client, logger *zap.Logger) *upnp.Client {
	c := upnp.NewClient(logger)
	if httpClient != nil {
		c.HTTPClient = httpClient
	}
	return c
}

// DescribeAll loads the three description documents concurrently. A
// missing location leaves the matching device nil.
func DescribeAll(ctx context.Context, client *upnp.Client, loc *discovery.Locations) (Devices, error) {
	var devices Devices
	g, gctx := errgroup.WithContext(ctx)

	describe := func(location string, dst **upnp.Device) {
		if location == "" {
			return
		}
		g.Go(func() error {
			d, err := client.DescribeURL(gctx, location)
			if err != nil {
				return fmt.Errorf("failed to describe %s: %w", location, err)
			}
			*dst = d
			return nil
		})
	}
	describe(loc.MainTVServer(), &devices.MainTVServer)
	describe(loc.MediaRenderer(), &devices.MediaRenderer)
	describe(loc.RemoteControlReceiver(), &devices.RemoteReceiver)

	if err := g.Wait(); err != nil {
		return Devices{}, err
	}
	return devices, nil
}

// DeviceID is the id used to key pairing tokens: the configured one, the
// TV's Samsung device id, or the host.
func (s *Session) DeviceID() string {
	if s.cfg.DeviceID != "" {
		return s.cfg.DeviceID
	}
	for _, d := range s.devices.All() {
		if d.DeviceID != "" {
			return d.DeviceID
		}
	}
	return s.host
}

func (s *Session) newChannel(tokens remote.TokenStore) (remote.Channel, error) {
	if s.method == config.MethodLegacy {
		if tokens != nil {
			tokens.Close()
		}
		return remote.NewLegacyChannel(legacyConfig(s.cfg, s.host), s.logger), nil
	}

	if tokens == nil {
		path := s.cfg.TokenFile
		if path == "" {
			var err error
			if path, err = config.DefaultTokenPath(); err != nil {
				return nil, fmt.Errorf("failed to locate token file: %w", err)
			}
		}
		store, err := remote.OpenTokenStore(path)
		if err != nil {
			return nil, err
		}
		tokens = store
	}

	wc := webSocketConfig(s.cfg, s.host, s.DeviceID(), tokens)
	wc.HTTPClient = s.client
	return remote.NewWebSocketChannel(wc, s.logger), nil
}

// Host is the TV's address.
func (s *Session) Host() string { return s.host }

// Method is the protocol the command channel speaks.
func (s *Session) Method() string { return s.method }

// Channel returns the command channel.
func (s *Session) Channel() remote.Channel { return s.channel }

// Devices returns the UPnP description documents.
func (s *Session) Devices() Devices { return s.devices }

// SendKey sends one remote-control key, e.g. "KEY_VOLUP".
func (s *Session) SendKey(ctx context.Context, key string) error {
	if s.channel == nil {
		return remote.NewConnectionClosedError("session has no command channel")
	}
	return s.channel.SendKey(ctx, key)
}

// Close closes the command channel. The session is unusable afterwards.
func (s *Session) Close() error {
	if s.channel == nil {
		return nil
	}
	return s.channel.Close()
}

// DeviceInfo queries the TV's /api/v2/ endpoint.
func (s *Session) DeviceInfo(ctx context.Context) (*remote.DeviceInfo, error) {
	return remote.FetchDeviceInfo(ctx, s.client, s.host, s.cfg.HTTPPort)
}

// Invoke calls any action by service name, searching the main TV server,
// media renderer and remote receiver in that order.
func (s *Session) Invoke(ctx context.Context, service, action string, params map[string]any) (map[string]any, error) {
	for _, d := range s.devices.All() {
		if svc, err := d.Service(service); err == nil {
			a, err := svc.Action(action)
			if err != nil {
				return nil, err
			}
			return a.Invoke(ctx, params)
		}
	}
	return nil, fmt.Errorf("service %s: %w", service, ErrNotSupported)
}

func (s *Session) String() string {
	out := fmt.Sprintf("TV at %s (%s)\n", s.host, s.method)
	for _, d := range s.devices.All() {
		out += "\n" + d.String()
	}
	return out
}
