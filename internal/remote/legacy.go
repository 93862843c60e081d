package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/logging"
)

const (
	// DefaultLegacyPort is the TCP port of the pre-2014 remote protocol
	DefaultLegacyPort = 55000

	// DefaultKeyInterval is how long SendKey waits for the TV to accept a key
	DefaultKeyInterval = 200 * time.Millisecond

	// DefaultDialTimeout bounds TCP and WebSocket connection setup
	DefaultDialTimeout = 5 * time.Second
)

// LegacyConfig configures a LegacyChannel.
type LegacyConfig struct {
	Host string
	Port int

	// Description, ID and Name identify this remote in the TV's pairing
	// prompt and device list.
	Description string
	ID          string
	Name        string

	DialTimeout time.Duration
	KeyInterval time.Duration
}

func (c *LegacyConfig) applyDefaults() {
	hostname, _ := os.Hostname()
	if c.Port == 0 {
		c.Port = DefaultLegacyPort
	}
	if c.Description == "" {
		c.Description = hostname
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Name == "" {
		c.Name = hostname + ":" + c.ID
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.KeyInterval <= 0 {
		c.KeyInterval = DefaultKeyInterval
	}
}

// LegacyChannel speaks the binary protocol of TVs up to 2014.
type LegacyChannel struct {
	cfg    LegacyConfig
	logger *zap.Logger
	state  stateCell

	// sendMu allows one command in flight. Close does not take it.
	sendMu sync.Mutex

	connMu sync.Mutex
	conn   net.Conn

	closeOnce sync.Once
	tvName    string
}

// NewLegacyChannel creates an unconnected channel.
func NewLegacyChannel(cfg LegacyConfig, logger *zap.Logger) *LegacyChannel {
	cfg.applyDefaults()
	return &LegacyChannel{
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("legacy").With(zap.String("host", cfg.Host)),
	}
}

func (c *LegacyChannel) State() State { return c.state.load() }

// TVName is the name the TV reported during the handshake.
func (c *LegacyChannel) TVName() string {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.tvName
}

// Config returns the effective configuration, including generated defaults.
func (c *LegacyChannel) Config() LegacyConfig { return c.cfg }

// Connect dials the TV and pairs. It blocks while the TV shows its
// allow/deny prompt; cancel ctx to give up.
func (c *LegacyChannel) Connect(ctx context.Context) error {
	if !c.state.set(StateConnecting) {
		return NewConnectionClosedError("channel is closed")
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.Close()
		return NewNetworkError(c.cfg.Host, "failed to connect to "+addr, err)
	}
	if !c.attach(conn) {
		conn.Close()
		return NewConnectionClosedError("channel closed while connecting")
	}

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	pkt, err := handshakePacket(c.cfg.Description, c.cfg.ID, c.cfg.Name)
	if err != nil {
		c.Close()
		return err
	}

	c.logger.Info("sending handshake", zap.String("id", c.cfg.ID))
	logging.RawBytes(c.logger, "handshake packet", pkt)
	if _, err := conn.Write(pkt); err != nil {
		return c.ioFailure(ctx, "failed to send handshake", err)
	}
	c.state.set(StateAwaitingGrant)

	first := true
	for {
		name, resp, err := readResponse(conn)
		if err != nil {
			return c.ioFailure(ctx, "failed to read handshake response", err)
		}
		if first {
			c.connMu.Lock()
			c.tvName = name
			c.connMu.Unlock()
			c.logger.Debug("connected", zap.String("tv", name))
		}
		logging.RawBytes(c.logger, "handshake response", resp)

		switch o := classifyResponse(resp); o {
		case outcomeGranted, outcomeAccepted:
			c.state.set(StateAuthorized)
			c.logger.Debug("access granted")
			return nil
		case outcomePending:
			if first {
				c.logger.Warn("waiting for authorization on the TV")
			}
			first = false
		default:
			return c.protocolFailure(o, resp)
		}
	}
}

// SendKey sends one key press and waits up to the key interval for the TV
// to accept it. No acceptance within the interval is not an error.
func (c *LegacyChannel) SendKey(ctx context.Context, key string) error {
	if s := c.State(); s != StateAuthorized {
		if s == StateClosed {
			return NewConnectionClosedError("channel is closed")
		}
		return NewConnectionClosedError("channel is not authorized (state " + s.String() + ")")
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	conn := c.current()
	if conn == nil || c.State() == StateClosed {
		return NewConnectionClosedError("channel is closed")
	}

	pkt, err := keyPacket(key)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	c.logger.Info("sending key", zap.String("key", key))
	logging.RawBytes(c.logger, "key packet", pkt)
	if _, err := conn.Write(pkt); err != nil {
		return c.ioFailure(ctx, "failed to send key", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.KeyInterval)); err != nil {
		return c.ioFailure(ctx, "failed to set read deadline", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, resp, err := readResponse(conn)
		if err != nil {
			if os.IsTimeout(err) && ctx.Err() == nil && c.State() != StateClosed {
				c.logger.Debug("no acknowledgement within key interval", zap.String("key", key))
				return nil
			}
			return c.ioFailure(ctx, "failed to read key response", err)
		}
		logging.RawBytes(c.logger, "key response", resp)

		switch o := classifyResponse(resp); o {
		case outcomeAccepted, outcomeGranted:
			c.logger.Debug("key accepted", zap.String("key", key))
			return nil
		case outcomePending:
			continue
		default:
			return c.protocolFailure(o, resp)
		}
	}
}

// Close tears down the socket. It is safe to call more than once and from
// any goroutine.
func (c *LegacyChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.close()
		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()
		if conn != nil {
			err = conn.Close()
			c.logger.Debug("connection closed")
		}
	})
	return err
}

func (c *LegacyChannel) attach(conn net.Conn) bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.state.load() == StateClosed {
		return false
	}
	c.conn = conn
	return true
}

func (c *LegacyChannel) current() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// ioFailure closes the channel and maps a read or write error.
func (c *LegacyChannel) ioFailure(ctx context.Context, message string, err error) error {
	wasClosed := c.State() == StateClosed
	c.Close()

	switch {
	case wasClosed:
		return NewConnectionClosedError("channel is closed")
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return NewConnectionClosedError("connection closed by TV")
	default:
		return NewNetworkError(c.cfg.Host, message, err)
	}
}

// protocolFailure closes the channel and maps a non-success outcome.
func (c *LegacyChannel) protocolFailure(o outcome, resp []byte) error {
	c.Close()
	switch o {
	case outcomeDenied:
		return NewAccessDeniedError("connection was denied")
	case outcomeCancelled:
		c.logger.Warn("authorization cancelled")
		return NewAccessDeniedError("authorization was cancelled")
	case outcomeClosed:
		return NewConnectionClosedError("connection closed by TV")
	default:
		return NewUnhandledResponseError(resp)
	}
}
