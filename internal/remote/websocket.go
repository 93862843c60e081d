package remote

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/logging"
)

const (
	// DefaultWebSocketPort serves ws:// and the /api/v2/ device info
	DefaultWebSocketPort = 8001

	// DefaultWebSocketTLSPort serves wss:// on token-capable TVs
	DefaultWebSocketTLSPort = 8002

	// DefaultAuthTimeout is how long Connect waits for the TV to authorize
	DefaultAuthTimeout = 30 * time.Second

	// DefaultAckTimeout is how long SendKey waits for any inbound message
	DefaultAckTimeout = 500 * time.Millisecond

	eventConnect      = "ms.channel.connect"
	eventUnauthorized = "ms.channel.unauthorized"
	remoteChannelPath = "/api/v2/channels/samsung.remote.control"
)

// WebSocketConfig configures a WebSocketChannel.
type WebSocketConfig struct {
	Host string

	// Name is shown in the TV's pairing prompt.
	Name string

	// DeviceID keys the pairing token in Tokens.
	DeviceID string

	// Port serves ws:// and device info; TLSPort serves wss://.
	Port    int
	TLSPort int

	ConnectTimeout time.Duration
	AuthTimeout    time.Duration
	AckTimeout     time.Duration

	// Tokens is owned by the channel and closed with it. May be nil.
	Tokens TokenStore

	// HTTPClient is used for the capability check.
	HTTPClient *http.Client

	// TLSConfig for wss://. TVs present self-signed certificates, so the
	// default skips verification.
	TLSConfig *tls.Config
}

func (c *WebSocketConfig) applyDefaults() {
	if c.Name == "" {
		hostname, _ := os.Hostname()
		c.Name = hostname
	}
	if c.DeviceID == "" {
		c.DeviceID = c.Host
	}
	if c.Port == 0 {
		c.Port = DefaultWebSocketPort
	}
	if c.TLSPort == 0 {
		c.TLSPort = DefaultWebSocketTLSPort
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultDialTimeout
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = DefaultAuthTimeout
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.ConnectTimeout}
	}
	if c.TLSConfig == nil {
		c.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
}

// WebSocketChannel speaks the JSON remote protocol of 2016+ TVs.
type WebSocketChannel struct {
	cfg    WebSocketConfig
	logger *zap.Logger
	state  stateCell

	sendMu sync.Mutex

	mu   sync.Mutex
	conn *websocket.Conn

	authorized      chan struct{}
	authorizeOnce   sync.Once
	unauthorized    chan struct{}
	unauthorizeOnce sync.Once
	received        chan struct{}
	closed          chan struct{}
	closeOnce       sync.Once
	closeErr        error
}

// NewWebSocketChannel creates an unconnected channel.
func NewWebSocketChannel(cfg WebSocketConfig, logger *zap.Logger) *WebSocketChannel {
	cfg.applyDefaults()
	return &WebSocketChannel{
		cfg:          cfg,
		logger:       logging.OrNop(logger).Named("websocket").With(zap.String("host", cfg.Host)),
		authorized:   make(chan struct{}),
		unauthorized: make(chan struct{}),
		received:     make(chan struct{}, 1),
		closed:       make(chan struct{}),
	}
}

func (c *WebSocketChannel) State() State { return c.state.load() }

// remoteURL builds the channel URL. token is only appended when non-empty.
func remoteURL(scheme, host string, port int, name, token string) string {
	q := "name=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(name)))
	if token != "" {
		q += "&token=" + url.QueryEscape(token)
	}
	return fmt.Sprintf("%s://%s%s?%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)), remoteChannelPath, q)
}

// endpoint decides scheme, port and token. A stored token skips the capability check.
func (c *WebSocketChannel) endpoint(ctx context.Context) (scheme string, port int, token string, openAuthorizes bool) {
	if c.cfg.Tokens != nil {
		tok, ok, err := c.cfg.Tokens.Token(c.cfg.DeviceID)
		if err != nil {
			c.logger.Warn("failed to read token store", zap.Error(err))
		}
		if ok && tok != "" {
			c.logger.Debug("using stored token")
			return "wss", c.cfg.TLSPort, tok, false
		}
	}

	info, err := FetchDeviceInfo(ctx, c.cfg.HTTPClient, c.cfg.Host, c.cfg.Port)
	if err != nil {
		c.logger.Debug("capability check failed, assuming no token support", zap.Error(err))
		return "ws", c.cfg.Port, "", true
	}
	if info.TokenAuthSupported() {
		return "wss", c.cfg.TLSPort, "", false
	}
	return "ws", c.cfg.Port, "", true
}

// Connect opens the socket and waits for authorization. On a token-capable
// TV the first connection shows a prompt; the issued token is saved so
// later connections skip it.
func (c *WebSocketChannel) Connect(ctx context.Context) error {
	if !c.state.set(StateResolvingCapability) {
		return NewConnectionClosedError("channel is closed")
	}

	scheme, port, token, openAuthorizes := c.endpoint(ctx)
	target := remoteURL(scheme, c.cfg.Host, port, c.cfg.Name, token)

	c.state.set(StateConnecting)
	c.logger.Info("connecting", zap.String("scheme", scheme), zap.Int("port", port))

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.ConnectTimeout,
		TLSClientConfig:  c.cfg.TLSConfig,
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	conn, _, err := dialer.DialContext(dialCtx, target, nil)
	cancel()
	if err != nil {
		c.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewNetworkError(c.cfg.Host, "websocket connection failed", err)
	}

	c.mu.Lock()
	if c.State() == StateClosed {
		c.mu.Unlock()
		conn.Close()
		return NewConnectionClosedError("channel closed while connecting")
	}
	c.conn = conn
	c.mu.Unlock()

	if openAuthorizes {
		go c.readLoop(conn)
		c.markAuthorized()
		c.state.set(StateAuthorized)
		c.logger.Info("access granted")
		return nil
	}

	// Set before the reader starts so an early refusal is not overwritten.
	c.state.set(StateAwaitingAuthorization)
	go c.readLoop(conn)

	timer := time.NewTimer(c.cfg.AuthTimeout)
	defer timer.Stop()

	select {
	case <-c.authorized:
		c.state.set(StateAuthorized)
		c.logger.Info("access granted")
		return nil
	case <-timer.C:
		if c.refused() {
			c.dropConn()
			return NewAuthorizationTimeoutError("TV refused authorization")
		}
		c.Close()
		return NewAuthorizationTimeoutError(fmt.Sprintf("not authorized within %s", c.cfg.AuthTimeout))
	case <-c.closed:
		return NewConnectionClosedError("connection closed before authorization")
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	}
}

type event struct {
	Event string    `json:"event"`
	Data  eventData `json:"data"`
}

type eventData struct {
	Token json.RawMessage `json:"token"`
}

// token accepts the token as a JSON string or number.
func (d eventData) token() string {
	raw := strings.TrimSpace(string(d.Token))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Token, &s); err == nil {
		return s
	}
	return raw
}

func (c *WebSocketChannel) readLoop(conn *websocket.Conn) {
	defer func() {
		// The socket is gone; a closed channel stays closed, anything else
		// can no longer send.
		if !c.refused() {
			c.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.State() != StateClosed {
				c.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		c.logger.Debug("incoming message", zap.ByteString("message", data))

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Debug("ignoring non-JSON message", zap.Error(err))
			c.signalReceived()
			continue
		}

		switch ev.Event {
		case eventConnect:
			if tok := ev.Data.token(); tok != "" && c.cfg.Tokens != nil {
				if err := c.cfg.Tokens.SetToken(c.cfg.DeviceID, tok); err != nil {
					c.logger.Warn("failed to save token", zap.Error(err))
				} else {
					c.logger.Info("saved pairing token", zap.String("device_id", c.cfg.DeviceID))
				}
			}
			c.markAuthorized()
			c.signalReceived()
		case eventUnauthorized:
			c.markUnauthorized()
		default:
			c.signalReceived()
		}
	}
}

func (c *WebSocketChannel) markAuthorized() {
	if c.refused() {
		return
	}
	c.authorizeOnce.Do(func() { close(c.authorized) })
}

func (c *WebSocketChannel) markUnauthorized() {
	c.unauthorizeOnce.Do(func() {
		close(c.unauthorized)
		c.state.set(StateUnauthorized)
		c.logger.Warn("TV refused authorization")
	})
}

func (c *WebSocketChannel) refused() bool {
	select {
	case <-c.unauthorized:
		return true
	default:
		return false
	}
}

func (c *WebSocketChannel) signalReceived() {
	select {
	case c.received <- struct{}{}:
	default:
	}
}

type keyCommand struct {
	Method string      `json:"method"`
	Params keyCommandP `json:"params"`
}

type keyCommandP struct {
	Cmd          string `json:"Cmd"`
	DataOfCmd    string `json:"DataOfCmd"`
	Option       string `json:"Option"`
	TypeOfRemote string `json:"TypeOfRemote"`
}

func keyMessage(key string) ([]byte, error) {
	return json.Marshal(keyCommand{
		Method: "ms.remote.control",
		Params: keyCommandP{
			Cmd:          "Click",
			DataOfCmd:    key,
			Option:       "false",
			TypeOfRemote: "SendRemoteKey",
		},
	})
}

// SendKey sends one key press, then waits up to the ack timeout for any
// inbound message. The protocol has no per-command reply, so silence is
// not an error.
func (c *WebSocketChannel) SendKey(ctx context.Context, key string) error {
	if s := c.State(); s != StateAuthorized {
		if s == StateClosed {
			return NewConnectionClosedError("channel is closed")
		}
		return NewConnectionClosedError("channel is not authorized (state " + s.String() + ")")
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.State() == StateClosed {
		return NewConnectionClosedError("channel is closed")
	}

	payload, err := keyMessage(key)
	if err != nil {
		return fmt.Errorf("failed to encode key command: %w", err)
	}

	select {
	case <-c.received:
	default:
	}

	c.logger.Info("sending key", zap.String("key", key))
	c.logger.Debug("command data", zap.ByteString("payload", payload))
	conn.SetWriteDeadline(time.Now().Add(c.cfg.ConnectTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if c.State() == StateClosed {
			return NewConnectionClosedError("channel is closed")
		}
		c.Close()
		return NewNetworkError(c.cfg.Host, "failed to send key", err)
	}

	timer := time.NewTimer(c.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case <-c.received:
	case <-timer.C:
	case <-c.closed:
		return NewConnectionClosedError("channel closed while sending")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// dropConn closes the socket without leaving the current state.
func (c *WebSocketChannel) dropConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

// Close closes the socket and the token store. It is safe to call more
// than once and from any goroutine.
func (c *WebSocketChannel) Close() error {
	c.closeOnce.Do(func() {
		c.state.close()
		close(c.closed)
		c.dropConn()
		if c.cfg.Tokens != nil {
			c.closeErr = c.cfg.Tokens.Close()
		}
		c.logger.Debug("connection closed")
	})
	return c.closeErr
}
