package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	"github.com/ylorant/HedgeBot-sub001/internal/platform/version"
	"github.com/ylorant/HedgeBot-sub001/internal/relay"
)

// Type is the registry tag of this adapter.
const Type = "socketio"

const (
	defaultPath    = "/socket.io/"
	defaultTimeout = 10 * time.Second

	// Connections older than this are recycled on the next keep-alive.
	maxConnectionAge = 24 * time.Hour

	eventName = "event"
)

// Engine.IO v3 / Socket.IO v2 packets as they appear in a WebSocket text frame.
const (
	packetOpen         = "0"
	packetClose        = "1"
	packetPing         = "2"
	packetPong         = "3"
	packetConnect      = "40"
	packetDisconnect   = "41"
	packetEvent        = "42"
	packetConnectError = "44"
)

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// Client relays events to a Socket.IO v2 server over a single WebSocket.
type Client struct {
	clock clockwork.Clock

	mu          sync.Mutex
	initialized bool
	endpoint    string
	timeout     time.Duration
	dialer      *websocket.Dialer
	conn        *websocket.Conn
	lastConnect time.Time

	available atomic.Bool
}

func New(clock clockwork.Clock) *Client {
	return &Client{clock: clock}
}

// Factory registers the adapter under Type. All instances share clock.
func Factory(clock clockwork.Clock) relay.Factory {
	return relay.Factory{
		Type: Type,
		New:  func() domain.RelayClient { return New(clock) },
	}
}

func (c *Client) Type() string { return Type }

// Initialize reads "host" (mandatory), "path" and "timeout".
func (c *Client) Initialize(cfg map[string]any) error {
	if err := relay.RequireKeys(Type, cfg, "host"); err != nil {
		return err
	}

	endpoint, err := buildEndpoint(relay.String(cfg, "host", ""), relay.String(cfg, "path", defaultPath))
	if err != nil {
		return fmt.Errorf("socketio relay: %w", err)
	}
	timeout, err := relay.Duration(cfg, "timeout", defaultTimeout)
	if err != nil {
		return fmt.Errorf("socketio relay: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.endpoint = endpoint
	c.timeout = timeout
	c.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	c.initialized = true
	return nil
}

// Connect dials the server and completes the Socket.IO handshake.
// It is a no-op while a connection is already held.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return domain.ErrRelayNotInitialized
	}
	if c.conn != nil {
		return nil
	}
	return c.connectLocked(ctx)
}

func (c *Client) IsAvailable() bool {
	return c.available.Load()
}

// KeepAlive sends a heartbeat and recycles the connection once it is older than a day.
func (c *Client) KeepAlive(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return domain.ErrRelayNotConnected
	}

	if err := c.writeLocked(packetPing); err != nil {
		c.closeLocked(false)
		return fmt.Errorf("heartbeat: %w", err)
	}

	if !c.clock.Now().After(c.lastConnect.Add(maxConnectionAge)) {
		return nil
	}

	slog.InfoContext(ctx, "Recycling Socket.IO connection",
		"endpoint", c.endpoint,
		"connected_since", c.lastConnect,
	)
	c.closeLocked(true)
	return c.connectLocked(ctx)
}

// Publish emits an "event" message. Delivery is best effort: failures are logged, never returned.
func (c *Client) Publish(ctx context.Context, listener string, event domain.Event) error {
	if endpoint, err := c.emit(listener, event); err != nil {
		slog.WarnContext(ctx, "Socket.IO publish failed",
			"endpoint", endpoint,
			"listener", listener,
			"event", event.Name(),
			"error", err,
		)
	}
	return nil
}

func (c *Client) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked(true)
	return nil
}

// LastConnectTime reports when the current connection was established.
func (c *Client) LastConnectTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastConnect
}

// emit writes one event frame and returns the endpoint it targeted.
func (c *Client) emit(listener string, event domain.Event) (string, error) {
	body, err := json.Marshal([]any{eventName, domain.NewRelayMessage(listener, event)})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		return c.endpoint, fmt.Errorf("encode event: %w", err)
	}
	if c.conn == nil {
		return c.endpoint, domain.ErrRelayNotConnected
	}
	if err := c.writeLocked(packetEvent + string(body)); err != nil {
		c.closeLocked(false)
		return c.endpoint, err
	}
	return c.endpoint, nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header := http.Header{"User-Agent": []string{version.UserAgent()}}
	conn, _, err := c.dialer.DialContext(dialCtx, c.endpoint, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	open, err := c.handshake(conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("handshake with %s: %w", c.endpoint, err)
	}

	c.conn = conn
	c.lastConnect = c.clock.Now()
	c.available.Store(true)

	idle := time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	go c.readLoop(conn, idle)

	slog.Info("Socket.IO relay connected", "endpoint", c.endpoint, "sid", open.SID)
	return nil
}

// handshake waits for the Engine.IO open packet followed by the default namespace connect.
func (c *Client) handshake(conn *websocket.Conn) (openPacket, error) {
	var open openPacket
	opened := false

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return open, err
		}
		msg := string(data)

		switch {
		case strings.HasPrefix(msg, packetOpen) && !opened:
			if err := json.Unmarshal(data[len(packetOpen):], &open); err != nil {
				return open, fmt.Errorf("decode open packet: %w", err)
			}
			opened = true
		case strings.HasPrefix(msg, packetConnectError):
			return open, fmt.Errorf("namespace connect refused: %s", msg[len(packetConnectError):])
		case strings.HasPrefix(msg, packetConnect):
			if !opened {
				return open, errors.New("namespace connect before open packet")
			}
			return open, nil
		case msg == packetClose:
			return open, errors.New("closed by server during handshake")
		}
	}
}

// readLoop drains server frames for conn and drops the connection once reading fails.
// Frames are the server's business except heartbeats and close requests.
func (c *Client) readLoop(conn *websocket.Conn, idle time.Duration) {
	for {
		if idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.dropIfCurrent(conn, err)
			return
		}

		switch string(data) {
		case packetPing:
			c.mu.Lock()
			if c.conn == conn {
				_ = c.writeLocked(packetPong)
			}
			c.mu.Unlock()
		case packetClose, packetDisconnect:
			c.dropIfCurrent(conn, errors.New("closed by server"))
			return
		}
	}
}

func (c *Client) dropIfCurrent(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}
	slog.Warn("Socket.IO relay connection lost", "endpoint", c.endpoint, "error", cause)
	c.closeLocked(false)
}

func (c *Client) writeLocked(msg string) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// closeLocked releases the connection. graceful leaves the namespace and sends a close frame first.
func (c *Client) closeLocked(graceful bool) {
	if c.conn == nil {
		return
	}

	if graceful {
		_ = c.writeLocked(packetDisconnect)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(c.timeout))
	}
	_ = c.conn.Close()

	c.conn = nil
	c.available.Store(false)
}

// buildEndpoint turns a host ("localhost:3000", "https://example.org") and a path into the WebSocket transport URL.
func buildEndpoint(host, path string) (string, error) {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid host %q", host)
	}

	if u.Path == "" || u.Path == "/" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u.Path = path
	}

	q := u.Query()
	q.Set("EIO", "3")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
