package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/empire-trade/internal/socketio"
)

// defaultStaleAfter applies when the server does not announce ping timings.
const defaultStaleAfter = 45 * time.Second

// Client represents a single Socket.IO connection over a websocket.
type Client interface {
	// Connect dials the socket and joins the namespace.
	Connect(ctx context.Context) error

	// Close leaves the namespace and closes the connection.
	Close() error

	// Emit sends an event on the namespace.
	Emit(event string, data ...any) error

	// Events returns a channel of inbound namespace events.
	Events() <-chan Event

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn
	open socketio.Open

	// Output channels
	events chan Event
	errors chan error
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool
}

// NewClient creates a new socket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	return &client{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Connect dials the websocket, reads the Engine.IO handshake and joins the
// namespace.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	url, err := socketio.URL(c.cfg.URL, c.cfg.Path)
	if err != nil {
		return err
	}

	header := http.Header{}
	if c.cfg.UserAgent != "" {
		header.Set("User-Agent", c.cfg.UserAgent)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify, //nolint:gosec // the trade socket is reached without certificate checks
		},
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	// Abort a stuck handshake when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	open, err := c.handshake(conn)
	stop()
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.open = open
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.heartbeatLoop(conn)

	c.logger.Debug("socket connected",
		"url", url,
		"namespace", c.cfg.Namespace,
		"sid", open.SID,
	)

	return nil
}

// handshake reads the open packet, requests the namespace and waits for the
// server's answer.
func (c *client) handshake(conn *websocket.Conn) (socketio.Open, error) {
	if c.cfg.HandshakeTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
		defer conn.SetReadDeadline(time.Time{})
	}

	typ, payload, err := readFrame(conn)
	if err != nil {
		return socketio.Open{}, handshakeErr(err)
	}
	if typ != socketio.EngineOpen {
		return socketio.Open{}, fmt.Errorf("expected open packet, got %q", byte(typ))
	}
	open, err := socketio.ParseOpen(payload)
	if err != nil {
		return socketio.Open{}, err
	}

	pkt, err := socketio.NewConnect(c.cfg.Namespace, nil)
	if err != nil {
		return socketio.Open{}, err
	}
	if err := c.writePacket(conn, pkt); err != nil {
		return socketio.Open{}, fmt.Errorf("join namespace: %w", err)
	}

	for {
		typ, payload, err := readFrame(conn)
		if err != nil {
			return socketio.Open{}, handshakeErr(err)
		}

		switch typ {
		case socketio.EnginePing:
			if err := c.writeFrame(conn, socketio.EncodeEngine(socketio.EnginePong, payload)); err != nil {
				return socketio.Open{}, err
			}
		case socketio.EngineClose:
			return socketio.Open{}, ErrServerDisconnect
		case socketio.EngineMessage:
			p, err := socketio.Decode(string(payload))
			if err != nil || p.Namespace != c.namespace() {
				continue
			}
			switch p.Type {
			case socketio.Connect:
				return open, nil
			case socketio.ConnectError:
				return socketio.Open{}, fmt.Errorf("%w: %s", ErrConnectRejected, p.ErrorMessage())
			}
		}
	}
}

// Close leaves the namespace and closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wasConnected := c.connected
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	close(c.done)

	if conn == nil {
		return nil
	}

	if wasConnected {
		_ = c.writePacket(conn, socketio.Packet{Type: socketio.Disconnect, Namespace: c.cfg.Namespace})
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// Emit sends an event on the namespace.
func (c *client) Emit(event string, data ...any) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	pkt, err := socketio.NewEvent(c.cfg.Namespace, event, data...)
	if err != nil {
		return err
	}
	return c.writePacket(conn, pkt)
}

// Events returns the events channel.
func (c *client) Events() <-chan Event {
	return c.events
}

// Errors returns the errors channel.
func (c *client) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads frames, answers pings and forwards namespace events.
func (c *client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		typ, payload, err := readFrame(conn)
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
				c.fail(err)
				return
			}
		}

		switch typ {
		case socketio.EnginePing:
			c.mu.Lock()
			c.lastPingAt = receivedAt
			c.mu.Unlock()

			if err := c.writeFrame(conn, socketio.EncodeEngine(socketio.EnginePong, payload)); err != nil {
				c.logger.Debug("failed to send pong", "error", err)
			}

		case socketio.EngineClose:
			c.fail(ErrServerDisconnect)
			return

		case socketio.EngineMessage:
			if done := c.handlePacket(payload, receivedAt); done {
				return
			}
		}
	}
}

// handlePacket routes one Socket.IO packet. It reports true when the
// namespace was closed by the server.
func (c *client) handlePacket(payload []byte, receivedAt time.Time) bool {
	p, err := socketio.Decode(string(payload))
	if err != nil {
		c.logger.Debug("dropping undecodable packet", "error", err)
		return false
	}
	if p.Namespace != c.namespace() {
		return false
	}

	switch p.Type {
	case socketio.Event:
		name, args, err := p.Event()
		if err != nil {
			c.logger.Debug("dropping malformed event", "error", err)
			return false
		}

		select {
		case c.events <- Event{Name: name, Args: args, ReceivedAt: receivedAt}:
		case <-c.done:
			return true
		default:
			c.logger.Warn("event buffer full, dropping event", "event", name)
		}

	case socketio.Disconnect:
		c.fail(ErrServerDisconnect)
		return true

	case socketio.ConnectError:
		c.fail(fmt.Errorf("%w: %s", ErrConnectRejected, p.ErrorMessage()))
		return true
	}
	return false
}

// heartbeatLoop monitors for stale connections. Engine.IO v4 servers ping;
// clients only answer.
func (c *client) heartbeatLoop(conn *websocket.Conn) {
	c.mu.RLock()
	staleAfter := time.Duration(c.open.PingInterval+c.open.PingTimeout) * time.Millisecond
	c.mu.RUnlock()
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	ticker := time.NewTicker(staleAfter / 4)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			lastPing := c.lastPingAt
			connected := c.connected
			c.mu.RUnlock()

			if !connected {
				return
			}

			if time.Since(lastPing) > staleAfter {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", staleAfter,
				)
				c.fail(ErrStaleConnection)
				conn.Close()
				return
			}
		}
	}
}

// fail reports err once on the errors channel.
func (c *client) fail(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

func (c *client) namespace() string {
	if c.cfg.Namespace == "" {
		return "/"
	}
	return c.cfg.Namespace
}

func (c *client) writePacket(conn *websocket.Conn, p socketio.Packet) error {
	return c.writeFrame(conn, socketio.EncodeEngine(socketio.EngineMessage, []byte(socketio.Encode(p))))
}

func (c *client) writeFrame(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func readFrame(conn *websocket.Conn) (socketio.EngineType, []byte, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	return socketio.DecodeEngine(data)
}

func handshakeErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrHandshakeTimeout
	}
	return fmt.Errorf("socket handshake: %w", err)
}
