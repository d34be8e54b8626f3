package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/empire-trade/internal/api"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrHandshakeTimeout = errors.New("socket handshake timeout")
	ErrConnectRejected  = errors.New("namespace connect rejected")
	ErrServerDisconnect = errors.New("server closed the namespace")
	ErrUnavailable      = errors.New("realtime socket unavailable")
)

// Built-in and protocol event names.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"

	EventIdentify = "identify"
	EventInit     = "init"
)

// Event is an inbound socket event, or one of the connect/disconnect/
// connect_error lifecycle events raised by the Socket itself.
type Event struct {
	Name       string
	Args       []json.RawMessage
	ReceivedAt time.Time
}

// Decode unmarshals the first event argument into v.
func (e Event) Decode(v any) error {
	if len(e.Args) == 0 {
		return fmt.Errorf("event %q has no payload", e.Name)
	}
	return json.Unmarshal(e.Args[0], v)
}

// Reason returns the string argument of lifecycle events, if any.
func (e Event) Reason() string {
	var s string
	if len(e.Args) > 0 && json.Unmarshal(e.Args[0], &s) == nil {
		return s
	}
	return ""
}

// Handler receives socket events. Handlers run on the socket's single
// dispatch goroutine and must not block for long.
type Handler func(Event)

// IdentifyPayload is the body of the outbound "identify" event.
type IdentifyPayload struct {
	UID                int64    `json:"uid"`
	Model              api.User `json:"model"`
	AuthorizationToken string   `json:"authorizationToken"`
	Signature          string   `json:"signature"`
}

// InitEvent is the body of the inbound "init" event.
type InitEvent struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
}

// ParseInit validates and decodes an "init" payload. The authenticated flag
// is required.
func ParseInit(data json.RawMessage) (InitEvent, error) {
	var raw struct {
		Authenticated *bool   `json:"authenticated"`
		Name          *string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return InitEvent{}, fmt.Errorf("decode init: %w", err)
	}
	if raw.Authenticated == nil {
		return InitEvent{}, errors.New("init: missing authenticated flag")
	}

	ev := InitEvent{Authenticated: *raw.Authenticated}
	if raw.Name != nil {
		ev.Name = *raw.Name
	}
	return ev, nil
}

// ClientConfig configures a single websocket connection.
type ClientConfig struct {
	URL                string        // Socket base URL (e.g., wss://trade.csgoempire.com/trade)
	Path               string        // Engine.IO path (e.g., /s/)
	Namespace          string        // Socket.IO namespace (e.g., /trade)
	UserAgent          string        // Sent as the User-Agent header on the upgrade request
	InsecureSkipVerify bool          // Disables TLS certificate verification
	HandshakeTimeout   time.Duration // Dial + namespace join deadline
	WriteTimeout       time.Duration // Write deadline for sends
	BufferSize         int           // Event channel buffer size
}

// DefaultClientConfig returns the production trade socket settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:                "wss://trade.csgoempire.com/trade",
		Path:               "/s/",
		Namespace:          "/trade",
		UserAgent:          "empire-trade API Bot",
		InsecureSkipVerify: true,
		HandshakeTimeout:   20 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         1000,
	}
}

// SocketConfig configures the reconnecting Socket.
type SocketConfig struct {
	Client            ClientConfig
	Reconnect         bool          // Reconnect after a drop (socket.io default: on)
	ReconnectBaseWait time.Duration // First delay between attempts
	ReconnectMaxWait  time.Duration // Delay cap
	ReconnectAttempts int           // Consecutive failed attempts before giving up (0 = unlimited)
}

// DefaultSocketConfig returns sensible defaults.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		Client:            DefaultClientConfig(),
		Reconnect:         true,
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  5 * time.Second,
	}
}

// ManagerConfig configures the realtime session Manager.
type ManagerConfig struct {
	Socket SocketConfig

	// IdentifyTimeout bounds the metadata fetch of one identify attempt
	// (0 = bounded only by the connection's lifetime).
	IdentifyTimeout time.Duration
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Socket:          DefaultSocketConfig(),
		IdentifyTimeout: 30 * time.Second,
	}
}

// ManagerStats provides statistics about the realtime session.
type ManagerStats struct {
	Connected        bool
	Authenticated    bool
	Name             string
	Connects         int64
	Identifies       int64
	IdentifyFailures int64
}
