// Package socketio implements the text framing of Socket.IO v5 carried over
// Engine.IO v4, restricted to the websocket transport.
//
// An Engine.IO frame is a one-digit type followed by its payload. Socket.IO
// packets travel inside Engine.IO "message" frames:
//
//	4 2 /trade, ["identify",{...}]
//	| | |       +- JSON data
//	| | +--------- namespace (omitted for "/")
//	| +----------- socket packet type (EVENT)
//	+------------- engine packet type (MESSAGE)
//
// Binary attachments are not supported.
package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// EngineType is an Engine.IO packet type.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is a Socket.IO packet type.
type PacketType byte

const (
	Connect      PacketType = '0'
	Disconnect   PacketType = '1'
	Event        PacketType = '2'
	Ack          PacketType = '3'
	ConnectError PacketType = '4'
	BinaryEvent  PacketType = '5'
	BinaryAck    PacketType = '6'
)

// Protocol is the Engine.IO protocol revision spoken by this package.
const Protocol = 4

var (
	ErrEmptyFrame   = errors.New("socketio: empty frame")
	ErrBinaryPacket = errors.New("socketio: binary packets are not supported")
	ErrNotEvent     = errors.New("socketio: not an event packet")
)

// Open is the handshake payload of an Engine.IO open packet.
type Open struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // milliseconds
	PingTimeout  int      `json:"pingTimeout"`  // milliseconds
	MaxPayload   int      `json:"maxPayload"`
}

// Packet is a decoded Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string // "/" when omitted on the wire
	ID        *int64 // ack id, nil when absent
	Data      json.RawMessage
}

// URL builds the websocket URL for base (ws/wss/http/https) and the engine
// path, e.g. URL("wss://trade.csgoempire.com", "/s/").
func URL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}

	if path == "" {
		path = "/socket.io/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	q := u.Query()
	q.Set("EIO", strconv.Itoa(Protocol))
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// DecodeEngine splits an Engine.IO frame into its type and payload.
func DecodeEngine(frame []byte) (EngineType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}
	t := EngineType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, nil, fmt.Errorf("socketio: unknown engine packet type %q", frame[0])
	}
	return t, frame[1:], nil
}

// EncodeEngine builds an Engine.IO frame.
func EncodeEngine(t EngineType, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(t))
	return append(out, payload...)
}

// ParseOpen decodes the payload of an Engine.IO open packet.
func ParseOpen(payload []byte) (Open, error) {
	var o Open
	if err := json.Unmarshal(payload, &o); err != nil {
		return Open{}, fmt.Errorf("socketio: parse open packet: %w", err)
	}
	if o.SID == "" {
		return Open{}, errors.New("socketio: open packet without sid")
	}
	return o, nil
}

// Encode serializes a Socket.IO packet (without the Engine.IO prefix).
func Encode(p Packet) string {
	var b strings.Builder
	b.WriteByte(byte(p.Type))

	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID != nil {
		b.WriteString(strconv.FormatInt(*p.ID, 10))
	}
	if len(p.Data) > 0 {
		b.Write(p.Data)
	}
	return b.String()
}

// Decode parses a Socket.IO packet (without the Engine.IO prefix).
func Decode(s string) (Packet, error) {
	if s == "" {
		return Packet{}, ErrEmptyFrame
	}

	p := Packet{Type: PacketType(s[0]), Namespace: "/"}
	if p.Type < Connect || p.Type > BinaryAck {
		return Packet{}, fmt.Errorf("socketio: unknown packet type %q", s[0])
	}
	if p.Type == BinaryEvent || p.Type == BinaryAck {
		return Packet{}, ErrBinaryPacket
	}
	rest := s[1:]

	if strings.HasPrefix(rest, "/") {
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			// "1/trade" with nothing after the namespace
			p.Namespace = rest
			rest = ""
		} else {
			p.Namespace = rest[:end]
			rest = rest[end+1:]
		}
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return Packet{}, fmt.Errorf("socketio: parse ack id: %w", err)
		}
		p.ID = &id
		rest = rest[i:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return Packet{}, errors.New("socketio: invalid packet data")
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// NewConnect builds a namespace CONNECT packet with an optional auth payload.
func NewConnect(namespace string, auth any) (Packet, error) {
	p := Packet{Type: Connect, Namespace: namespace}
	if auth != nil {
		data, err := json.Marshal(auth)
		if err != nil {
			return Packet{}, fmt.Errorf("socketio: marshal auth: %w", err)
		}
		p.Data = data
	}
	return p, nil
}

// NewEvent builds an EVENT packet: ["name", data...].
func NewEvent(namespace, name string, data ...any) (Packet, error) {
	args := make([]any, 0, len(data)+1)
	args = append(args, name)
	args = append(args, data...)

	raw, err := json.Marshal(args)
	if err != nil {
		return Packet{}, fmt.Errorf("socketio: marshal event %q: %w", name, err)
	}
	return Packet{Type: Event, Namespace: namespace, Data: raw}, nil
}

// Event returns the event name and arguments of an EVENT packet.
func (p Packet) Event() (string, []json.RawMessage, error) {
	if p.Type != Event {
		return "", nil, ErrNotEvent
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(p.Data, &parts); err != nil {
		return "", nil, fmt.Errorf("socketio: decode event: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, errors.New("socketio: event without name")
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("socketio: decode event name: %w", err)
	}
	return name, parts[1:], nil
}

// ErrorMessage extracts the message of a CONNECT_ERROR packet.
func (p Packet) ErrorMessage() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p.Data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	var s string
	if err := json.Unmarshal(p.Data, &s); err == nil {
		return s
	}
	return string(p.Data)
}
