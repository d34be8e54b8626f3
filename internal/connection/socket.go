package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Subscriber is the read-only view of a socket handed to external callers.
type Subscriber interface {
	// On registers h for event and returns a function that removes it.
	On(event string, h Handler) (off func())

	// Connected reports whether the namespace is currently joined.
	Connected() bool
}

// Emitter sends events on a single connection.
type Emitter interface {
	Emit(event string, data ...any) error
}

// Transport is a reconnecting socket the Manager drives.
type Transport interface {
	Subscriber

	// Start begins connecting in the background. It returns immediately.
	Start(ctx context.Context)

	// Conn returns the current connection, or nil between connections.
	// Emits on a returned connection fail once it has closed.
	Conn() Emitter

	// Close stops reconnecting and closes the current connection.
	Close() error
}

// ClientFactory creates a single-connection client.
type ClientFactory func(ClientConfig, *slog.Logger) Client

// subscriberView hides everything but On and Connected.
type subscriberView struct {
	t Transport
}

func (v subscriberView) On(event string, h Handler) func() { return v.t.On(event, h) }
func (v subscriberView) Connected() bool                   { return v.t.Connected() }

type registration struct {
	id uint64
	h  Handler
}

// Socket keeps a Socket.IO namespace connected, reconnecting with
// exponential backoff, and dispatches events to registered handlers from a
// single goroutine.
type Socket struct {
	cfg       SocketConfig
	logger    *slog.Logger
	newClient ClientFactory

	handlersMu sync.RWMutex
	handlers   map[string][]registration
	nextID     uint64

	mu      sync.RWMutex
	current Client
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// SocketOption configures a Socket.
type SocketOption func(*Socket)

// WithClientFactory replaces the websocket client constructor.
func WithClientFactory(f ClientFactory) SocketOption {
	return func(s *Socket) {
		s.newClient = f
	}
}

// NewSocket creates a reconnecting socket. Call Start to connect.
func NewSocket(cfg SocketConfig, logger *slog.Logger, opts ...SocketOption) *Socket {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Socket{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		handlers:  make(map[string][]registration),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// On registers h for event.
func (s *Socket) On(event string, h Handler) func() {
	s.handlersMu.Lock()
	s.nextID++
	id := s.nextID
	s.handlers[event] = append(s.handlers[event], registration{id: id, h: h})
	s.handlersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.off(event, id) })
	}
}

func (s *Socket) off(event string, id uint64) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	regs := s.handlers[event]
	for i, r := range regs {
		if r.id == id {
			s.handlers[event] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(s.handlers[event]) == 0 {
		delete(s.handlers, event)
	}
}

// Connected reports whether the namespace is currently joined.
func (s *Socket) Connected() bool {
	s.mu.RLock()
	c := s.current
	s.mu.RUnlock()
	return c != nil && c.IsConnected()
}

// Conn returns the current connection, or nil between connections.
func (s *Socket) Conn() Emitter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current
}

// Emit sends an event on the current connection.
func (s *Socket) Emit(event string, data ...any) error {
	s.mu.RLock()
	c := s.current
	s.mu.RUnlock()

	if c == nil {
		return ErrNotConnected
	}
	return c.Emit(event, data...)
}

// Start begins the connect loop. Calling Start more than once is a no-op.
func (s *Socket) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Close stops the connect loop and waits for it to exit.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !started {
		return nil
	}
	cancel()
	<-s.done
	return nil
}

// run is the socket's only dispatch goroutine.
func (s *Socket) run(ctx context.Context) {
	defer close(s.done)

	wait := s.cfg.ReconnectBaseWait
	failures := 0

	for {
		c := s.newClient(s.cfg.Client, s.logger)
		err := c.Connect(ctx)
		if ctx.Err() != nil {
			c.Close()
			return
		}

		if err != nil {
			failures++
			s.logger.Debug("socket connect failed", "error", err, "attempt", failures)
			s.dispatch(lifecycleEvent(EventConnectError, err.Error()))

			if !s.cfg.Reconnect || (s.cfg.ReconnectAttempts > 0 && failures >= s.cfg.ReconnectAttempts) {
				s.logger.Warn("giving up on socket", "attempts", failures, "error", err)
				return
			}
		} else {
			failures = 0
			wait = s.cfg.ReconnectBaseWait

			s.setCurrent(c)
			s.dispatch(lifecycleEvent(EventConnect, ""))

			reason := s.pump(ctx, c)

			s.setCurrent(nil)
			c.Close()
			s.dispatch(lifecycleEvent(EventDisconnect, reason))

			if ctx.Err() != nil || !s.cfg.Reconnect {
				return
			}
		}

		if !sleep(ctx, jitter(wait)) {
			return
		}

		// Exponential backoff with cap
		wait *= 2
		if wait > s.cfg.ReconnectMaxWait {
			wait = s.cfg.ReconnectMaxWait
		}
	}
}

// pump dispatches events from c until it fails or ctx ends, and returns the
// disconnect reason.
func (s *Socket) pump(ctx context.Context, c Client) string {
	for {
		select {
		case <-ctx.Done():
			return "io client disconnect"
		case ev := <-c.Events():
			s.dispatch(ev)
		case err := <-c.Errors():
			return err.Error()
		}
	}
}

func (s *Socket) dispatch(ev Event) {
	s.handlersMu.RLock()
	regs := append([]registration(nil), s.handlers[ev.Name]...)
	s.handlersMu.RUnlock()

	for _, r := range regs {
		s.call(r.h, ev)
	}
}

func (s *Socket) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("socket handler panicked", "event", ev.Name, "panic", r)
		}
	}()
	h(ev)
}

func (s *Socket) setCurrent(c Client) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}

func lifecycleEvent(name, reason string) Event {
	ev := Event{Name: name, ReceivedAt: time.Now()}
	if reason != "" {
		raw, _ := json.Marshal(reason)
		ev.Args = []json.RawMessage{raw}
	}
	return ev
}

// jitter spreads d over [d/2, 3d/2).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int64N(int64(d)))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
