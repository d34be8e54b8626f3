package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/empire-trade/internal/api"
)

// Manager keeps the trade socket identified: every time the transport
// connects it fetches fresh socket credentials and emits "identify".
type Manager interface {
	// Start creates the socket and begins connecting in the background.
	Start(ctx context.Context) error

	// Stop closes the socket and waits for in-flight identify attempts.
	Stop(ctx context.Context) error

	// Socket returns the subscribe-only view of the live socket.
	Socket() (Subscriber, error)

	// Stats returns current session statistics.
	Stats() ManagerStats
}

// MetadataFetcher provides socket credentials. *api.Client implements it.
type MetadataFetcher interface {
	GetMetadata(ctx context.Context) (*api.MetadataResponse, error)
}

// TransportFactory creates the socket a Manager drives.
type TransportFactory func(SocketConfig, *slog.Logger) Transport

// ManagerOption configures a Manager.
type ManagerOption func(*manager)

// WithTransportFactory replaces the default Socket constructor.
func WithTransportFactory(f TransportFactory) ManagerOption {
	return func(m *manager) {
		m.newTransport = f
	}
}

func defaultTransport(cfg SocketConfig, logger *slog.Logger) Transport {
	return NewSocket(cfg, logger)
}

// manager implements the Manager interface.
type manager struct {
	cfg          ManagerConfig
	meta         MetadataFetcher
	logger       *slog.Logger
	newTransport TransportFactory

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	transport  Transport
	offs       []func()
	connCancel context.CancelFunc // cancels the identify attempt of the current connection
	stopped    bool

	// Session state
	stateMu       sync.RWMutex
	authenticated bool
	name          string

	connects         atomic.Int64
	identifies       atomic.Int64
	identifyFailures atomic.Int64
}

// NewManager creates a new realtime session Manager.
func NewManager(cfg ManagerConfig, meta MetadataFetcher, logger *slog.Logger, opts ...ManagerOption) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &manager{
		cfg:          cfg,
		meta:         meta,
		logger:       logger,
		newTransport: defaultTransport,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates the socket, registers the session handlers and starts
// connecting.
func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrAlreadyClosed
	}
	if m.transport != nil {
		return errors.New("manager already started")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	t := m.newTransport(m.cfg.Socket, m.logger)
	m.offs = []func(){
		t.On(EventConnect, m.onConnect),
		t.On(EventDisconnect, m.onDisconnect),
		t.On(EventConnectError, m.onConnectError),
		t.On(EventInit, m.onInit),
	}
	m.transport = t

	t.Start(m.ctx)

	m.logger.Debug("realtime manager started",
		"url", m.cfg.Socket.Client.URL,
		"namespace", m.cfg.Socket.Client.Namespace,
	)
	return nil
}

// Stop closes the socket and waits for in-flight identify attempts.
func (m *manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	t := m.transport
	offs := m.offs
	m.offs = nil
	if m.connCancel != nil {
		m.connCancel()
	}
	m.mu.Unlock()

	if t == nil {
		return nil
	}

	m.logger.Debug("stopping realtime manager")
	m.cancel()

	for _, off := range offs {
		off()
	}
	err := t.Close()

	// Wait for goroutines with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, abandoning identify attempt")
	}

	m.logger.Debug("realtime manager stopped")
	return err
}

// Socket returns the subscribe-only view of the socket.
func (m *manager) Socket() (Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport == nil || m.stopped {
		return nil, ErrUnavailable
	}
	return subscriberView{t: m.transport}, nil
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	t := m.transport
	m.mu.Unlock()

	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	return ManagerStats{
		Connected:        t != nil && t.Connected(),
		Authenticated:    m.authenticated,
		Name:             m.name,
		Connects:         m.connects.Load(),
		Identifies:       m.identifies.Load(),
		IdentifyFailures: m.identifyFailures.Load(),
	}
}

func (m *manager) onConnect(Event) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel()
	}
	connCtx, cancel := context.WithCancel(m.ctx)
	m.connCancel = cancel
	t := m.transport
	m.wg.Add(1)
	m.mu.Unlock()

	m.setSession(false, "")
	m.connects.Add(1)

	sessionID := uuid.NewString()
	m.logger.Info("connected to trade socket", "session_id", sessionID)

	// Connect is dispatched while the new connection is current, so the
	// identify below can only ever be sent on it.
	go m.identify(connCtx, t.Conn(), sessionID)
}

func (m *manager) onDisconnect(ev Event) {
	m.mu.Lock()
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.mu.Unlock()

	m.setSession(false, "")
	m.logger.Debug("disconnected from trade socket", "reason", ev.Reason())
}

func (m *manager) onConnectError(ev Event) {
	m.logger.Debug("trade socket connect error", "reason", ev.Reason())
}

func (m *manager) onInit(ev Event) {
	if len(ev.Args) == 0 {
		m.logger.Warn("init event without payload")
		return
	}

	ie, err := ParseInit(ev.Args[0])
	if err != nil {
		m.logger.Warn("ignoring malformed init event", "error", err)
		return
	}

	m.setSession(ie.Authenticated, ie.Name)
	if ie.Authenticated {
		m.logger.Info("authenticated to trade socket", "name", ie.Name)
		return
	}
	m.logger.Debug("trade socket reports unauthenticated session")
}

// identify fetches fresh credentials and emits "identify" unless the
// connection that triggered it is gone by then.
func (m *manager) identify(connCtx context.Context, conn Emitter, sessionID string) {
	defer m.wg.Done()

	logger := m.logger.With("session_id", sessionID)

	fetchCtx := connCtx
	if m.cfg.IdentifyTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(connCtx, m.cfg.IdentifyTimeout)
		defer cancel()
	}

	if conn == nil {
		logger.Debug("connection ended before identify, skipping")
		return
	}

	meta, err := m.meta.GetMetadata(fetchCtx)
	if connCtx.Err() != nil {
		logger.Debug("connection ended before identify, skipping")
		return
	}
	if err != nil {
		m.identifyFailures.Add(1)
		logger.Warn("failed to fetch socket metadata", "error", err)
		return
	}

	payload := IdentifyPayload{
		UID:                meta.User.ID,
		Model:              meta.User,
		AuthorizationToken: meta.SocketToken,
		Signature:          meta.SocketSignature,
	}
	if err := conn.Emit(EventIdentify, payload); err != nil {
		m.identifyFailures.Add(1)
		logger.Warn("failed to emit identify", "error", err)
		return
	}

	m.identifies.Add(1)
	logger.Debug("identify sent", "uid", payload.UID)
}

func (m *manager) setSession(authenticated bool, name string) {
	m.stateMu.Lock()
	m.authenticated = authenticated
	m.name = name
	m.stateMu.Unlock()
}
