package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/empire-trade/internal/connection"
)

// Router subscribes to socket events and queues them for the writer.
type Router interface {
	// Start registers handlers on sub for the configured events.
	Start(sub connection.Subscriber) error

	// Stop removes the handlers and closes the output buffer.
	Stop() error

	// Buffer returns the output buffer for the writer to consume.
	Buffer() *GrowableBuffer[EventMsg]

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	EventsReceived int64
	EventsRouted   int64
	EventsDropped  int64
	ParseErrors    int64
	Buffer         BufferStats
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	out *GrowableBuffer[EventMsg]

	mu   sync.Mutex
	offs []func()

	received    atomic.Int64
	routed      atomic.Int64
	dropped     atomic.Int64
	parseErrors atomic.Int64
}

// NewRouter creates a new event Router.
func NewRouter(cfg RouterConfig, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Events) == 0 {
		cfg.Events = DefaultEvents
	}

	return &router{
		cfg:    cfg,
		logger: logger,
		out:    NewGrowableBuffer[EventMsg](cfg.BufferSize),
	}
}

// Start registers one handler per configured event.
func (r *router) Start(sub connection.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.offs != nil {
		return errors.New("router already started")
	}
	if r.out.Closed() {
		return errors.New("router stopped")
	}

	r.offs = make([]func(), 0, len(r.cfg.Events))
	for _, name := range r.cfg.Events {
		r.offs = append(r.offs, sub.On(name, r.route))
	}

	r.logger.Info("event router started", "events", r.cfg.Events)
	return nil
}

// Stop removes the handlers and closes the output buffer.
func (r *router) Stop() error {
	r.mu.Lock()
	offs := r.offs
	r.offs = nil
	r.mu.Unlock()

	for _, off := range offs {
		off()
	}
	r.out.Close()

	r.logger.Info("event router stopped",
		"routed", r.routed.Load(),
		"dropped", r.dropped.Load(),
	)
	return nil
}

// Buffer returns the output buffer.
func (r *router) Buffer() *GrowableBuffer[EventMsg] {
	return r.out
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	return RouterStats{
		EventsReceived: r.received.Load(),
		EventsRouted:   r.routed.Load(),
		EventsDropped:  r.dropped.Load(),
		ParseErrors:    r.parseErrors.Load(),
		Buffer:         r.out.Stats(),
	}
}

// route runs on the socket dispatch goroutine and must not block.
func (r *router) route(ev connection.Event) {
	r.received.Add(1)

	msg := EventMsg{
		Event:      ev.Name,
		Payload:    payloadOf(ev),
		ReceivedAt: ev.ReceivedAt,
	}

	ids, err := extractItemIDs(msg.Payload)
	if err != nil {
		r.parseErrors.Add(1)
		r.logger.Debug("unparseable event payload", "event", ev.Name, "error", err)
	}
	msg.ItemIDs = ids

	if !r.out.Send(msg) {
		r.dropped.Add(1)
		return
	}
	r.routed.Add(1)
}

func payloadOf(ev connection.Event) json.RawMessage {
	switch len(ev.Args) {
	case 0:
		return json.RawMessage("null")
	case 1:
		return ev.Args[0]
	default:
		raw, err := json.Marshal(ev.Args)
		if err != nil {
			return json.RawMessage("null")
		}
		return raw
	}
}

// extractItemIDs reads "id" from an item object or from each element of an
// array of items. Other payload shapes carry no ids.
func extractItemIDs(payload json.RawMessage) ([]int64, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		var ref itemRef
		if err := json.Unmarshal(trimmed, &ref); err != nil {
			return nil, err
		}
		if ref.ID == nil {
			return nil, nil
		}
		return []int64{*ref.ID}, nil

	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		var ids []int64
		for _, e := range elems {
			var ref itemRef
			if json.Unmarshal(e, &ref) == nil && ref.ID != nil {
				ids = append(ids, *ref.ID)
			}
		}
		return ids, nil
	}
	return nil, nil
}
