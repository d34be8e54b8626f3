package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/empire-trade/internal/api"
)

// Snapshot kinds.
const (
	KindTrades         = "trades"
	KindAuctions       = "auctions"
	KindDepositorStats = "depositor_stats"
)

// Source provides the account endpoints to poll. *api.Client implements it.
type Source interface {
	GetActiveTrades(ctx context.Context) (*api.ActiveTradesResponse, error)
	GetActiveAuctions(ctx context.Context) (*api.ActiveAuctionsResponse, error)
	GetDepositorStats(ctx context.Context, depositID int64) (*api.DepositorStatsResponse, error)
}

// Snapshot is one REST response captured by the poller.
type Snapshot struct {
	Kind      string          // KindTrades, KindAuctions or KindDepositorStats
	DepositID int64           // Set for KindDepositorStats
	Payload   json.RawMessage // Response as JSON
	TakenAt   time.Time
}

// SnapshotHandler receives fetched snapshots.
type SnapshotHandler interface {
	HandleSnapshot(ctx context.Context, s Snapshot) error
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(context.Context, Snapshot) error

func (f SnapshotHandlerFunc) HandleSnapshot(ctx context.Context, s Snapshot) error {
	return f(ctx, s)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5m)
	Concurrency int           // Max concurrent depositor stats requests (default: 4)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Stats contains poll counters.
type Stats struct {
	Cycles    int64
	Snapshots int64
	Errors    int64
}

// Poller periodically snapshots active trades, active auctions and the
// depositor stats of every auctioned deposit.
type Poller struct {
	cfg     Config
	source  Source
	handler SnapshotHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycles    atomic.Int64
	snapshots atomic.Int64
	errors    atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, source Source, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("snapshot poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:    p.cycles.Load(),
		Snapshots: p.snapshots.Load(),
		Errors:    p.errors.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll takes one snapshot of every kind.
func (p *Poller) pollAll() {
	start := time.Now()
	p.cycles.Add(1)

	var trades *api.ActiveTradesResponse
	err := p.poll(KindTrades, 0, func(ctx context.Context) (any, error) {
		var err error
		trades, err = p.source.GetActiveTrades(ctx)
		return trades, err
	})
	p.record(KindTrades, 0, err)

	var auctions *api.ActiveAuctionsResponse
	err = p.poll(KindAuctions, 0, func(ctx context.Context) (any, error) {
		var err error
		auctions, err = p.source.GetActiveAuctions(ctx)
		return auctions, err
	})
	p.record(KindAuctions, 0, err)

	var deposits []int64
	seen := make(map[int64]bool)
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			deposits = append(deposits, id)
		}
	}
	if trades != nil {
		for _, d := range trades.Data.Deposits {
			add(d.ID)
		}
	}
	if auctions != nil {
		for _, a := range auctions.ActiveAuctions {
			add(a.ID)
		}
	}
	p.pollDepositors(deposits)

	p.logger.Info("poll cycle complete",
		"deposits", len(deposits),
		"snapshots", p.snapshots.Load(),
		"errors", p.errors.Load(),
		"duration", time.Since(start),
	)
}

// pollDepositors fetches depositor stats with bounded concurrency.
func (p *Poller) pollDepositors(ids []int64) {
	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			err := p.poll(KindDepositorStats, id, func(ctx context.Context) (any, error) {
				return p.source.GetDepositorStats(ctx, id)
			})
			p.record(KindDepositorStats, id, err)
		}(id)
	}

	wg.Wait()
}

// poll runs fetch under the per-request timeout and hands the result to the
// handler.
func (p *Poller) poll(kind string, depositID int64, fetch func(context.Context) (any, error)) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := fetch(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	if p.handler == nil {
		return nil
	}
	return p.handler.HandleSnapshot(ctx, Snapshot{
		Kind:      kind,
		DepositID: depositID,
		Payload:   payload,
		TakenAt:   time.Now().UTC(),
	})
}

func (p *Poller) record(kind string, depositID int64, err error) {
	if err == nil {
		p.snapshots.Add(1)
		return
	}
	p.errors.Add(1)
	p.logger.Warn("failed to poll snapshot",
		"kind", kind,
		"deposit_id", depositID,
		"err", err,
	)
}
