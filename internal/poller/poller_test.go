package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/empire-trade/internal/api"
)

// accountServer serves two deposits, one auction (overlapping deposit 2)
// and depositor stats for any deposit.
func accountServer(t *testing.T, statsDelay time.Duration, inFlight, maxInFlight *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/trading/user/trades":
			w.Write([]byte(`{"success":true,"data":{"deposits":[{"id":1},{"id":2}],"withdrawals":[]}}`))
		case r.URL.Path == "/trading/user/auctions":
			w.Write([]byte(`{"success":true,"active_auctions":[{"id":2},{"id":3}]}`))
		case strings.HasSuffix(r.URL.Path, "/bidder-stats"):
			if inFlight != nil {
				current := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					old := maxInFlight.Load()
					if current <= old || maxInFlight.CompareAndSwap(old, current) {
						break
					}
				}
			}
			time.Sleep(statsDelay)
			w.Write([]byte(`{"delivery_rate_recent":0.9,"delivery_rate_long":0.95}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

// collector records snapshots by kind.
type collector struct {
	mu    sync.Mutex
	kinds map[string]int
	ids   map[int64]bool
}

func newCollector() *collector {
	return &collector{kinds: make(map[string]int), ids: make(map[int64]bool)}
}

func (c *collector) HandleSnapshot(_ context.Context, s Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds[s.Kind]++
	if s.Kind == KindDepositorStats {
		c.ids[s.DepositID] = true
	}
	return nil
}

func (c *collector) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kinds[kind]
}

func TestPoller_PollAll(t *testing.T) {
	server := accountServer(t, 0, nil, nil)
	defer server.Close()

	client := api.NewClient(server.URL, "", api.WithTimeout(5*time.Second))
	handler := newCollector()

	cfg := Config{
		Interval:    time.Hour, // Long interval, we'll trigger manually.
		Concurrency: 10,
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, handler, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.ctx = ctx

	p.pollAll()

	if got := handler.count(KindTrades); got != 1 {
		t.Errorf("trades snapshots = %d, want 1", got)
	}
	if got := handler.count(KindAuctions); got != 1 {
		t.Errorf("auctions snapshots = %d, want 1", got)
	}
	// Deposit 2 appears in both lists but is fetched once.
	if got := handler.count(KindDepositorStats); got != 3 {
		t.Errorf("depositor stats snapshots = %d, want 3", got)
	}
	for _, id := range []int64{1, 2, 3} {
		if !handler.ids[id] {
			t.Errorf("no depositor stats for deposit %d", id)
		}
	}

	stats := p.Stats()
	if stats.Snapshots != 5 || stats.Errors != 0 || stats.Cycles != 1 {
		t.Errorf("Stats() = %+v, want 5 snapshots, 0 errors, 1 cycle", stats)
	}
}

func TestPoller_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"unauthenticated"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "")

	var called atomic.Bool
	handler := SnapshotHandlerFunc(func(context.Context, Snapshot) error {
		called.Store(true)
		return nil
	})

	p := New(Config{Interval: time.Hour}, client, handler, nil)
	p.ctx = context.Background()

	p.pollAll()

	if called.Load() {
		t.Error("handler called for failed request")
	}
	if got := p.Stats().Errors; got != 2 {
		t.Errorf("Errors = %d, want 2", got)
	}
}

func TestPoller_StartStop(t *testing.T) {
	server := accountServer(t, 0, nil, nil)
	defer server.Close()

	client := api.NewClient(server.URL, "")

	var called atomic.Bool
	handler := SnapshotHandlerFunc(func(context.Context, Snapshot) error {
		called.Store(true)
		return nil
	})

	cfg := Config{
		Interval:    100 * time.Millisecond,
		Concurrency: 10,
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, handler, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for at least one poll.
	time.Sleep(150 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !called.Load() {
		t.Error("handler was never called")
	}
}

func TestPoller_Concurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	server := accountServer(t, 50*time.Millisecond, &inFlight, &maxInFlight)
	defer server.Close()

	client := api.NewClient(server.URL, "")

	cfg := Config{
		Interval:    time.Hour,
		Concurrency: 1,
		Timeout:     5 * time.Second,
	}

	p := New(cfg, client, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p.ctx = ctx

	p.pollDepositors([]int64{1, 2, 3, 4, 5})

	if got := maxInFlight.Load(); got > 1 {
		t.Errorf("maxInFlight = %d, want <= 1", got)
	}
	if got := p.Stats().Snapshots; got != 5 {
		t.Errorf("Snapshots = %d, want 5", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{}, nil, nil, nil)
	if p.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults %+v", p.cfg, DefaultConfig())
	}
}
