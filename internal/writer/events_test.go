package writer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/empire-trade/internal/router"
)

// fakeDB records queued batches. Each insert reports one affected row unless
// its event name is listed in conflict.
type fakeDB struct {
	mu       sync.Mutex
	batches  [][]*pgx.QueuedQuery
	execs    []string
	args     [][]any
	conflict map[string]bool
	err      error
}

func (f *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b.QueuedQueries)
	return &fakeResults{queries: b.QueuedQueries, conflict: f.conflict, err: f.err}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("CREATE TABLE"), f.err
}

func (f *fakeDB) rows() []*pgx.QueuedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*pgx.QueuedQuery
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

func (f *fakeDB) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeResults struct {
	queries  []*pgx.QueuedQuery
	conflict map[string]bool
	err      error
	next     int
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	q := r.queries[r.next]
	r.next++
	if r.conflict[q.Arguments[1].(string)] {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

func eventMsg(name, payload string, ids ...int64) router.EventMsg {
	return router.EventMsg{
		Event:      name,
		Payload:    json.RawMessage(payload),
		ItemIDs:    ids,
		ReceivedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.FixedZone("X", 3600)),
	}
}

func TestTransform(t *testing.T) {
	row := transform(eventMsg("new_item", `[{"id":1}]`, 1))

	assert.Len(t, row.ID, 36)
	assert.Equal(t, "new_item", row.Event)
	assert.Equal(t, `[{"id":1}]`, row.Payload)
	assert.Equal(t, []int64{1}, row.ItemIDs)
	assert.Equal(t, time.UTC, row.ReceivedAt.Location())
	assert.Equal(t, time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC), row.ReceivedAt)

	empty := transform(router.EventMsg{Event: "timesync"})
	assert.Equal(t, "null", empty.Payload)
	assert.False(t, empty.ReceivedAt.IsZero())

	assert.NotEqual(t, row.ID, transform(eventMsg("new_item", `[]`)).ID)
}

func TestEventWriter_FlushOnBatchSize(t *testing.T) {
	db := &fakeDB{}
	input := router.NewGrowableBuffer[router.EventMsg](8)
	w := NewEventWriter(WriterConfig{BatchSize: 2, FlushInterval: time.Hour}, input, db, nil)

	require.NoError(t, w.Start(context.Background()))

	input.Send(eventMsg("new_item", `{"id":1}`, 1))
	input.Send(eventMsg("deleted_item", `[1]`))

	require.Eventually(t, func() bool { return db.batchCount() == 1 }, time.Second, 5*time.Millisecond)

	rows := db.rows()
	require.Len(t, rows, 2)
	assert.True(t, strings.Contains(rows[0].SQL, "INSERT INTO socket_events"))
	assert.Equal(t, "new_item", rows[0].Arguments[1])
	assert.Equal(t, `{"id":1}`, rows[0].Arguments[2])
	assert.Equal(t, []int64{1}, rows[0].Arguments[3])
	assert.Equal(t, "deleted_item", rows[1].Arguments[1])

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))

	stats := w.Stats()
	assert.Equal(t, int64(2), stats.Inserts)
	assert.Equal(t, int64(1), stats.Flushes)
}

func TestEventWriter_FlushOnInterval(t *testing.T) {
	db := &fakeDB{}
	input := router.NewGrowableBuffer[router.EventMsg](8)
	w := NewEventWriter(WriterConfig{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, input, db, nil)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop(context.Background())

	input.Send(eventMsg("timesync", `1700000000`))

	require.Eventually(t, func() bool { return len(db.rows()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestEventWriter_StopFlushesRemaining(t *testing.T) {
	db := &fakeDB{}
	input := router.NewGrowableBuffer[router.EventMsg](8)
	w := NewEventWriter(WriterConfig{BatchSize: 100, FlushInterval: time.Hour}, input, db, nil)

	require.NoError(t, w.Start(context.Background()))

	input.Send(eventMsg("auction_update", `{"id":3}`, 3))
	input.Send(eventMsg("auction_update", `{"id":4}`, 4))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))

	assert.Len(t, db.rows(), 2)
	assert.Equal(t, int64(2), w.Stats().Inserts)
}

func TestEventWriter_Conflicts(t *testing.T) {
	db := &fakeDB{conflict: map[string]bool{"updated_item": true}}
	w := NewEventWriter(WriterConfig{BatchSize: 10}, router.NewGrowableBuffer[router.EventMsg](1), db, nil)

	w.append(eventMsg("new_item", `{}`))
	w.append(eventMsg("updated_item", `{}`))
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Inserts)
	assert.Equal(t, int64(1), stats.Conflicts)
	assert.Equal(t, int64(1), stats.Flushes)
}

func TestEventWriter_InsertError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	w := NewEventWriter(WriterConfig{BatchSize: 10}, router.NewGrowableBuffer[router.EventMsg](1), db, nil)

	w.append(eventMsg("new_item", `{}`))
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.Inserts)

	// Empty batch is a no-op.
	w.flush(context.Background())
	assert.Equal(t, 1, db.batchCount())
}

func TestEventWriter_HandleMessage_AddsToBatch(t *testing.T) {
	w := NewEventWriter(WriterConfig{BatchSize: 2}, router.NewGrowableBuffer[router.EventMsg](1), nil, nil)

	assert.False(t, w.append(eventMsg("new_item", `{}`)))
	assert.True(t, w.append(eventMsg("new_item", `{}`)), "batch full at BatchSize")

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	assert.Len(t, w.batch, 2)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS socket_events")
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS account_snapshots")

	db.err = errors.New("permission denied")
	err := EnsureSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure schema")
}

func TestDefaultWriterConfig(t *testing.T) {
	cfg := DefaultWriterConfig()
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.FlushInterval)
}
