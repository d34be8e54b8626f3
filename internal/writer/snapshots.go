package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/empire-trade/internal/poller"
)

const insertSnapshotSQL = `
	INSERT INTO account_snapshots (id, kind, deposit_id, payload, taken_at)
	VALUES ($1, $2, $3, $4, $5)
`

// SnapshotStore writes poller snapshots to the account_snapshots table, one
// row per snapshot. Snapshots are infrequent, so rows are not batched.
type SnapshotStore struct {
	db     DB
	logger *slog.Logger

	inserts atomic.Int64
	errors  atomic.Int64
}

// NewSnapshotStore creates a SnapshotStore.
func NewSnapshotStore(db DB, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{db: db, logger: logger}
}

// HandleSnapshot implements poller.SnapshotHandler.
func (s *SnapshotStore) HandleSnapshot(ctx context.Context, snap poller.Snapshot) error {
	var depositID *int64
	if snap.DepositID > 0 {
		depositID = &snap.DepositID
	}

	_, err := s.db.Exec(ctx, insertSnapshotSQL,
		uuid.NewString(),
		snap.Kind,
		depositID,
		string(snap.Payload),
		snap.TakenAt.UTC(),
	)
	if err != nil {
		s.errors.Add(1)
		return fmt.Errorf("insert %s snapshot: %w", snap.Kind, err)
	}

	s.inserts.Add(1)
	s.logger.Debug("stored snapshot", "kind", snap.Kind, "deposit_id", snap.DepositID)
	return nil
}

// Stats returns store counters.
func (s *SnapshotStore) Stats() WriterMetrics {
	return WriterMetrics{
		Inserts: s.inserts.Load(),
		Errors:  s.errors.Load(),
	}
}
