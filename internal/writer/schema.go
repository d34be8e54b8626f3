package writer

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS socket_events (
	id          UUID PRIMARY KEY,
	event       TEXT NOT NULL,
	payload     JSONB NOT NULL,
	item_ids    BIGINT[],
	received_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS socket_events_event_received_idx
	ON socket_events (event, received_at);

CREATE TABLE IF NOT EXISTS account_snapshots (
	id         UUID PRIMARY KEY,
	kind       TEXT NOT NULL,
	deposit_id BIGINT,
	payload    JSONB NOT NULL,
	taken_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS account_snapshots_kind_taken_idx
	ON account_snapshots (kind, taken_at);
`

// EnsureSchema creates the socket_events and account_snapshots tables if
// they do not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
