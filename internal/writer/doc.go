// Package writer persists recorder data to PostgreSQL.
//
// The EventWriter drains the router buffer into batches and inserts them
// into socket_events with pgx.Batch. Inserts are append-only; rows carry a
// random UUID key and conflicts are counted, never updated.
//
// The SnapshotStore writes poller snapshots into account_snapshots.
package writer
