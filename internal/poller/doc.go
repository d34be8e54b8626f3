// Package poller implements the account Snapshot Poller.
//
// The Snapshot Poller:
//   - Polls the REST API on an interval (default 5m) for active trades and auctions
//   - Fetches depositor stats for every deposit it saw, with bounded concurrency
//   - Hands each response to a SnapshotHandler as JSON
package poller
