// Package router implements the Event Router component.
//
// The Event Router:
//   - Subscribes to trade socket events through the subscribe-only view
//   - Extracts item ids from item feed payloads
//   - Queues events in a GrowableBuffer so the socket never blocks on the writer
//   - Tracks counters for received, routed and dropped events
package router
