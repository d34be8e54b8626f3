// Package connection implements the realtime side of the trading client.
//
// It is layered as:
//   - Client: one websocket speaking Socket.IO v5, joined to a namespace
//   - Socket: reconnects a Client with exponential backoff and dispatches
//     events to handlers from a single goroutine
//   - Manager: re-identifies the session with fresh credentials on every
//     connect and exposes a subscribe-only view to callers
package connection
