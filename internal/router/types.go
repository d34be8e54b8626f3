package router

import (
	"encoding/json"
	"time"
)

// DefaultEvents are the trade feed events recorded when none are configured.
var DefaultEvents = []string{
	"timesync",
	"new_item",
	"updated_item",
	"auction_update",
	"deleted_item",
	"trade_status",
}

// RouterConfig holds configuration for the event Router.
type RouterConfig struct {
	Events     []string // Event names to subscribe to (default: DefaultEvents)
	BufferSize int      // Initial output buffer capacity (default: 1000)
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Events:     DefaultEvents,
		BufferSize: 1000,
	}
}

// EventMsg is one socket event queued for the writer.
type EventMsg struct {
	Event      string
	Payload    json.RawMessage // first event argument, or all arguments as an array
	ItemIDs    []int64         // ids of the items the payload refers to, if any
	ReceivedAt time.Time
}

// itemRef is the part of an item payload the router reads.
type itemRef struct {
	ID *int64 `json:"id"`
}
