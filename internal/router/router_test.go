package router

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/empire-trade/internal/connection"
)

// fakeSubscriber records handlers and fires events synchronously.
type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]connection.Handler
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]connection.Handler)}
}

func (f *fakeSubscriber) On(event string, h connection.Handler) func() {
	f.mu.Lock()
	f.handlers[event] = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.handlers, event)
		f.mu.Unlock()
	}
}

func (f *fakeSubscriber) Connected() bool { return true }

func (f *fakeSubscriber) fire(name string, args ...string) bool {
	f.mu.Lock()
	h, ok := f.handlers[name]
	f.mu.Unlock()
	if !ok {
		return false
	}

	ev := connection.Event{Name: name, ReceivedAt: time.Unix(1700000000, 0)}
	for _, a := range args {
		ev.Args = append(ev.Args, json.RawMessage(a))
	}
	h(ev)
	return true
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	assert.Equal(t, 1000, cfg.BufferSize)
	assert.Contains(t, cfg.Events, "new_item")
	assert.Contains(t, cfg.Events, "deleted_item")
}

func TestRouter_RoutesConfiguredEvents(t *testing.T) {
	sub := newFakeSubscriber()
	r := NewRouter(RouterConfig{Events: []string{"new_item", "deleted_item"}, BufferSize: 4}, nil)
	require.NoError(t, r.Start(sub))

	assert.Equal(t, 2, sub.count())
	assert.False(t, sub.fire("timesync", "1"), "unconfigured event must not be subscribed")

	require.True(t, sub.fire("new_item", `[{"id":1,"market_name":"AK"},{"id":2}]`))
	require.True(t, sub.fire("deleted_item", `[3,4]`))

	first, ok := r.Buffer().TryReceive()
	require.True(t, ok)
	assert.Equal(t, "new_item", first.Event)
	assert.Equal(t, []int64{1, 2}, first.ItemIDs)
	assert.Equal(t, time.Unix(1700000000, 0), first.ReceivedAt)

	second, ok := r.Buffer().TryReceive()
	require.True(t, ok)
	assert.Equal(t, "deleted_item", second.Event)
	assert.JSONEq(t, `[3,4]`, string(second.Payload))
	assert.Empty(t, second.ItemIDs)

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.EventsReceived)
	assert.Equal(t, int64(2), stats.EventsRouted)
}

func TestRouter_StopUnsubscribesAndCloses(t *testing.T) {
	sub := newFakeSubscriber()
	r := NewRouter(DefaultRouterConfig(), nil)
	require.NoError(t, r.Start(sub))
	assert.Error(t, r.Start(sub), "second start")

	require.NoError(t, r.Stop())
	assert.Equal(t, 0, sub.count())
	assert.True(t, r.Buffer().Closed())
	assert.Error(t, r.Start(sub), "start after stop")
}

func TestRouter_DropsAfterClose(t *testing.T) {
	sub := newFakeSubscriber()
	r := NewRouter(RouterConfig{Events: []string{"auction_update"}}, nil)
	require.NoError(t, r.Start(sub))

	r.Buffer().Close()
	sub.fire("auction_update", `{"id":9,"auction_highest_bid":100}`)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.EventsDropped)
	assert.Equal(t, int64(0), stats.EventsRouted)
}

func TestPayloadOf(t *testing.T) {
	assert.Equal(t, "null", string(payloadOf(connection.Event{})))

	one := connection.Event{Args: []json.RawMessage{json.RawMessage(`{"a":1}`)}}
	assert.JSONEq(t, `{"a":1}`, string(payloadOf(one)))

	two := connection.Event{Args: []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`"x"`)}}
	assert.JSONEq(t, `[1,"x"]`, string(payloadOf(two)))
}

func TestExtractItemIDs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []int64
		wantErr bool
	}{
		{name: "single item", payload: `{"id":5,"market_value":100}`, want: []int64{5}},
		{name: "item list", payload: `[{"id":5},{"id":6},{"name":"x"}]`, want: []int64{5, 6}},
		{name: "object without id", payload: `{"server_time":1}`},
		{name: "scalar", payload: `1700000000`},
		{name: "null", payload: `null`},
		{name: "bad object", payload: `{"id":"five"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractItemIDs(json.RawMessage(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
