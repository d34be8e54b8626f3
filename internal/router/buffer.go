package router

import (
	"context"
	"errors"
	"sync"
)

// ErrBufferClosed is returned by Receive once the buffer is closed and empty.
var ErrBufferClosed = errors.New("buffer closed")

// growThreshold is the fill percentage at which the buffer doubles.
const growThreshold = 70

// GrowableBuffer is an unbounded FIFO ring that doubles its capacity when it
// reaches 70% full, so producers on the socket dispatch goroutine never
// block.
type GrowableBuffer[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int
	count  int
	closed bool

	// ready holds a token while items may be available.
	ready chan struct{}

	stats BufferStats
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	ResizeCount   int
}

// NewGrowableBuffer creates a new buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &GrowableBuffer[T]{
		ring:  make([]T, initialCapacity),
		ready: make(chan struct{}, 1),
	}
}

// Send appends item. It returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	limit := max(len(b.ring)*growThreshold/100, 1)
	if b.count+1 >= limit {
		b.resize(len(b.ring) * 2)
	}

	b.ring[(b.head+b.count)%len(b.ring)] = item
	b.count++
	b.stats.TotalReceived++

	b.signal()
	return true
}

// Receive blocks until an item is available, the buffer is closed and
// drained (ErrBufferClosed), or ctx ends.
func (b *GrowableBuffer[T]) Receive(ctx context.Context) (T, error) {
	for {
		if item, ok, closed := b.pop(); ok {
			return item, nil
		} else if closed {
			var zero T
			return zero, ErrBufferClosed
		}

		select {
		case <-b.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryReceive returns the oldest item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	item, ok, _ := b.pop()
	return item, ok
}

// DrainTo removes up to max items (all when max <= 0) in FIFO order.
func (b *GrowableBuffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	for i := range out {
		out[i] = b.take()
	}
	return out
}

// Ready returns a channel that receives when items may be available or the
// buffer was closed.
func (b *GrowableBuffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Close stops accepting items. Buffered items remain receivable.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.signal()
}

// Closed reports whether Close was called.
func (b *GrowableBuffer[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the current number of items in the buffer.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity of the buffer.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats
	s.Count = b.count
	s.Capacity = len(b.ring)
	return s
}

func (b *GrowableBuffer[T]) pop() (item T, ok, closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return item, false, b.closed
	}
	item = b.take()
	if b.count > 0 || b.closed {
		b.signal()
	}
	return item, true, b.closed
}

// take removes the head item. Must be called with lock held.
func (b *GrowableBuffer[T]) take() T {
	var zero T
	item := b.ring[b.head]
	b.ring[b.head] = zero
	b.head = (b.head + 1) % len(b.ring)
	b.count--
	b.stats.TotalSent++
	return item
}

// resize moves the items into a ring of size n. Must be called with lock held.
func (b *GrowableBuffer[T]) resize(n int) {
	ring := make([]T, n)
	for i := 0; i < b.count; i++ {
		ring[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	b.ring = ring
	b.head = 0
	b.stats.ResizeCount++
}

// signal leaves a wake-up token. Must be called with lock held.
func (b *GrowableBuffer[T]) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}
