// Package security holds the retry buffer that keeps security-relevant audit
// events across a sink outage.
package security

import (
	"sync"

	audit "idauth/pkg/platform/audit"
)

const defaultCapacity = 10000

// RingBuffer is a bounded FIFO of parked events. When full, the oldest event
// is overwritten and counted as dropped.
type RingBuffer struct {
	mu      sync.Mutex
	slots   []audit.Event
	start   int
	size    int
	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &RingBuffer{slots: make([]audit.Event, capacity)}
}

func (b *RingBuffer) Enqueue(event audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.slots) {
		b.slots[b.start] = event
		b.start = (b.start + 1) % len(b.slots)
		b.dropped++
		return
	}
	b.slots[(b.start+b.size)%len(b.slots)] = event
	b.size++
}

// DequeueBatch removes and returns up to n of the oldest events.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	n = min(n, b.size)
	if n <= 0 {
		return nil
	}
	out := make([]audit.Event, n)
	for i := range out {
		out[i] = b.slots[b.start]
		b.slots[b.start] = audit.Event{}
		b.start = (b.start + 1) % len(b.slots)
	}
	b.size -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped reports how many events were overwritten since creation.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
