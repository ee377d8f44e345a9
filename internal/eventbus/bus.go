package eventbus

import (
	"sync"

	"erc20scan/internal/models"
)

// Bus fans newly indexed transfers out to subscribers over Go channels.
// The ingester publishes; the websocket feed subscribes. Safe for
// concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan<- models.TokenTransfer
	closed      bool
}

// New creates a new Bus ready for use.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a channel to receive transfers. The caller is
// responsible for creating the channel with sufficient buffer capacity;
// slow subscribers will have transfers dropped.
func (b *Bus) Subscribe(ch chan<- models.TokenTransfer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, ch)
}

// Publish sends a transfer to all subscribers. If a subscriber's channel
// is full, the transfer is dropped for that subscriber. Publish is a no-op
// after Close has been called.
func (b *Bus) Publish(t models.TokenTransfer) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- t:
		default:
			// drop if subscriber is slow
		}
	}
}

// Close marks the bus as closed. After Close, Publish is a no-op.
// Close does not close subscriber channels; that is the caller's
// responsibility.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
