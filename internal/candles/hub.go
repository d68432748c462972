package candles

import (
	"fmt"
	"sync"
	"sync/atomic"

	"optionflow/internal/models"
)

const subscriberBufferSize = 16

// Hub fans out live candle updates to subscribers keyed by
// (symbol, timeframe). Sends are non-blocking so one slow consumer cannot
// stall the sweep.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan models.Candle
	closed      bool

	updatesPublished uint64
	updatesDropped   uint64
}

// NewHub creates an empty candle hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan models.Candle),
	}
}

func hubKey(symbol string, tf models.Timeframe) string {
	return fmt.Sprintf("%s|%s", symbol, tf)
}

// Subscribe returns a channel receiving candle updates for one
// symbol/timeframe pair. The channel is closed on Close.
func (h *Hub) Subscribe(symbol string, tf models.Timeframe) <-chan models.Candle {
	ch := make(chan models.Candle, subscriberBufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	key := hubKey(symbol, tf)
	h.subscribers[key] = append(h.subscribers[key], ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(symbol string, tf models.Timeframe, ch <-chan models.Candle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := hubKey(symbol, tf)
	subs := h.subscribers[key]
	for i, sub := range subs {
		if sub == ch {
			close(sub)
			h.subscribers[key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[key]) == 0 {
		delete(h.subscribers, key)
	}
}

// Publish delivers a candle update to all matching subscribers.
// Full subscriber buffers are skipped.
func (h *Hub) Publish(candle models.Candle) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for _, sub := range h.subscribers[hubKey(candle.Symbol, candle.Timeframe)] {
		select {
		case sub <- candle:
			atomic.AddUint64(&h.updatesPublished, 1)
		default:
			atomic.AddUint64(&h.updatesDropped, 1)
		}
	}
}

// Metrics reports publish and drop counts since startup.
func (h *Hub) Metrics() (published, dropped uint64) {
	return atomic.LoadUint64(&h.updatesPublished), atomic.LoadUint64(&h.updatesDropped)
}

// SubscriberCount returns the number of subscribers for a pair.
func (h *Hub) SubscriberCount(symbol string, tf models.Timeframe) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[hubKey(symbol, tf)])
}

// Close closes every subscriber channel and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub)
		}
		delete(h.subscribers, key)
	}
}
