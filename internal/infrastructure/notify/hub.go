package notify

import (
	"context"
	"sync"

	"reviewdeck/internal/ports"
)

// Event is one published notification as seen by an in-process subscriber.
type Event struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub is the in-process publisher: it fans events out to currently
// subscribed listeners on a channel. No persistence, no replay; a listener
// that connects after an event fires misses it.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

var _ ports.Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a listener on channel. The returned cancel func must
// be called to release the subscription; the event channel is closed then.
func (h *Hub) Subscribe(channel string) (<-chan Event, func()) {
	events := make(chan Event, 16)

	h.mu.Lock()
	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan Event]struct{})
	}
	h.subscribers[channel][events] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[channel], events)
			if len(h.subscribers[channel]) == 0 {
				delete(h.subscribers, channel)
			}
			h.mu.Unlock()
			close(events)
		})
	}
	return events, cancel
}

func (h *Hub) Publish(_ context.Context, channel string, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriber := range h.subscribers[channel] {
		select {
		case subscriber <- Event{Channel: channel, Event: event, Payload: payload}:
		default:
			// Slow listener; delivery is best-effort, drop rather than block.
		}
	}
}
