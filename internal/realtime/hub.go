// Package realtime delivers newly persisted break reminders to connected
// clients. A Hub keeps per-agent subscriber channels; a Postgres
// LISTEN/NOTIFY consumer feeds it, so every process serves its own
// connections, including the process whose scheduler inserted the row. Delivery
// is best-effort: a disconnected or slow client simply misses the event and
// reads it later through the notification read path.
package realtime

import (
	"sync"

	"github.com/opsfloor/breakd/internal/reminders"
)

const subscriberBuffer = 8

// Hub is a per-agent fan-out registry.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan reminders.Notification]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan reminders.Notification]struct{})}
}

// Subscribe registers a channel for an agent's reminders. The caller must
// call the returned cancel function when the connection closes.
func (h *Hub) Subscribe(agentID string) (<-chan reminders.Notification, func()) {
	ch := make(chan reminders.Notification, subscriberBuffer)

	h.mu.Lock()
	if h.subs[agentID] == nil {
		h.subs[agentID] = make(map[chan reminders.Notification]struct{})
	}
	h.subs[agentID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[agentID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, agentID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a notification to every session connected for its agent.
// A subscriber whose buffer is full is skipped; the persisted row remains
// the source of truth.
func (h *Hub) Publish(n reminders.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[n.AgentID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of connected sessions for an agent.
func (h *Hub) Subscribers(agentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[agentID])
}
