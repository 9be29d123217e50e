package api

import (
	"sync"

	"github.com/dekdek-app/dekdek/internal/models"
)

// subscriberBuffer bounds how far a slow stream may fall behind
const subscriberBuffer = 16

// Hub fans stored notifications out to the live streams of their user
type Hub struct {
	mu   sync.RWMutex
	subs map[int]map[chan *models.Notification]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]map[chan *models.Notification]struct{})}
}

// Subscribe registers a stream for userID. The returned func unregisters it
// and closes the channel.
func (h *Hub) Subscribe(userID int) (<-chan *models.Notification, func()) {
	ch := make(chan *models.Notification, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan *models.Notification]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers n to every stream of its user. A full stream drops the
// message; the client still finds it when listing.
func (h *Hub) Publish(n *models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribers returns the number of open streams for userID
func (h *Hub) Subscribers(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
