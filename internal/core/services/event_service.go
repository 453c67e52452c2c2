package services

import (
	"log"
	"sync"
	"time"
)

// Circulation event names
const (
	EventBorrowed = "borrowing.created"
	EventReturned = "borrowing.returned"
	EventOverdue  = "borrowing.overdue"
)

// eventBuffer is how many events a slow client may fall behind before drops
const eventBuffer = 50

// Event is one circulation change pushed to subscribers
type Event struct {
	Name string      `json:"event"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// EventClient is one connected subscriber
type EventClient struct {
	ID      string
	UserID  int
	Channel chan Event
}

// EventHub fans circulation events out to connected clients.
// A nil hub drops every event.
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*EventClient
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[string]*EventClient)}
}

// Subscribe registers a client and returns it
func (h *EventHub) Subscribe(id string, userID int) *EventClient {
	client := &EventClient{ID: id, UserID: userID, Channel: make(chan Event, eventBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = client
	log.Printf("📡 Event client registered: %s (user=%d) | total=%d", id, userID, len(h.clients))
	return client
}

// Unsubscribe removes a client and closes its channel
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[id]; ok {
		close(client.Channel)
		delete(h.clients, id)
		log.Printf("📡 Event client unregistered: %s | total=%d", id, len(h.clients))
	}
}

// Publish sends an event to every client without blocking
func (h *EventHub) Publish(name string, data interface{}) {
	if h == nil {
		return
	}
	event := Event{Name: name, At: time.Now().UTC(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Channel <- event:
		default:
			log.Printf("⚠️ Event channel full for client %s, skipping %s", client.ID, name)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
