// Package feed pushes stored notifications to connected websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event is one websocket frame sent to a subscriber.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type subscriberEvent struct {
	SubscriberID uuid.UUID
	Event        Event
}

// Hub tracks connected clients grouped by subscriber and routes events to them.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *subscriberEvent
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a Hub. Call Run before registering clients.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *subscriberEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.subscriberID] == nil {
				h.rooms[client.subscriberID] = make(map[*Client]bool)
			}
			h.rooms[client.subscriberID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[event.SubscriberID] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues event for every client of subscriberID.
func (h *Hub) Broadcast(subscriberID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &subscriberEvent{SubscriberID: subscriberID, Event: event}:
	case <-h.done:
	}
}

// attach registers client, reporting false once the hub has stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Connected reports how many clients subscriberID currently holds open.
func (h *Hub) Connected(subscriberID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[subscriberID])
}

// drop removes client from its room. Callers hold h.mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.subscriberID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.subscriberID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}
