// Package api streams client workspace events to browsers over Server-Sent Events.
package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SSEClient represents a connected SSE stream of one workspace
type SSEClient struct {
	ClientID string
	Channel  chan Event
}

// Event is one message for the browsers of a workspace
type Event struct {
	ClientID  string      `json:"client_id"`
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SSEHub fans events out to the open streams of each workspace
type SSEHub struct {
	clients    map[string]map[chan Event]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan Event
	keepAlive  time.Duration
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:    make(map[string]map[chan Event]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan Event, 100),
		keepAlive:  30 * time.Second,
	}

	go hub.run()
	return hub
}

// run processes SSE hub operations
func (h *SSEHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.ClientID] == nil {
				h.clients[client.ClientID] = make(map[chan Event]bool)
			}
			h.clients[client.ClientID][client.Channel] = true
			log.Printf("[SSE] Stream opened for client %s (streams: %d)",
				client.ClientID, len(h.clients[client.ClientID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.ClientID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				if len(clients) == 0 {
					delete(h.clients, client.ClientID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.ClientID] {
				select {
				case clientChan <- event:
				default:
					log.Printf("[SSE] Stream full for client %s, skipping %s", event.ClientID, event.EventType)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast queues an event for every stream of event.ClientID
func (h *SSEHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping event: %s", event.EventType)
	}
}

// Subscribe opens a stream for clientID; call the returned func to close it
func (h *SSEHub) Subscribe(clientID string) (<-chan Event, func()) {
	ch := make(chan Event, 10)
	h.register <- SSEClient{ClientID: clientID, Channel: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unregister <- SSEClient{ClientID: clientID, Channel: ch} })
	}
}

// HandleSSE streams the events of clientID until the request ends
func (h *SSEHub) HandleSSE(c *gin.Context, clientID string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, unsubscribe := h.Subscribe(clientID)
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			return true

		case <-time.After(h.keepAlive):
			c.SSEvent("ping", `{"status":"alive","timestamp":"`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// GetClientCount returns the number of open streams for clientID
func (h *SSEHub) GetClientCount(clientID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[clientID])
}
