package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ecodrop-backend/internal/models"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients (userID -> Client)
	clients map[string]*Client

	// Messages addressed to a single user
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// Message represents a message to broadcast to a specific user
type Message struct {
	UserID string
	Data   interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.UserID]; ok && old != client {
				// a second connection for the same user replaces the first
				close(old.send)
			}
			h.clients[client.UserID] = client
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client connected: %s (%s), %d total", client.UserID, client.UserRole, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.UserID]; ok && current == client {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client disconnected: %s (%s), %d remaining", client.UserID, client.UserRole, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.Lock()
			if client, ok := h.clients[message.UserID]; ok {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client.UserID)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", message.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client. It blocks until the hub loop accepts it; once the
// hub has stopped the client's send channel is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

// Unregister is a no-op after the hub has stopped, which already closed
// every registered client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	select {
	case h.broadcast <- &Message{UserID: userID, Data: data}:
	default:
		log.Printf("⚠️ Hub broadcast queue full, dropping message for %s", userID)
	}
}

// BroadcastToRole sends a message to all users with a specific role
func (h *Hub) BroadcastToRole(role string, data interface{}) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		log.Printf("❌ Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserRole == role {
			select {
			case client.send <- dataBytes:
			default:
			}
		}
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// DropConfirmedPayload is broadcast to admins and to the dropping user.
type DropConfirmedPayload struct {
	DropEventID  string  `json:"dropEventId"`
	UserID       string  `json:"userId"`
	BinID        string  `json:"binId"`
	BinName      string  `json:"binName"`
	PointsEarned int     `json:"pointsEarned"`
	CO2Saved     float64 `json:"co2Saved"`
	FillLevel    int     `json:"fillLevel"`
	UserPoints   int     `json:"userPoints"`
}

type BinFullPayload struct {
	BinID     string `json:"binId"`
	BinName   string `json:"binName"`
	FillLevel int    `json:"fillLevel"`
}

// DropRewarded fans a credited drop out to admins and the user's own
// connection, plus a bin_full alert when the drop filled the bin.
func (h *Hub) DropRewarded(_ context.Context, drop models.DropEvent, outcome models.RewardOutcome) {
	msg := newMessage(MsgDropConfirmed, DropConfirmedPayload{
		DropEventID:  drop.ID,
		UserID:       drop.UserID,
		BinID:        drop.BinID,
		BinName:      outcome.BinName,
		PointsEarned: drop.PointsEarned,
		CO2Saved:     drop.CO2Saved,
		FillLevel:    outcome.FillLevel,
		UserPoints:   outcome.UserPoints,
	})
	h.BroadcastToRole(models.RoleAdmin, msg)
	h.BroadcastToUser(drop.UserID, msg)

	if outcome.BinBecameFull {
		h.BroadcastToRole(models.RoleAdmin, newMessage(MsgBinFull, BinFullPayload{
			BinID:     outcome.BinID,
			BinName:   outcome.BinName,
			FillLevel: outcome.FillLevel,
		}))
	}
}

// BinUpdated tells admins about a manual bin change.
func (h *Hub) BinUpdated(bin models.Bin) {
	h.BroadcastToRole(models.RoleAdmin, newMessage(MsgBinUpdated, bin.ToBinResponse()))
}
