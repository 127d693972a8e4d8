// Package ws pushes live board activity to connected dashboard clients
// over WebSocket. The hub owns the client set; each display cycle is
// broadcast as a {"type": "display"} message.
package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/observability"
)

// Message types pushed to dashboard clients.
const (
	MessageTypeDisplay = "display"
	MessageTypeCatalog = "catalog"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
)

// Message is the envelope for every frame sent over the socket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and fans broadcast messages out
// to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewHub creates a hub. Run must be called before clients attach.
func NewHub(logger *zap.Logger, metrics observability.MetricsRegistry) *Hub {
	if logger == nil {
		logger = zap.L()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
		metrics:    metrics,
	}
}

// Run services registrations and broadcasts until ctx is canceled, then
// closes every attached client and returns ctx.Err().
//
// Lifecycle events are drained before broadcasts so the client set is
// settled when a message fans out. Go's select picks randomly among ready
// channels, so the ordering needs the explicit two-step.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetWSClients(count)
	h.logger.Info("WebSocket client connected", zap.Int("total_clients", count))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetWSClients(count)
	h.logger.Info("WebSocket client disconnected", zap.Int("total_clients", count))
}

// broadcastToClients fans a message out in client ID order. A client whose
// send buffer is full is dropped; its write pump is stuck and the board
// must not block on it.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		h.logger.Warn("Dropped slow WebSocket client", zap.Uint64("client_id", client.id))
	}
	if len(toRemove) > 0 {
		h.metrics.SetWSClients(len(h.clients))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	h.metrics.SetWSClients(0)
	h.logger.Info("WebSocket hub stopped",
		zap.Int("clients_closed", count),
		zap.NamedError("reason", ctx.Err()))
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastDisplay pushes the outcome of a display cycle. The payload is
// the decision as served by /api/decision/next.
func (h *Hub) BroadcastDisplay(decision interface{}) {
	h.enqueue(Message{Type: MessageTypeDisplay, Data: decision})
}

// CatalogUpdateData accompanies a catalog message after an admin edit or
// reload lands.
type CatalogUpdateData struct {
	Timestamp string `json:"timestamp"`
	AdCount   int    `json:"ad_count"`
}

// BroadcastCatalogUpdate tells dashboards the ad catalog changed so they
// can refetch /api/ads.
func (h *Hub) BroadcastCatalogUpdate(adCount int) {
	h.enqueue(Message{
		Type: MessageTypeCatalog,
		Data: CatalogUpdateData{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			AdCount:   adCount,
		},
	})
}

func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", zap.String("type", message.Type))
	}
}

// MarshalMessage encodes a message for the wire.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
