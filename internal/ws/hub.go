package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/delta"
)

// Hub tracks connected clients and fans sequenced changes out to every
// client subscribed to the same document.
type Hub struct {
	mu     sync.RWMutex
	logger *zap.Logger

	// clients maps client ID to client
	clients map[string]*Client

	// documents maps document ID to set of client IDs
	documents map[string]map[string]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the logger used to report failed deliveries.
func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a new Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:    zap.NewNop(),
		clients:   make(map[string]*Client),
		documents: make(map[string]map[string]struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
}

// Unregister removes a client from the hub and any document subscriptions.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Remove from document subscription
	docID := client.DocID()
	if docID != "" {
		if clients, ok := h.documents[docID]; ok {
			delete(clients, client.ID)

			if len(clients) == 0 {
				delete(h.documents, docID)
			}
		}
	}

	delete(h.clients, client.ID)
}

// Subscribe adds a client to a document's broadcast list.
func (h *Hub) Subscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Unsubscribe from previous document
	oldDocID := client.DocID()
	if oldDocID != "" && oldDocID != docID {
		if clients, ok := h.documents[oldDocID]; ok {
			delete(clients, client.ID)

			if len(clients) == 0 {
				delete(h.documents, oldDocID)
			}
		}
	}

	// Subscribe to new document
	if h.documents[docID] == nil {
		h.documents[docID] = make(map[string]struct{})
	}

	h.documents[docID][client.ID] = struct{}{}
	client.SetDocID(docID)
}

// Unsubscribe removes a client from a document's broadcast list.
func (h *Hub) Unsubscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.documents[docID]; ok {
		delete(clients, client.ID)

		if len(clients) == 0 {
			delete(h.documents, docID)
		}
	}

	if client.DocID() == docID {
		client.SetDocID("")
	}
}

// Broadcast sends a message to all clients subscribed to a document,
// except the sender (identified by excludeClientID).
func (h *Hub) Broadcast(docID string, msg Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clientIDs, ok := h.documents[docID]
	if !ok {
		return
	}

	for clientID := range clientIDs {
		if clientID == excludeClientID {
			continue
		}

		client, ok := h.clients[clientID]
		if !ok {
			continue
		}

		// Slow clients must not hold up the sender
		go func(c *Client) {
			if err := c.Send(msg); err != nil {
				h.logger.Warn("broadcast delivery failed",
					zap.String("doc_id", docID),
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
			}
		}(client)
	}
}

// BroadcastDelta pushes a sequenced change to every subscriber of docID
// except the client that submitted it.
func (h *Hub) BroadcastDelta(docID string, revision int, change *delta.Delta, userID, excludeClientID string) {
	msg := Message{
		Type: MessageTypeBroadcast,
		Payload: BroadcastPayload{
			DocID:    docID,
			Revision: revision,
			Delta:    change,
			UserID:   userID,
		},
	}

	h.Broadcast(docID, msg, excludeClientID)
}

// ClientCount returns the number of clients subscribed to a document.
func (h *Hub) ClientCount(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.documents[docID]; ok {
		return len(clients)
	}

	return 0
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
