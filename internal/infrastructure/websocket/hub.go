// Package websocket pushes per-session updates to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub configuration constants.
const (
	defaultBroadcastBufferSize = 256
)

// Message is the envelope of every server-to-browser frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Hub manages all WebSocket connections grouped by browser session.
type Hub struct {
	// clients holds all connected clients.
	clients map[*Client]bool

	// sessionClients maps session ids to their connections (one per open tab).
	sessionClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *sessionMessage

	// mu protects concurrent access to maps.
	mu sync.RWMutex

	logger *slog.Logger

	// done signals when the hub should stop.
	done chan struct{}

	running   bool
	runningMu sync.RWMutex
}

type sessionMessage struct {
	sessionID string
	message   []byte
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger for the hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a new Hub with the given options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:        make(map[*Client]bool),
		sessionClients: make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *sessionMessage, defaultBroadcastBufferSize),
		logger:         slog.Default(),
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run starts the hub's main event loop.
// It should be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		return
	}
	h.running = true
	h.runningMu.Unlock()

	h.logger.InfoContext(ctx, "websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case <-h.done:
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Stop signals the hub to stop.
func (h *Hub) Stop() {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return
	}

	close(h.done)
}

// shutdown closes every connection.
func (h *Hub) shutdown() {
	h.runningMu.Lock()
	h.running = false
	h.runningMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
	}

	h.clients = make(map[*Client]bool)
	h.sessionClients = make(map[string]map[*Client]bool)

	h.logger.Info("websocket hub stopped")
}

// Register registers a new client with the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if client.sessionID != "" {
		if h.sessionClients[client.sessionID] == nil {
			h.sessionClients[client.sessionID] = make(map[*Client]bool)
		}
		h.sessionClients[client.sessionID][client] = true
	}

	h.logger.Debug("client registered",
		slog.String("session_id", client.sessionID),
		slog.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	if conns, ok := h.sessionClients[client.sessionID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.sessionClients, client.sessionID)
		}
	}

	delete(h.clients, client)
	client.Close()

	h.logger.Debug("client unregistered",
		slog.String("session_id", client.sessionID),
		slog.Int("total_clients", len(h.clients)),
	)
}

// SendToSession queues message for every connection of a session.
func (h *Hub) SendToSession(sessionID string, message []byte) {
	select {
	case h.broadcast <- &sessionMessage{sessionID: sessionID, message: message}:
	default:
		h.logger.Warn("broadcast buffer full, dropping message",
			slog.String("session_id", sessionID),
		)
	}
}

func (h *Hub) handleBroadcast(msg *sessionMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.sessionClients[msg.sessionID] {
		client.Send(msg.message)
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionConnectionCount returns the number of connections of a session.
func (h *Hub) SessionConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessionClients[sessionID])
}

// IsRunning returns whether the hub is currently running.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}
