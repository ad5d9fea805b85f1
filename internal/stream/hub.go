// Package stream relays a room's change signals to connected SSE and
// WebSocket clients.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
)

// ErrHubUnavailable is returned when a client could not be attached to a hub
var ErrHubUnavailable = errors.New("stream hub unavailable")

// Hub manages the stream clients of a single room
type Hub struct {
	roomCode model.RoomCode
	clients  map[*Client]bool
	mu       sync.RWMutex
	logger   *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for a room
func NewHub(roomCode model.RoomCode, logger *slog.Logger) *Hub {
	return &Hub{
		roomCode:   roomCode,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("room", string(roomCode))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's event loop. Signals arriving on sub are broadcast to
// every client; sub is closed when the hub stops. Losing the subscription
// stops the hub and disconnects its clients so they reconnect to a fresh one.
func (h *Hub) Run(sub *notify.Subscription) {
	defer close(h.stopped)
	defer sub.Close()

	events := sub.C
	h.logger.Info("stream hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("stream client registered",
				slog.String("client_id", client.id),
				slog.String("transport", client.transport),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("stream client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case event, ok := <-events:
			if !ok {
				h.logger.Warn("stream hub lost its subscription",
					slog.Int("disconnected_clients", h.disconnectAll()))
				return
			}
			h.fanOut(event)

		case <-h.done:
			h.logger.Info("stream hub stopped", slog.Int("disconnected_clients", h.disconnectAll()))
			return
		}
	}
}

func (h *Hub) disconnectAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	return count
}

func (h *Hub) fanOut(event model.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sentCount := 0
	droppedCount := 0
	for client := range h.clients {
		if notify.Offer(client.send, event) {
			sentCount++
		} else {
			droppedCount++
			h.logger.Warn("stream message dropped - client buffer full",
				slog.String("client_id", client.id))
		}
	}
	if droppedCount > 0 {
		h.logger.Warn("stream broadcast partial failure",
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

// Register adds a client to the hub. Returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// Close shuts down the hub and waits for its loop to exit
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}

// Stopped reports whether the hub's loop has exited
func (h *Hub) Stopped() bool {
	select {
	case <-h.stopped:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages hubs for all rooms
type HubManager struct {
	hubs   map[model.RoomCode]*Hub
	mu     sync.Mutex
	bus    notify.Subscriber
	ctx    context.Context
	logger *slog.Logger
}

// NewHubManager creates a new HubManager. Hub subscriptions live until ctx
// is cancelled or the manager is closed.
func NewHubManager(ctx context.Context, bus notify.Subscriber, logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomCode]*Hub),
		bus:    bus,
		ctx:    ctx,
		logger: logger.With(slog.String("component", "stream")),
	}
}

// GetOrCreateHub returns the hub for a room, creating and subscribing one
// if it doesn't exist or has stopped
func (m *HubManager) GetOrCreateHub(roomCode model.RoomCode) (*Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomCode]; ok && !hub.Stopped() {
		return hub, nil
	}

	sub, err := m.bus.Subscribe(m.ctx, roomCode)
	if err != nil {
		return nil, err
	}

	hub := NewHub(roomCode, m.logger)
	m.hubs[roomCode] = hub
	go func() {
		hub.Run(sub)
		m.RemoveHub(hub)
	}()
	return hub, nil
}

// Attach registers client with the room's hub, replacing a hub that stopped
// between lookup and registration
func (m *HubManager) Attach(roomCode model.RoomCode, client *Client) (*Hub, error) {
	for attempt := 0; attempt < 3; attempt++ {
		hub, err := m.GetOrCreateHub(roomCode)
		if err != nil {
			return nil, err
		}
		if hub.Register(client) {
			return hub, nil
		}
	}
	return nil, ErrHubUnavailable
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomCode model.RoomCode) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hubs[roomCode]
}

// RemoveHub closes hub and forgets it unless the room already has a newer one
func (m *HubManager) RemoveHub(hub *Hub) {
	hub.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hubs[hub.roomCode] == hub {
		delete(m.hubs, hub.roomCode)
		m.logger.Info("stream hub removed", slog.String("room", string(hub.roomCode)))
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for code, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, code)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("stream empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// RunCleanup removes empty hubs every interval until ctx is cancelled
func (m *HubManager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupEmptyHubs()
		}
	}
}

// Close stops every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, code)
	}
}
