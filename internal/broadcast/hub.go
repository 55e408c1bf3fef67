// Package broadcast fans room events out to connected clients.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/protocol"
	"github.com/mcoot/shadowtag/internal/services/session"
)

// Hub manages the clients of a single room. Events and direct messages share
// one queue so each client sees them in the order they were sent.
type Hub struct {
	roomID  model.RoomID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Last snapshot fanned out, used to bring new clients up to date
	last *model.Snapshot

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	queue      chan delivery
	done       chan struct{}
	closeOnce  sync.Once
}

// delivery is either a room event for every client or a message for one
type delivery struct {
	event    *model.Event
	client   *Client
	message  protocol.Message
	fallback *model.Snapshot // Set for a refresh
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("room", string(roomID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		queue:      make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client registered",
				slog.String("player_id", string(client.PlayerID())),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("client unregistered",
					slog.String("player_id", string(client.PlayerID())),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case d := <-h.queue:
			h.handle(d)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) handle(d delivery) {
	switch {
	case d.event != nil:
		snap := d.event.Snapshot
		h.last = &snap
		h.fanOut(*d.event)

	case d.fallback != nil:
		snap := d.fallback
		if h.last != nil {
			snap = h.last
		}
		msg, err := protocol.EncodeSnapshot(model.EventRoomUpdated, *snap, d.client.PlayerID())
		if err != nil {
			h.logger.Error("failed to encode snapshot", slog.Any("error", err))
			return
		}
		h.deliverIfRegistered(d.client, msg)

	default:
		h.deliverIfRegistered(d.client, d.message)
	}
}

func (h *Hub) deliverIfRegistered(client *Client, msg protocol.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[client] {
		h.deliver(client, msg)
	}
}

// fanOut encodes the event once per distinct viewer so that
// descriptions stay private during the description phase.
func (h *Hub) fanOut(event model.Event) {
	encoded := make(map[model.PlayerID]protocol.Message)
	sentCount := 0
	droppedCount := 0

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		viewer := client.PlayerID()
		if event.Snapshot.Phase != model.PhaseDescription {
			viewer = ""
		}
		msg, ok := encoded[viewer]
		if !ok {
			var err error
			msg, err = protocol.EncodeSnapshot(event.Type, event.Snapshot, viewer)
			if err != nil {
				h.logger.Error("failed to encode event",
					slog.String("type", string(event.Type)),
					slog.Any("error", err))
				return
			}
			encoded[viewer] = msg
		}
		if h.deliver(client, msg) {
			sentCount++
		} else {
			droppedCount++
		}
	}
	if droppedCount > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

func (h *Hub) deliver(client *Client, msg protocol.Message) bool {
	select {
	case client.send <- msg:
		return true
	default:
		h.logger.Warn("message dropped - client buffer full",
			slog.String("player_id", string(client.PlayerID())))
		return false
	}
}

// Register adds a client to the hub. It returns false if the hub is closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a room event for every client. It never blocks the caller.
func (h *Hub) Publish(event model.Event) {
	select {
	case <-h.done:
		return
	default:
	}
	h.enqueue(delivery{event: &event}, "broadcast dropped - hub buffer full")
}

// Send queues a message for one registered client only
func (h *Hub) Send(client *Client, message protocol.Message) {
	h.enqueue(delivery{client: client, message: message}, "direct message dropped - hub buffer full")
}

// Refresh sends one client the latest snapshot the hub has broadcast, as
// seen by that client. fallback is used before anything has been broadcast.
func (h *Hub) Refresh(client *Client, fallback model.Snapshot) {
	h.enqueue(delivery{client: client, fallback: &fallback}, "refresh dropped - hub buffer full")
}

func (h *Hub) enqueue(d delivery, dropMessage string) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.queue <- d:
	default:
		h.logger.Warn(dropMessage)
	}
}

// Close shuts down the hub and disconnects its clients
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Done is closed when the hub shuts down
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages hubs for all rooms
type HubManager struct {
	hubs   map[model.RoomID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomID]*Hub),
		logger: logger.With(slog.String("component", "broadcast")),
	}
}

// GetOrCreateHub returns the hub for a room, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(roomID model.RoomID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		return hub
	}

	hub := NewHub(roomID, m.logger)
	m.hubs[roomID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// Publisher returns the publisher a room session uses. The hub is looked up
// on every event so a session never holds on to a hub that has been removed.
func (m *HubManager) Publisher(roomID model.RoomID) session.Publisher {
	return session.PublisherFunc(func(event model.Event) {
		m.GetOrCreateHub(roomID).Publish(event)
	})
}

// ClientCount returns the number of clients connected to a room
func (m *HubManager) ClientCount(roomID model.RoomID) int {
	hub := m.GetHub(roomID)
	if hub == nil {
		return 0
	}
	return hub.ClientCount()
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		hub.Close()
		delete(m.hubs, roomID)
		m.logger.Info("hub removed", slog.String("room", string(roomID)))
	}
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}
