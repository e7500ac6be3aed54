package gateway

import (
	"auction-engine/internal/metrics"
	"auction-engine/utils"
	"encoding/json"
	"sync"
)

// envelope is the JSON frame exchanged in both directions
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: data})
}

// Hub tracks connections, auction rooms and per-bidder channels, and fans
// events out to them. It implements events.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	bidders map[string]map[*Client]struct{}
	metrics *metrics.AuctionMetrics
}

func NewHub(m *metrics.AuctionMetrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		bidders: make(map[string]map[*Client]struct{}),
		metrics: m,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	addMember(h.bidders, c.bidderID, c)
	h.metrics.ConnectionOpened()
}

// unregister removes c from every room and closes its send queue. Safe to call twice.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for auctionID := range c.rooms {
		removeMember(h.rooms, auctionID, c)
	}
	c.rooms = nil
	removeMember(h.bidders, c.bidderID, c)
	close(c.send)
	h.metrics.ConnectionClosed()
}

func (h *Hub) join(c *Client, auctionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	addMember(h.rooms, auctionID, c)
	c.rooms[auctionID] = struct{}{}
}

func (h *Hub) leave(c *Client, auctionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeMember(h.rooms, auctionID, c)
	delete(c.rooms, auctionID)
	c.forget(auctionID)
}

// ToRoom multicasts to every connection subscribed to the auction.
func (h *Hub) ToRoom(auctionID, event string, payload any) {
	h.fanOut(h.rooms, auctionID, event, payload)
}

// ToBidder delivers to every connection of one bidder.
func (h *Hub) ToBidder(bidderID, event string, payload any) {
	h.fanOut(h.bidders, bidderID, event, payload)
}

// send delivers to a single connection
func (h *Hub) send(c *Client, event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		utils.Error("Failed to encode gateway event", map[string]any{"event": event, "error": err.Error()})
		return
	}
	h.mu.RLock()
	_, registered := h.clients[c]
	ok := registered && c.deliver(msg, payload)
	h.mu.RUnlock()
	if registered && !ok {
		h.dropSlow([]*Client{c})
	}
}

func (h *Hub) fanOut(index map[string]map[*Client]struct{}, key, event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		utils.Error("Failed to encode gateway event", map[string]any{"event": event, "key": key, "error": err.Error()})
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range index[key] {
		if !c.deliver(msg, payload) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.dropSlow(slow)
	}
}

// dropSlow disconnects clients whose send queue is full
func (h *Hub) dropSlow(clients []*Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range clients {
		if _, ok := h.clients[c]; !ok {
			continue
		}
		utils.Warn("Dropping slow gateway connection", map[string]any{"bidderID": c.bidderID})
		h.removeLocked(c)
	}
}

// RoomSize returns the number of connections subscribed to the auction
func (h *Hub) RoomSize(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[auctionID])
}

// Connections returns the number of open connections
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func addMember(index map[string]map[*Client]struct{}, key string, c *Client) {
	members, ok := index[key]
	if !ok {
		members = make(map[*Client]struct{})
		index[key] = members
	}
	members[c] = struct{}{}
}

func removeMember(index map[string]map[*Client]struct{}, key string, c *Client) {
	members, ok := index[key]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(index, key)
	}
}
