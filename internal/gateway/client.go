package gateway

import (
	"auction-engine/internal/events"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection. Room membership is owned by the hub.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	bidderID string
	rooms    map[string]struct{}

	// mu orders versioned deliveries to this connection
	mu       sync.Mutex
	versions map[string]int64
}

func newClient(conn *websocket.Conn, bidderID string, buffer int) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, buffer),
		bidderID: bidderID,
		rooms:    make(map[string]struct{}),
		versions: make(map[string]int64),
	}
}

// enqueue reports false when the send queue is full. Callers hold the hub lock.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// deliver enqueues msg unless it describes an auction state older than one
// already queued for this connection. A stale frame is skipped, not failed.
func (c *Client) deliver(msg []byte, payload any) bool {
	v, ok := payload.(events.Versioned)
	if !ok {
		return c.enqueue(msg)
	}
	auctionID, version := v.AuctionVersion()

	c.mu.Lock()
	defer c.mu.Unlock()
	if version < c.versions[auctionID] {
		return true
	}
	if !c.enqueue(msg) {
		return false
	}
	c.versions[auctionID] = version
	return true
}

// forget drops the version watermark once the connection leaves a room
func (c *Client) forget(auctionID string) {
	c.mu.Lock()
	delete(c.versions, auctionID)
	c.mu.Unlock()
}

// writePump is the only writer on the connection.
func (c *Client) writePump(pingPeriod, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
