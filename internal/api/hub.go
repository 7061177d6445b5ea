package api

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trade-assistant/internal/scanner"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub fans scan reports out to connected WebSocket clients. Each
// completed scan becomes one JSON envelope per client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool

	// latest is replayed to newly connected clients.
	latest []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]bool)}
}

// BroadcastReport pushes a scan report to every connected client.
// Intended as the scanner's OnReport hook.
func (h *Hub) BroadcastReport(report scanner.Report) {
	envelope, err := json.Marshal(map[string]any{
		"type":   "scan_report",
		"report": report,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	h.latest = envelope
	for c := range h.clients {
		select {
		case c.send <- envelope:
		default:
			// Slow consumer: drop the frame rather than block the scan.
		}
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds a client and replays the most recent report to it.
func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	if h.latest != nil {
		select {
		case c.send <- h.latest:
		default:
		}
	}
	h.mu.Unlock()
	log.Printf("[api] ws client connected (%d total)", count)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (h *Hub) handleConn(conn *websocket.Conn) {
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}
	h.register(c)
	go c.writePump()
	go c.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// notice closes and run the hub cleanup.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		log.Println("[api] ws client disconnected")
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
