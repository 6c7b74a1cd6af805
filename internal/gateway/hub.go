// Package gateway pushes refreshed portfolio views to WebSocket dashboard
// clients after each reconcile cycle.
package gateway

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub tracks connected clients and fans the latest cumulative view out to
// them. Slow clients are dropped rather than allowed to backpressure the
// sync loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []byte // last envelope, replayed to newly connected clients
	seq     int64

	// OnClientCountChange, if set, is called with the connected client
	// count after every register/unregister.
	OnClientCountChange func(int)
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Broadcast wraps data in an envelope with a sequence number and timestamp
// and sends it to every connected client. The envelope is kept as the
// initial payload for clients connecting later.
func (h *Hub) Broadcast(channel string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.seq++
	seq := h.seq

	buf := make([]byte, 0, len(channel)+len(data)+96)
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')

	h.latest = buf
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- buf:
		default:
			// client can't keep up; its read/write pumps will clean up
		}
	}
}

// HandleWS upgrades the request and services the client until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register(c)

	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()
	if latest != nil {
		c.send <- latest
	}

	go c.writePump()
	c.readPump(h) // blocks until disconnect
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] client connected (%d total)", n)
	if h.OnClientCountChange != nil {
		h.OnClientCountChange(n)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] client disconnected (%d total)", n)
	if h.OnClientCountChange != nil {
		h.OnClientCountChange(n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
