package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/work"
	"github.com/dixieflatline76/PexWall/util"
	"github.com/dixieflatline76/PexWall/util/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event types pushed to WebSocket clients
const (
	EventWallpaperSet    = "wallpaper_set"
	EventFavoriteChanged = "favorite_changed"
	EventMessage         = "message"
	EventWorkScheduled   = work.EventScheduled
	EventWorkCancelled   = work.EventCancelled
)

const writeWait = 5 * time.Second

// Event is one WebSocket message.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans events out to every connected WebSocket client.
type Hub struct {
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	count     *util.SafeCounter
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Local clients only; the listener is bound to loopback by default
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]bool),
		count:   util.NewSafeCounter(0),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return h.count.Value()
}

// Broadcast sends an event to all connected clients. Clients that fail the write are dropped.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	msg := Event{Type: eventType, Data: data}
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(msg); err != nil {
			log.Printf("Failed to broadcast to client: %v", err)
			client.Close()
			delete(h.clients, client)
			h.count.Add(-1)
		}
	}
}

// Notify forwards a user facing message. It makes the Hub a setter.Notifier.
func (h *Hub) Notify(msg string) {
	h.Broadcast(EventMessage, gin.H{"text": msg})
}

// OnWallpaperSet reports an applied wallpaper, whether a client asked for it
// or background work rotated it in.
func (h *Hub) OnWallpaperSet(id int, res *setter.Result) {
	h.Broadcast(EventWallpaperSet, gin.H{"id": id, "result": res})
}

// OnWorkEvent forwards scheduling changes of background work.
func (h *Hub) OnWorkEvent(e work.Event) {
	switch e.Type {
	case work.EventScheduled, work.EventCancelled:
		h.Broadcast(e.Type, e.Request)
	case work.EventFailed:
		h.Broadcast(EventMessage, gin.H{"text": e.Error, "work": e.Request.Name})
	}
}

// ServeWS upgrades the connection and keeps it registered until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.clientsMu.Lock()
	h.clients[conn] = true
	h.count.Increment()
	h.clientsMu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		if h.clients[conn] {
			delete(h.clients, conn)
			h.count.Add(-1)
		}
		h.clientsMu.Unlock()
	}()

	for {
		// Clients only send keepalives
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		_ = client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		client.Close()
		delete(h.clients, client)
	}
	h.count.Set(0)
}
