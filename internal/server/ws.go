package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/silenttalk/signlens/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	hubSendBuffer = 16
	writeWait     = 5 * time.Second
)

// Hub pushes session events to websocket clients. It implements
// session.Listener.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	log     *slog.Logger
}

// NewHub creates a Hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte), log: logger}
}

type signMessage struct {
	Type      string   `json:"type"`
	Sign      string   `json:"sign"`
	Signs     []string `json:"signs"`
	Timestamp int64    `json:"timestamp"`
}

type stateMessage struct {
	Type      string           `json:"type"`
	State     session.Snapshot `json:"state"`
	Timestamp int64            `json:"timestamp"`
}

// SignDetected broadcasts a newly detected sign.
func (h *Hub) SignDetected(sign string, signs []string) {
	h.broadcast(signMessage{Type: "sign", Sign: sign, Signs: signs, Timestamp: time.Now().UnixMilli()})
}

// StateChanged broadcasts a session phase change.
func (h *Hub) StateChanged(s session.Snapshot) {
	h.broadcast(stateMessage{Type: "state", State: s, Timestamp: time.Now().UnixMilli()})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues msg for every client without blocking; clients that
// fall behind lose messages.
func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal websocket message", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, send := range h.clients {
		select {
		case send <- data:
		default:
		}
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	send := make(chan []byte, hubSendBuffer)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Keep connection alive by reading messages
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case data := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
