// Package events broadcasts document processing updates to websocket
// subscribers so vault clients can watch OCR progress live.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/private-doc-vault/docvault/pkg/lifecycle"
)

// Update is one processing-state change pushed to subscribers.
type Update struct {
	Type             string    `json:"type"`
	DocumentID       uuid.UUID `json:"document_id"`
	Status           string    `json:"status"`
	Progress         int       `json:"progress,omitempty"`
	CurrentOperation string    `json:"current_operation,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Hub fans processing updates out to connected websocket clients.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates a Hub; call Start before serving connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("system", "events"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		clients:    make(map[*websocket.Conn]bool),
	}
}

// Start runs the hub loop until the lifecycle context is cancelled.
func (h *Hub) Start(lc *lifecycle.Coordinator) error {
	go func() {
		for {
			select {
			case <-lc.Context().Done():
				h.closeAll()
				return
			case conn := <-h.register:
				h.mu.Lock()
				h.clients[conn] = true
				count := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("subscriber connected", "clients", count)
			case conn := <-h.unregister:
				h.drop(conn)
			case message := <-h.broadcast:
				h.send(message)
			}
		}
	}()

	return nil
}

// Publish queues an update for broadcast. Non-blocking: if the hub is
// saturated the update is dropped, since clients can always re-read state
// from the documents API.
func (h *Hub) Publish(update Update) {
	update.Type = "processing_update"
	update.Timestamp = time.Now()

	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("marshal update failed", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping update", "document_id", update.DocumentID)
	}
}

// Serve upgrades an HTTP request to a websocket subscription.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.register <- conn

	// drain client frames so pings are answered; unregister on close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister <- conn
				return
			}
		}
	}()
}

func (h *Hub) send(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("subscriber write failed", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
