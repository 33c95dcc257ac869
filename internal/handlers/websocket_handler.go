package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler streams recorded tracking events to operator dashboards.
// The broadcast channel is fed by the cross-instance event stream, so a
// dashboard sees events regardless of which instance recorded them.
type WebSocketHandler struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	log        *zap.Logger
}

func NewWebSocketHandler(log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log,
	}
}

// Broadcast queues an event for every connected dashboard. Drops the event
// when the hub is saturated; the live feed is best-effort.
func (h *WebSocketHandler) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.log.Debug("Event feed saturated, dropping broadcast")
	}
}

// HandleConnections handles GET /ws
func (h *WebSocketHandler) HandleConnections(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		h.unregister <- ws
		ws.Close()
	}()

	h.register <- ws

	go h.readLoop(ws)

	// Keep the connection alive until the peer goes away.
	for {
		time.Sleep(30 * time.Second)
		if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) readLoop(ws *websocket.Conn) {
	for {
		var msg map[string]interface{}
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch msg["type"] {
		case "ping":
			ws.WriteJSON(map[string]interface{}{"type": "pong", "time": time.Now().Unix()})
		default:
			ws.WriteJSON(map[string]interface{}{"type": "error", "message": "Unknown message type"})
		}
	}
}

// RunHub owns the client set; runs on its own goroutine for the process
// lifetime.
func (h *WebSocketHandler) RunHub() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}
