// Package ws fans newly created chat messages out to connected WebSocket
// clients. The stream is one-way: clients receive events and send nothing
// except control frames.
package ws

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatty-server/internal/models"
)

// eventMessageNew is the event type clients receive for each new message.
const eventMessageNew = "message:new"

// event is the wire envelope for every frame pushed to clients.
type event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub manages active WebSocket connections and message fan-out.
type Hub struct {
	clients    map[uuid.UUID]*Client // connection ID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a connection hub. allowedOrigins lists the browser origins
// accepted for the handshake; same-host requests and requests without an
// Origin header (non-browser clients) are always accepted.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		logger:     logger.Named("WSHub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     makeOriginChecker(allowedOrigins, h.logger),
	}
	return h
}

// Start launches the hub's control loop.
func (h *Hub) Start() {
	go h.run()
}

func (h *Hub) run() {
	h.logger.Info("Hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			count := len(h.clients)
			h.mu.Unlock()
			connectionsGauge.Set(float64(count))
			h.logger.Info("Client registered", zap.String("connectionID", client.id.String()), zap.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			connectionsGauge.Set(float64(count))
			h.logger.Info("Client unregistered", zap.String("connectionID", client.id.String()), zap.Int("clients", count))

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// The client's queue is full; dropping the connection
					// keeps one slow reader from stalling fan-out.
					h.logger.Warn("Dropping slow client", zap.String("connectionID", client.id.String()))
					droppedClientsTotal.Inc()
					go client.conn.Close()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastNewMessage queues a message:new event for all connected clients.
func (h *Hub) BroadcastNewMessage(msg *models.Message) {
	data, err := json.Marshal(event{Type: eventMessageNew, Payload: msg})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast event", zap.Error(err))
		return
	}
	h.broadcast <- data
	broadcastsTotal.Inc()
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades HTTP requests to WebSocket connections.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			h.logger.Warn("Failed to upgrade connection", zap.Error(err))
			return
		}

		client := &Client{
			id:   uuid.New(),
			conn: conn,
			send: make(chan []byte, 256),
		}
		h.register <- client

		go client.writePump(h)
		go client.readPump(h)
	})
}

func makeOriginChecker(allowedOrigins []string, logger *zap.Logger) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			logger.Warn("Rejected connection with unparsable origin", zap.String("origin", origin))
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		if _, ok := allowed[strings.TrimSuffix(origin, "/")]; ok {
			return true
		}
		logger.Warn("Rejected cross-origin connection", zap.String("origin", origin))
		return false
	}
}
