// internal/handler/websocket_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sensolog/internal/utils"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConnectionManager manages WebSocket connections
type ConnectionManager struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

// Register registers a new client
func (cm *ConnectionManager) Register(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.clients[client.ID] = client
}

// Unregister unregisters a client and closes its send channel
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if _, ok := cm.clients[client.ID]; ok {
		delete(cm.clients, client.ID)
		close(client.Send)
	}
}

// Broadcast sends a payload to every connected client. Slow clients
// are skipped.
func (cm *ConnectionManager) Broadcast(payload []byte) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	for _, client := range cm.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// WebSocketHandler streams measurement rows to connected clients. It
// doubles as a data logger output: every logged row is broadcast.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	connections *ConnectionManager
	logger      *utils.ServiceLogger

	mutex  sync.RWMutex
	header []string
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		connections: NewConnectionManager(),
		logger:      utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/measurements", h.HandleMeasurementConnection)
}

// HandleMeasurementConnection upgrades the connection and subscribes
// the client to the measurement stream.
func (h *WebSocketHandler) HandleMeasurementConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	// Send the current header so the client can label row values.
	h.mutex.RLock()
	header := h.header
	h.mutex.RUnlock()
	if header != nil {
		if payload, err := json.Marshal(WebSocketMessage{
			Type:      "header",
			Data:      header,
			Timestamp: time.Now(),
		}); err == nil {
			client.Send <- payload
		}
	}

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead drains client messages until the connection closes
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadLimit(512)
	for {
		if _, _, err := client.Connection.ReadMessage(); err != nil {
			return
		}
	}
}

// handleClientWrite pumps broadcast payloads to the client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	for payload := range client.Send {
		client.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := client.Connection.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
}

// WriteHeader implements the data logger output contract
func (h *WebSocketHandler) WriteHeader(names []string) error {
	h.mutex.Lock()
	h.header = append([]string(nil), names...)
	h.mutex.Unlock()
	return nil
}

// Log implements the data logger output contract: every row is
// broadcast to all connected clients.
func (h *WebSocketHandler) Log(timestamp time.Time, values []*float64) error {
	payload, err := json.Marshal(WebSocketMessage{
		Type: "measurement",
		Data: gin.H{
			"recorded_at": timestamp.Format(time.RFC3339),
			"values":      values,
		},
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	h.connections.Broadcast(payload)
	return nil
}
