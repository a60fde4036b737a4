package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/pantrypal/api/internal/model"
)

// Client is one WebSocket subscriber to a request id
type Client struct {
	RequestID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Hub fans out pipeline run updates to subscribers of a request id
type Hub struct {
	// Clients grouped by request ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once

	mu     sync.RWMutex
	logger *slog.Logger
}

// BroadcastMessage is a message for every subscriber of RequestID
type BroadcastMessage struct {
	RequestID string
	Message   []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "ws_hub"),
	}
}

// Run starts the hub's main loop; it returns after Close
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.RequestID] == nil {
				h.clients[client.RequestID] = make(map[*Client]bool)
			}
			h.clients[client.RequestID][client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "request_id", client.RequestID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "request_id", client.RequestID)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.RequestID] {
				select {
				case client.Send <- msg.Message:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.RequestID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.Send)
		if len(clients) == 0 {
			delete(h.clients, client.RequestID)
		}
	}
}

// Close stops Run
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Subscribers returns how many clients listen on requestID
func (h *Hub) Subscribers(requestID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[requestID])
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastStatus reports one poll of a pipeline run
func (h *Hub) BroadcastStatus(requestID, runID, state string, attempt int) {
	h.send(requestID, model.WSStatusMessage{
		Type:      model.WSMessageTypeStatus,
		RequestID: requestID,
		RunID:     runID,
		State:     state,
		Attempt:   attempt,
	})
}

// BroadcastComplete sends the final result of a request
func (h *Hub) BroadcastComplete(requestID string, result interface{}) {
	h.send(requestID, model.WSCompleteMessage{
		Type:      model.WSMessageTypeComplete,
		RequestID: requestID,
		Result:    result,
	})
}

// BroadcastError sends a request failure
func (h *Hub) BroadcastError(requestID string, code, message string) {
	h.send(requestID, model.WSErrorMessage{
		Type:      model.WSMessageTypeError,
		RequestID: requestID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
}

// send never blocks the caller: updates come from polling loops
func (h *Hub) send(requestID string, msg interface{}) {
	if requestID == "" {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal ws message", "error", err)
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{RequestID: requestID, Message: data}:
	default:
		h.logger.Warn("ws broadcast queue full, dropping message", "request_id", requestID)
	}
}

// HandleConnection serves one WebSocket connection until it closes
func (h *Hub) HandleConnection(c *websocket.Conn, requestID string) {
	client := &Client{
		RequestID: requestID,
		Conn:      c,
		Send:      make(chan []byte, 64),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", "request_id", requestID, "error", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			h.send(requestID, model.WSMessage{Type: model.WSMessageTypePong})
		}
	}
}
