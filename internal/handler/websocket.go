package handler

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/coastal-toolkit/tideshell/internal/supervisor"
)

const (
	writeWait = 5 * time.Second
	// clientBuffer is how many messages a slow client may lag before it is dropped
	clientBuffer = 256
)

// Message types sent over /ws
const (
	MessageLog    = "log"
	MessageStdout = "stdout"
	MessageStderr = "stderr"
	MessageStatus = "status"
)

var upgrader = websocket.Upgrader{
	// The diagnostics server only listens where the user told it to.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSMessage is one frame on the diagnostics stream
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketHub fans log lines, server output and status changes out to
// connected diagnostics clients. It also keeps the recent server output.
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool

	output *OutputBuffer
}

// NewWebSocketHub 创建 WebSocket Hub
func NewWebSocketHub(output *OutputBuffer) *WebSocketHub {
	if output == nil {
		output = NewOutputBuffer(DefaultOutputLines)
	}
	return &WebSocketHub{
		clients: make(map[*wsClient]struct{}),
		output:  output,
	}
}

// OutputBuffer returns the buffer the hub records server output into.
func (h *WebSocketHub) OutputBuffer() *OutputBuffer {
	return h.output
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastMessage sends a message to every client. Clients that cannot
// keep up are disconnected rather than blocking the sender.
func (h *WebSocketHub) BroadcastMessage(msgType string, data any) {
	payload, err := sonic.Marshal(WSMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("[WebSocket] Failed to marshal %s message: %v", msgType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Output records a server output chunk and broadcasts it.
func (h *WebSocketHub) Output(kind supervisor.EventKind, data []byte) {
	stream := MessageStdout
	if kind == supervisor.DataErr {
		stream = MessageStderr
	}
	h.output.Write(stream, data)
	h.BroadcastMessage(stream, string(data))
}

// HandleWebSocket upgrades the request and streams messages until the
// client goes away.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client frames; it exists to notice disconnects.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error: %v", err)
			}
			return
		}
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *WebSocketHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *WebSocketHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
