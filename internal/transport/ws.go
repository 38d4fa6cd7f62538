package transport

import (
	"context"
	"net/http"
	"time"

	"live-bidding/internal/models"
	"live-bidding/utils"

	"github.com/gorilla/websocket"
)

const (
	DefaultSendBuffer  = 64
	DefaultIdleTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
	maxMessageSize     = 4096
)

// MessageHandler is the session layer driven by a transport
type MessageHandler interface {
	Open(connID string) error
	Handle(ctx context.Context, connID string, raw []byte) error
	Disconnect(connID string)
}

// WSConfig tunes websocket connections
type WSConfig struct {
	SendBuffer  int
	IdleTimeout time.Duration
}

func (c WSConfig) withDefaults() WSConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// clients authenticate upstream, any origin may watch
	CheckOrigin: func(*http.Request) bool { return true },
}

// Upgrade switches an HTTP request to the websocket protocol
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// WSConn is a websocket client connection
type WSConn struct {
	id  string
	ws  *websocket.Conn
	out *outbox
	cfg WSConfig
}

// Enqueue queues msg for the writer goroutine
func (c *WSConn) Enqueue(msg models.ServerMessage) error {
	return c.out.Enqueue(msg)
}

// Close stops the writer and closes the socket, which also ends the reader
func (c *WSConn) Close() {
	if c.out.close() {
		_ = c.ws.Close()
	}
}

// ServeWS runs a websocket session until the client leaves, the idle timeout
// passes, or the connection is dropped. It blocks.
func ServeWS(ctx context.Context, ws *websocket.Conn, connID string, hub *Hub, handler MessageHandler, cfg WSConfig) {
	cfg = cfg.withDefaults()
	c := &WSConn{id: connID, ws: ws, out: newOutbox(cfg.SendBuffer), cfg: cfg}

	if err := hub.Register(connID, c); err != nil {
		utils.Error("transport: register failed", map[string]any{"conn_id": connID, "error": err.Error()})
		_ = ws.Close()
		return
	}
	if err := handler.Open(connID); err != nil {
		utils.Error("transport: open session failed", map[string]any{"conn_id": connID, "error": err.Error()})
		hub.Drop(connID)
		return
	}
	utils.Info("transport: websocket connected", map[string]any{"conn_id": connID, "remote": ws.RemoteAddr().String()})

	go c.writePump()
	c.readPump(ctx, handler)

	handler.Disconnect(connID)
	hub.Drop(connID)
	utils.Info("transport: websocket disconnected", map[string]any{"conn_id": connID})
}

func (c *WSConn) readPump(ctx context.Context, handler MessageHandler) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Warn("transport: websocket read failed", map[string]any{"conn_id": c.id, "error": err.Error()})
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))

		if err := handler.Handle(ctx, c.id, raw); err != nil {
			utils.Warn("transport: closing connection after handler error", map[string]any{"conn_id": c.id, "error": err.Error()})
			return
		}
	}
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(c.cfg.IdleTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-c.out.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.out.ch:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				utils.Warn("transport: websocket write failed", map[string]any{"conn_id": c.id, "error": err.Error()})
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
