package handler

import (
	"context"
	"io"
	"net/http"

	"live-bidding/internal/biddingerrors"
	model "live-bidding/internal/models"
	"live-bidding/internal/transport"
	"live-bidding/utils"

	"github.com/gin-gonic/gin"
)

// SessionManager is the connection session layer behind the live endpoints
type SessionManager interface {
	Open(connID string) error
	Handle(ctx context.Context, connID string, raw []byte) error
	HandleMessage(ctx context.Context, connID string, msg model.ClientMessage) error
	Disconnect(connID string)
}

type LiveHandler struct {
	hub      *transport.Hub
	sessions SessionManager
	cfg      transport.WSConfig
}

func NewLiveHandler(hub *transport.Hub, sessions SessionManager, cfg transport.WSConfig) *LiveHandler {
	return &LiveHandler{hub: hub, sessions: sessions, cfg: cfg}
}

// WebSocketHandler handles GET /ws
func (h *LiveHandler) WebSocketHandler(c *gin.Context) {
	ws, err := transport.Upgrade(c.Writer, c.Request)
	if err != nil {
		// the upgrader already wrote the HTTP error
		utils.Warn("WebSocketHandler: upgrade failed", map[string]any{"error": err.Error()})
		return
	}
	transport.ServeWS(c.Request.Context(), ws, utils.NewConnectionID(), h.hub, h.sessions, h.cfg)
}

// StreamItemHandler handles GET /items/:item_id/events as a read-only
// server-sent events session joined to one item.
func (h *LiveHandler) StreamItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	if itemID == "" {
		utils.JSONError(c, http.StatusBadRequest, biddingerrors.ErrInvalidBid, "missing item id")
		return
	}

	connID := utils.NewConnectionID()
	conn := transport.NewSSEConn(h.cfg.SendBuffer)
	if err := h.hub.Register(connID, conn); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err, "internal server error")
		return
	}
	if err := h.sessions.Open(connID); err != nil {
		h.hub.Drop(connID)
		utils.JSONError(c, http.StatusInternalServerError, err, "internal server error")
		return
	}
	defer func() {
		h.sessions.Disconnect(connID)
		h.hub.Drop(connID)
	}()

	ctx := c.Request.Context()
	if err := h.sessions.HandleMessage(ctx, connID, model.ClientMessage{Type: model.MessageJoinItem, ItemID: itemID}); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, err, "could not join item")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	utils.Info("StreamItemHandler: stream opened", map[string]any{"conn_id": connID, "item_id": itemID})
	c.Stream(func(_ io.Writer) bool {
		select {
		case msg := <-conn.Messages():
			c.SSEvent(msg.Type, msg)
			return true
		case <-conn.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
	utils.Info("StreamItemHandler: stream closed", map[string]any{"conn_id": connID, "item_id": itemID})
}
