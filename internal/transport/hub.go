package transport

import (
	"fmt"
	"sync"

	"live-bidding/internal/biddingerrors"
	"live-bidding/internal/models"
	"live-bidding/utils"
)

// Conn is one client connection able to queue outbound messages
type Conn interface {
	Enqueue(msg models.ServerMessage) error
	Close()
}

// Hub maps connection IDs to live connections and implements point-to-point
// delivery for the session manager and the broadcast coordinator.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// Register adds a connection
func (h *Hub) Register(connID string, c Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; ok {
		return fmt.Errorf("transport: connection %s already registered", connID)
	}
	h.conns[connID] = c
	return nil
}

// Send queues msg for connID. It never waits for the network.
func (h *Hub) Send(connID string, msg models.ServerMessage) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transport: %w - %s", biddingerrors.ErrConnectionClosed, connID)
	}
	if err := c.Enqueue(msg); err != nil {
		return fmt.Errorf("transport: send to %s: %w", connID, err)
	}
	return nil
}

// Drop unregisters and closes a connection. Unknown IDs are ignored.
func (h *Hub) Drop(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	delete(h.conns, connID)
	h.mu.Unlock()

	if ok {
		c.Close()
		utils.Debug("transport: connection dropped", map[string]any{"conn_id": connID})
	}
}

// Len returns the number of registered connections
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// outbox is a bounded per-connection send queue. A full queue means the
// client is not keeping up and the connection should be dropped.
type outbox struct {
	ch   chan models.ServerMessage
	done chan struct{}
	once sync.Once
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultSendBuffer
	}
	return &outbox{
		ch:   make(chan models.ServerMessage, size),
		done: make(chan struct{}),
	}
}

func (o *outbox) Enqueue(msg models.ServerMessage) error {
	select {
	case <-o.done:
		return biddingerrors.ErrConnectionClosed
	default:
	}
	select {
	case o.ch <- msg:
		return nil
	default:
		return biddingerrors.ErrSlowConsumer
	}
}

// close reports whether this call closed the outbox
func (o *outbox) close() bool {
	closed := false
	o.once.Do(func() {
		close(o.done)
		closed = true
	})
	return closed
}
