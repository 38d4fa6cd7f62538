package transport

import (
	"live-bidding/internal/models"
)

// SSEConn is a read-only server-sent events connection. The HTTP handler
// drains Messages until Done is closed.
type SSEConn struct {
	out *outbox
}

// NewSSEConn creates an SSE connection with a send queue of buffer messages
func NewSSEConn(buffer int) *SSEConn {
	return &SSEConn{out: newOutbox(buffer)}
}

// Enqueue queues msg for the stream
func (c *SSEConn) Enqueue(msg models.ServerMessage) error {
	return c.out.Enqueue(msg)
}

// Close ends the stream
func (c *SSEConn) Close() {
	c.out.close()
}

// Messages returns the queued outbound messages
func (c *SSEConn) Messages() <-chan models.ServerMessage {
	return c.out.ch
}

// Done is closed once the connection is dropped
func (c *SSEConn) Done() <-chan struct{} {
	return c.out.done
}
