//go:generate mockgen -package=session -destination=mock_manager.go -source=manager.go

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"live-bidding/internal/biddingerrors"
	"live-bidding/internal/models"
	"live-bidding/utils"
)

// State is the lifecycle stage of a connection
type State int

const (
	Connected State = iota
	Joined
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Joined:
		return "Joined"
	default:
		return "Disconnected"
	}
}

// Bidder runs the bid use cases
type Bidder interface {
	PlaceBid(ctx context.Context, proposal models.BidProposal) (models.ItemBidState, error)
	Snapshot(ctx context.Context, itemID string) (models.ItemBidState, error)
}

// Subscriptions is the room membership the manager maintains
type Subscriptions interface {
	Join(connID, itemID string) bool
	Leave(connID, itemID string) bool
	LeaveAll(connID string) []string
	IsSubscribed(connID, itemID string) bool
}

// Sender delivers one message to one connection
type Sender interface {
	Send(connID string, msg models.ServerMessage) error
}

type session struct {
	mu    sync.Mutex
	state State
	items int
}

// Manager owns the lifecycle of every connection and turns client messages
// into bid and subscription operations.
type Manager struct {
	bidder       Bidder
	subs         Subscriptions
	sender       Sender
	onDisconnect func(connID string)
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Manager
type Option func(*Manager)

// WithDisconnectHook registers a callback run once per connection after its
// subscriptions are removed, typically to close the transport.
func WithDisconnectHook(fn func(connID string)) Option {
	return func(m *Manager) {
		m.onDisconnect = fn
	}
}

// NewManager creates a Manager
func NewManager(bidder Bidder, subs Subscriptions, sender Sender, opts ...Option) *Manager {
	m := &Manager{
		bidder:   bidder,
		subs:     subs,
		sender:   sender,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open registers a new connection. Reconnecting clients get a new connID.
func (m *Manager) Open(connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[connID]; ok {
		return fmt.Errorf("session: connection %s already open", connID)
	}
	m.sessions[connID] = &session{state: Connected}
	utils.Debug("session: connected", map[string]any{"conn_id": connID})
	return nil
}

// StateOf returns the lifecycle stage of connID. Unknown connections are Disconnected.
func (m *Manager) StateOf(connID string) State {
	s := m.lookup(connID)
	if s == nil {
		return Disconnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sessions returns the number of open connections
func (m *Manager) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Handle decodes and processes one raw client message
func (m *Manager) Handle(ctx context.Context, connID string, raw []byte) error {
	var msg models.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		if m.lookup(connID) == nil {
			return fmt.Errorf("session: %w - %s", biddingerrors.ErrUnknownSession, connID)
		}
		utils.Warn("session: malformed message", map[string]any{"conn_id": connID, "error": err.Error()})
		return m.sender.Send(connID, models.ProtocolErrorMessage(models.ReasonMalformedMessage))
	}
	return m.HandleMessage(ctx, connID, msg)
}

// HandleMessage processes one decoded client message
func (m *Manager) HandleMessage(ctx context.Context, connID string, msg models.ClientMessage) error {
	s := m.lookup(connID)
	if s == nil {
		return fmt.Errorf("session: %w - %s", biddingerrors.ErrUnknownSession, connID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disconnected {
		return fmt.Errorf("session: %w - %s", biddingerrors.ErrSessionClosed, connID)
	}

	if msg.ItemID == "" {
		return m.protocolError(connID, msg, "missing itemId")
	}

	switch msg.Type {
	case models.MessageJoinItem:
		return m.join(ctx, connID, s, msg.ItemID)
	case models.MessageLeaveItem:
		if m.subs.Leave(connID, msg.ItemID) {
			s.items--
			if s.items == 0 {
				s.state = Connected
			}
		}
		return nil
	case models.MessageSubmitBid:
		return m.submit(ctx, connID, msg)
	default:
		return m.protocolError(connID, msg, "unknown message type")
	}
}

// join subscribes before reading the snapshot so that no commit falls
// between the snapshot and the first broadcast.
func (m *Manager) join(ctx context.Context, connID string, s *session, itemID string) error {
	added := m.subs.Join(connID, itemID)

	state, err := m.bidder.Snapshot(ctx, itemID)
	if err != nil {
		if added {
			m.subs.Leave(connID, itemID)
		}
		utils.Error("session: snapshot failed", map[string]any{"conn_id": connID, "item_id": itemID, "error": err.Error()})
		return m.sender.Send(connID, models.RejectedMessage(itemID, biddingerrors.ReasonOf(err)))
	}

	if added {
		s.items++
	}
	s.state = Joined
	utils.Debug("session: joined item", map[string]any{"conn_id": connID, "item_id": itemID, "version": state.Version})
	return m.sender.Send(connID, models.SnapshotMessage(state))
}

func (m *Manager) submit(ctx context.Context, connID string, msg models.ClientMessage) error {
	proposal := models.BidProposal{
		ItemID:      msg.ItemID,
		Amount:      msg.Amount,
		BidderID:    msg.BidderID,
		SubmittedAt: m.now().UTC(),
	}

	state, err := m.bidder.PlaceBid(ctx, proposal)
	if err != nil {
		reason := biddingerrors.ReasonOf(err)
		fields := map[string]any{
			"conn_id":   connID,
			"item_id":   msg.ItemID,
			"bidder_id": msg.BidderID,
			"amount":    msg.Amount,
			"reason":    string(reason),
			"error":     err.Error(),
		}
		if biddingerrors.IsRejection(err) {
			utils.Info("session: bid rejected", fields)
		} else {
			utils.Error("session: bid failed", fields)
		}
		return m.sender.Send(connID, models.RejectedMessage(msg.ItemID, reason))
	}

	utils.Info("session: bid accepted", map[string]any{
		"conn_id":   connID,
		"item_id":   state.ItemID,
		"bidder_id": state.BidderID,
		"amount":    state.CurrentBid,
		"version":   state.Version,
	})
	// subscribers hear about it through the broadcast
	if !m.subs.IsSubscribed(connID, msg.ItemID) {
		return m.sender.Send(connID, models.AcceptedMessage(state))
	}
	return nil
}

func (m *Manager) protocolError(connID string, msg models.ClientMessage, detail string) error {
	utils.Warn("session: rejecting client message", map[string]any{"conn_id": connID, "type": msg.Type, "detail": detail})
	return m.sender.Send(connID, models.ProtocolErrorMessage(models.ReasonMalformedMessage))
}

// Disconnect ends a connection and removes all of its subscriptions. Only the
// first call for a connection has any effect.
func (m *Manager) Disconnect(connID string) {
	m.mu.Lock()
	s, ok := m.sessions[connID]
	delete(m.sessions, connID)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.state = Disconnected
	s.items = 0
	s.mu.Unlock()

	left := m.subs.LeaveAll(connID)
	utils.Debug("session: disconnected", map[string]any{"conn_id": connID, "items": left})
	if m.onDisconnect != nil {
		m.onDisconnect(connID)
	}
}

// DisconnectOnError adapts Disconnect to delivery failure callbacks
func (m *Manager) DisconnectOnError(connID string, cause error) {
	if cause != nil && !errors.Is(cause, biddingerrors.ErrConnectionClosed) {
		utils.Warn("session: dropping connection after send failure", map[string]any{"conn_id": connID, "error": cause.Error()})
	}
	m.Disconnect(connID)
}

func (m *Manager) lookup(connID string) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[connID]
}
