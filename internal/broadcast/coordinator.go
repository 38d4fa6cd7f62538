package broadcast

import (
	"context"
	"sync"

	"live-bidding/internal/models"
	"live-bidding/internal/statestore"
	"live-bidding/utils"

	"github.com/cespare/xxhash/v2"
	"github.com/smallnest/chanx"
)

// DefaultShards is the number of delivery workers used when none is configured
const DefaultShards = 8

// Sender delivers one message to one connection
type Sender interface {
	Send(connID string, msg models.ServerMessage) error
}

// Subscribers lists the connections watching an item
type Subscribers interface {
	SubscribersOf(itemID string) []string
}

// DisconnectFunc is called for a connection whose delivery failed
type DisconnectFunc func(connID string, cause error)

// Coordinator fans accepted states out to the subscribers of their item.
// Every item is bound to one shard, and each shard has a single worker, so
// subscribers see an item's states in the order they were published.
type Coordinator struct {
	subs       Subscribers
	sender     Sender
	disconnect DisconnectFunc
	shards     []*shard

	mu      sync.RWMutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type shard struct {
	id        int
	queue     *chanx.UnboundedChan[update]
	delivered map[string]int64 // key: itemID -> last delivered version, owned by the worker
}

// update is one queued delivery. A resync replaces whatever subscribers hold
// and is sent as a snapshot whatever its version.
type update struct {
	state  models.ItemBidState
	resync bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithDisconnectFunc registers the implicit disconnect path for failed deliveries
func WithDisconnectFunc(fn DisconnectFunc) Option {
	return func(c *Coordinator) {
		c.disconnect = fn
	}
}

// WithShards sets the number of delivery workers
func WithShards(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.shards = make([]*shard, n)
		}
	}
}

// NewCoordinator creates a Coordinator. Call Start before publishing.
func NewCoordinator(subs Subscribers, sender Sender, opts ...Option) *Coordinator {
	c := &Coordinator{
		subs:   subs,
		sender: sender,
		shards: make([]*shard, DefaultShards),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches one worker per shard
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.closed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	for i := range c.shards {
		s := &shard{
			id:        i,
			queue:     chanx.NewUnboundedChan[update](ctx, 16),
			delivered: make(map[string]int64),
		}
		c.shards[i] = s
		c.wg.Add(1)
		go c.run(ctx, s)
	}
	utils.Info("broadcast: coordinator started", map[string]any{"shards": len(c.shards)})
}

// Close stops the workers. States still queued are not delivered.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wasRunning := c.running
	c.running = false
	c.mu.Unlock()

	if wasRunning {
		c.cancel()
		c.wg.Wait()
	}
	utils.Info("broadcast: coordinator stopped", nil)
}

// Publish queues state for delivery to the subscribers of itemID. It never
// blocks on delivery.
func (c *Coordinator) Publish(itemID string, state models.ItemBidState) {
	c.enqueue(itemID, update{state: state})
}

// Resync queues a corrected state for itemID. Subscribers receive it as a
// BidSnapshot even when its version is not above the last one delivered.
func (c *Coordinator) Resync(itemID string, state models.ItemBidState) {
	c.enqueue(itemID, update{state: state, resync: true})
}

// OnCommit is a store commit hook. Corrections are resynced, everything
// else is published.
func (c *Coordinator) OnCommit(state models.ItemBidState, origin statestore.Origin) {
	if origin == statestore.OriginCorrection {
		c.Resync(state.ItemID, state)
		return
	}
	c.Publish(state.ItemID, state)
}

func (c *Coordinator) enqueue(itemID string, u update) {
	u.state.ItemID = itemID

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.running {
		utils.Warn("broadcast: publish while stopped", map[string]any{"item_id": itemID, "version": u.state.Version})
		return
	}
	c.shardFor(itemID).queue.In <- u
}

func (c *Coordinator) shardFor(itemID string) *shard {
	return c.shards[xxhash.Sum64String(itemID)%uint64(len(c.shards))]
}

func (c *Coordinator) run(ctx context.Context, s *shard) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-s.queue.Out:
			if !ok {
				return
			}
			c.deliver(s, u)
		}
	}
}

func (c *Coordinator) deliver(s *shard, u update) {
	state := u.state
	if last, ok := s.delivered[state.ItemID]; ok && !u.resync && state.Version <= last {
		utils.Debug("broadcast: dropping already delivered version", map[string]any{
			"item_id":   state.ItemID,
			"version":   state.Version,
			"delivered": last,
		})
		return
	}
	s.delivered[state.ItemID] = state.Version

	msg := models.AcceptedMessage(state)
	if u.resync {
		msg = models.SnapshotMessage(state)
	}
	subscribers := c.subs.SubscribersOf(state.ItemID)
	failed := 0
	for _, connID := range subscribers {
		if err := c.sender.Send(connID, msg); err != nil {
			failed++
			utils.Warn("broadcast: delivery failed, dropping connection", map[string]any{
				"conn_id": connID,
				"item_id": state.ItemID,
				"version": state.Version,
				"error":   err.Error(),
			})
			if c.disconnect != nil {
				c.disconnect(connID, err)
			}
		}
	}
	utils.Debug("broadcast: state delivered", map[string]any{
		"item_id":     state.ItemID,
		"version":     state.Version,
		"shard":       s.id,
		"subscribers": len(subscribers),
		"failed":      failed,
		"resync":      u.resync,
	})
}
