package statestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"live-bidding/internal/biddingerrors"
	"live-bidding/internal/models"
	"live-bidding/internal/repository"
	"live-bidding/utils"

	"github.com/jpillora/backoff"
	"github.com/smallnest/chanx"
)

// AlertFunc receives states whose durable write could not be completed
type AlertFunc func(state models.ItemBidState, err error)

// PersistPolicy bounds the retries of a durable write
type PersistPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Workers        int
	WriteTimeout   time.Duration
}

// DefaultPersistPolicy returns the policy used when none is configured
func DefaultPersistPolicy() PersistPolicy {
	return PersistPolicy{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Workers:        2,
		WriteTimeout:   5 * time.Second,
	}
}

func (p PersistPolicy) withDefaults() PersistPolicy {
	def := DefaultPersistPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Workers <= 0 {
		p.Workers = def.Workers
	}
	if p.WriteTimeout <= 0 {
		p.WriteTimeout = def.WriteTimeout
	}
	return p
}

// persister writes accepted states to the store of record in the background.
// Only the latest pending state of an item is written.
type persister struct {
	db     repository.AuctionDB
	store  *Store
	policy PersistPolicy
	alert  AlertFunc

	mu      sync.Mutex
	pending map[string]models.ItemBidState
	dirty   map[string]struct{}
	queue   *chanx.UnboundedChan[string]
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	closed  bool
}

func newPersister(db repository.AuctionDB, store *Store) *persister {
	return &persister{
		db:      db,
		store:   store,
		policy:  DefaultPersistPolicy(),
		pending: make(map[string]models.ItemBidState),
		dirty:   make(map[string]struct{}),
	}
}

func (p *persister) start() {
	p.mu.Lock()
	if p.running || p.closed {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.queue = chanx.NewUnboundedChan[string](ctx, 64)
	p.cancel = cancel
	p.running = true
	for itemID := range p.pending {
		p.queue.In <- itemID
	}
	p.mu.Unlock()

	for i := 0; i < p.policy.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	utils.Info("statestore: persister started", map[string]any{"workers": p.policy.Workers})
}

func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	wasRunning := p.running
	p.running = false
	p.mu.Unlock()

	if wasRunning {
		p.cancel()
		p.wg.Wait()
	}

	p.mu.Lock()
	left := len(p.pending)
	for itemID := range p.pending {
		p.dirty[itemID] = struct{}{}
	}
	clear(p.pending)
	p.mu.Unlock()

	if left > 0 {
		utils.Error("statestore: persister closed with unwritten states", map[string]any{
			"alert": "durability",
			"items": left,
		})
	}
	utils.Info("statestore: persister stopped", nil)
}

func (p *persister) enqueue(state models.ItemBidState) {
	p.mu.Lock()
	if p.closed {
		p.dirty[state.ItemID] = struct{}{}
		p.mu.Unlock()
		utils.Warn("statestore: persist after close", map[string]any{"item_id": state.ItemID, "version": state.Version})
		return
	}
	defer p.mu.Unlock()

	prev, queued := p.pending[state.ItemID]
	if !queued || prev.Version < state.Version {
		p.pending[state.ItemID] = state
	}
	// the queue goroutine drains In independently of p.mu
	if !queued && p.running {
		p.queue.In <- state.ItemID
	}
}

func (p *persister) take(itemID string) (models.ItemBidState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.pending[itemID]
	delete(p.pending, itemID)
	return state, ok
}

func (p *persister) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case itemID, ok := <-p.queue.Out:
			if !ok {
				return
			}
			if state, ok := p.take(itemID); ok {
				p.write(ctx, state)
			}
		}
	}
}

func (p *persister) write(ctx context.Context, state models.ItemBidState) {
	b := &backoff.Backoff{
		Min:    p.policy.InitialBackoff,
		Max:    p.policy.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		err = p.writeOnce(ctx, state)
		switch {
		case err == nil:
			p.clearDirty(state.ItemID)
			utils.Debug("statestore: state persisted", map[string]any{"item_id": state.ItemID, "version": state.Version, "attempt": attempt})
			return
		case errors.Is(err, biddingerrors.ErrStaleWrite):
			p.resolveStale(ctx, state)
			return
		case errors.Is(err, biddingerrors.ErrItemNotFound):
			utils.Error("statestore: item missing from store of record", map[string]any{"item_id": state.ItemID, "version": state.Version, "error": err.Error()})
			return
		}

		if attempt == p.policy.MaxAttempts {
			break
		}
		delay := b.Duration()
		utils.Warn("statestore: persist failed, retrying", map[string]any{
			"item_id": state.ItemID,
			"version": state.Version,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.exhausted(state, attempt, ctx.Err())
			return
		case <-timer.C:
		}
	}
	p.exhausted(state, p.policy.MaxAttempts, err)
}

func (p *persister) writeOnce(ctx context.Context, state models.ItemBidState) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.policy.WriteTimeout)
	defer cancel()
	return p.db.WriteBidState(writeCtx, state.ItemID, state)
}

// resolveStale handles a write refused because the store of record already
// holds the same or a newer version, or a higher bid, usually written by
// another instance. The store of record wins.
func (p *persister) resolveStale(ctx context.Context, state models.ItemBidState) {
	readCtx, cancel := context.WithTimeout(ctx, p.policy.WriteTimeout)
	defer cancel()

	durable, err := p.db.ReadBidState(readCtx, state.ItemID)
	if err != nil {
		p.exhausted(state, 1, fmt.Errorf("read after stale write: %w", err))
		return
	}
	p.clearDirty(state.ItemID)

	if p.store.Adopt(durable) {
		utils.Info("statestore: cache realigned with store of record", map[string]any{
			"item_id":         state.ItemID,
			"refused_version": state.Version,
			"version":         durable.Version,
		})
	}
}

func (p *persister) exhausted(state models.ItemBidState, attempts int, err error) {
	err = fmt.Errorf("statestore: item %s version %d after %d attempts: %w: %w",
		state.ItemID, state.Version, attempts, biddingerrors.ErrPersistExhausted, err)

	p.mu.Lock()
	p.dirty[state.ItemID] = struct{}{}
	p.mu.Unlock()

	utils.Error("statestore: durable write abandoned, cache ahead of store of record", map[string]any{
		"alert":    "durability",
		"item_id":  state.ItemID,
		"version":  state.Version,
		"attempts": attempts,
		"error":    err.Error(),
	})
	if p.alert != nil {
		p.alert(state, err)
	}
}

func (p *persister) clearDirty(itemID string) {
	p.mu.Lock()
	delete(p.dirty, itemID)
	p.mu.Unlock()
}

func (p *persister) takeDirty() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := sortedKeys(p.dirty)
	clear(p.dirty)
	return items
}

func (p *persister) dirtyItems() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedKeys(p.dirty)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
