package statestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"live-bidding/internal/biddingerrors"
	"live-bidding/internal/models"
	"live-bidding/internal/repository"
	"live-bidding/utils"
)

// Origin tells commit hooks where a committed state came from
type Origin int

const (
	// OriginLocal is a bid accepted by this instance
	OriginLocal Origin = iota
	// OriginRemote is a newer state learned from another instance or the store of record
	OriginRemote
	// OriginCorrection replaces a cached state that diverged from the store of
	// record. It may carry the same or a lower version than the one it replaces.
	OriginCorrection
)

func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginCorrection:
		return "correction"
	}
	return "local"
}

// CommitHook observes every committed state. Hooks run in commit order for
// an item and must not block.
type CommitHook func(state models.ItemBidState, origin Origin)

type entry struct {
	mu    sync.Mutex
	state models.ItemBidState
}

// Store is the authoritative in-process cache of the current bid per item.
// All mutations go through CompareAndSet or Reconcile.
type Store struct {
	db        repository.AuctionDB
	hooks     []CommitHook
	persister *persister

	mu      sync.RWMutex
	entries map[string]*entry
}

// Option configures a Store
type Option func(*Store)

// WithCommitHook registers a hook fired after each commit
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithPersistPolicy overrides the durable write retry policy
func WithPersistPolicy(policy PersistPolicy) Option {
	return func(s *Store) {
		s.persister.policy = policy.withDefaults()
	}
}

// WithAlertFunc registers the operational alert path for exhausted durable writes
func WithAlertFunc(alert AlertFunc) Option {
	return func(s *Store) {
		s.persister.alert = alert
	}
}

// New creates a Store backed by db. Call Start before Persist is used.
func New(db repository.AuctionDB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		entries: make(map[string]*entry),
	}
	s.persister = newPersister(db, s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the durable write workers
func (s *Store) Start() {
	s.persister.start()
}

// Close stops the durable write workers. Queued writes are marked dirty.
func (s *Store) Close() {
	s.persister.close()
}

// Get returns the current state of an item, loading it from the store of
// record on first access. Items unknown to the store of record start at zero.
func (s *Store) Get(ctx context.Context, itemID string) (models.ItemBidState, error) {
	if e := s.lookup(itemID); e != nil {
		return e.snapshot(), nil
	}

	state, err := s.db.ReadBidState(ctx, itemID)
	switch {
	case err == nil:
	case errors.Is(err, biddingerrors.ErrNoBids), errors.Is(err, biddingerrors.ErrItemNotFound):
		state = models.NewItemBidState(itemID)
	default:
		return models.ItemBidState{}, fmt.Errorf("statestore: hydrate item %s: %w", itemID, err)
	}
	state.ItemID = itemID

	s.mu.Lock()
	e, ok := s.entries[itemID]
	if !ok {
		e = &entry{state: state}
		s.entries[itemID] = e
		utils.Debug("statestore: item hydrated", map[string]any{"item_id": itemID, "version": state.Version})
	}
	s.mu.Unlock()

	return e.snapshot(), nil
}

// Peek returns the cached state without loading it
func (s *Store) Peek(itemID string) (models.ItemBidState, bool) {
	e := s.lookup(itemID)
	if e == nil {
		return models.ItemBidState{}, false
	}
	return e.snapshot(), true
}

// CompareAndSet replaces the state of an item if its version still equals
// expectedVersion. newState must be the next version and must not lower the bid.
func (s *Store) CompareAndSet(itemID string, expectedVersion int64, newState models.ItemBidState) error {
	if newState.ItemID != itemID {
		return fmt.Errorf("statestore: state for item %q passed for item %q: %w", newState.ItemID, itemID, biddingerrors.ErrInvalidBid)
	}
	if newState.Version != expectedVersion+1 {
		return fmt.Errorf("statestore: version %d does not follow %d: %w", newState.Version, expectedVersion, biddingerrors.ErrVersionConflict)
	}

	e := s.lookup(itemID)
	if e == nil {
		return fmt.Errorf("statestore: item %s not loaded: %w", itemID, biddingerrors.ErrVersionConflict)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Version != expectedVersion {
		return fmt.Errorf("statestore: item %s expected version %d, found %d: %w",
			itemID, expectedVersion, e.state.Version, biddingerrors.ErrVersionConflict)
	}
	if newState.CurrentBid < e.state.CurrentBid {
		return fmt.Errorf("statestore: item %s bid would drop from %v to %v: %w",
			itemID, e.state.CurrentBid, newState.CurrentBid, biddingerrors.ErrBidTooLow)
	}

	e.state = newState
	s.fire(newState, OriginLocal)
	return nil
}

// Reconcile applies a state learned elsewhere if it is newer than the cached one.
// It reports whether the state was applied.
func (s *Store) Reconcile(state models.ItemBidState) bool {
	if state.ItemID == "" {
		return false
	}

	s.mu.Lock()
	e, ok := s.entries[state.ItemID]
	if !ok {
		e = &entry{state: models.NewItemBidState(state.ItemID)}
		s.entries[state.ItemID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if state.Version <= e.state.Version {
		return false
	}
	if state.CurrentBid < e.state.CurrentBid {
		utils.Warn("statestore: ignoring newer state with lower bid", map[string]any{
			"item_id":        state.ItemID,
			"cached_version": e.state.Version,
			"cached_bid":     e.state.CurrentBid,
			"version":        state.Version,
			"bid":            state.CurrentBid,
		})
		return false
	}

	e.state = state
	s.fire(state, OriginRemote)
	return true
}

// Adopt makes the cache agree with durable, the state read back from the store
// of record after a refused write. A cached state stays only when it extends
// durable: a higher version and a bid no lower. Anything else is replaced by
// durable, fired as OriginCorrection unless durable is simply newer.
func (s *Store) Adopt(durable models.ItemBidState) bool {
	if durable.ItemID == "" {
		return false
	}

	s.mu.Lock()
	e, ok := s.entries[durable.ItemID]
	if !ok {
		e = &entry{state: models.NewItemBidState(durable.ItemID)}
		s.entries[durable.ItemID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	cached := e.state
	switch {
	case sameBid(cached, durable):
		return false
	case cached.Version > durable.Version && cached.CurrentBid >= durable.CurrentBid:
		return false
	case durable.Version > cached.Version && durable.CurrentBid >= cached.CurrentBid:
		e.state = durable
		s.fire(durable, OriginRemote)
		return true
	}

	utils.Warn("statestore: cache diverged from store of record, adopting durable state", map[string]any{
		"alert":          "divergence",
		"item_id":        durable.ItemID,
		"cached_version": cached.Version,
		"cached_bid":     cached.CurrentBid,
		"cached_bidder":  cached.BidderID,
		"version":        durable.Version,
		"bid":            durable.CurrentBid,
		"bidder":         durable.BidderID,
	})
	e.state = durable
	s.fire(durable, OriginCorrection)
	return true
}

func sameBid(a, b models.ItemBidState) bool {
	return a.Version == b.Version && a.CurrentBid == b.CurrentBid && a.BidderID == b.BidderID
}

// Persist schedules a durable write of state. It never blocks on I/O.
func (s *Store) Persist(state models.ItemBidState) {
	s.persister.enqueue(state)
}

// RepersistDirty schedules a new durable write for every item whose last
// write exhausted its retries, and returns the affected item IDs.
func (s *Store) RepersistDirty() []string {
	items := s.persister.takeDirty()
	for _, itemID := range items {
		if state, ok := s.Peek(itemID); ok {
			s.persister.enqueue(state)
		}
	}
	return items
}

// DirtyItems returns the items whose cached state is not known to be durable
func (s *Store) DirtyItems() []string {
	return s.persister.dirtyItems()
}

// Items returns the IDs of every cached item, sorted
func (s *Store) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) lookup(itemID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[itemID]
}

// fire must be called with the entry lock held
func (s *Store) fire(state models.ItemBidState, origin Origin) {
	for _, hook := range s.hooks {
		hook(state, origin)
	}
}

func (e *entry) snapshot() models.ItemBidState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}
