//go:generate mockgen -package=repository -destination=mock_repository.go -source=repository.go

package repository

import (
	"context"
	"fmt"
	"sync"

	"live-bidding/internal/biddingerrors"
	model "live-bidding/internal/models"
)

// AuctionDB is the store of record for bid state and auction windows.
// Implementations must not assume they are the only writer.
type AuctionDB interface {
	ReadBidState(ctx context.Context, itemID string) (model.ItemBidState, error)
	WriteBidState(ctx context.Context, itemID string, state model.ItemBidState) error
	GetAuctionWindow(ctx context.Context, itemID string) (model.AuctionWindow, error)
}

// WindowSource resolves the bidding window of an item
type WindowSource interface {
	GetAuctionWindow(ctx context.Context, itemID string) (model.AuctionWindow, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu     sync.RWMutex
	items  map[string]model.Item         // key: itemID -> value: item
	states map[string]model.ItemBidState // key: itemID -> value: last written bid state
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:  make(map[string]model.Item),
		states: make(map[string]model.ItemBidState),
	}
}

// ReadBidState returns the last written bid state of an item
func (r *MemoryRepo) ReadBidState(_ context.Context, itemID string) (model.ItemBidState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.items[itemID]; !ok {
		return model.ItemBidState{}, fmt.Errorf("read bid state for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	state, ok := r.states[itemID]
	if !ok {
		return model.ItemBidState{}, fmt.Errorf("read bid state for item %s: %w", itemID, biddingerrors.ErrNoBids)
	}
	return state, nil
}

// WriteBidState stores state unless an equal or newer version, or a higher
// bid, is already stored
func (r *MemoryRepo) WriteBidState(_ context.Context, itemID string, state model.ItemBidState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[itemID]; !ok {
		return fmt.Errorf("write bid state for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	if current, ok := r.states[itemID]; ok {
		if current.Version >= state.Version {
			return fmt.Errorf("write bid state for item %s at version %d (stored %d): %w",
				itemID, state.Version, current.Version, biddingerrors.ErrStaleWrite)
		}
		if state.CurrentBid < current.CurrentBid {
			return fmt.Errorf("write bid state for item %s would lower the bid from %v to %v: %w",
				itemID, current.CurrentBid, state.CurrentBid, biddingerrors.ErrStaleWrite)
		}
	}
	r.states[itemID] = state
	return nil
}

// GetAuctionWindow returns the bidding window of an item
func (r *MemoryRepo) GetAuctionWindow(_ context.Context, itemID string) (model.AuctionWindow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return model.AuctionWindow{}, fmt.Errorf("get auction window for item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	return model.AuctionWindow{
		ItemID: item.ItemID,
		Start:  item.BiddingStart,
		End:    item.BiddingEnd,
		Closed: item.Status == model.ItemStatusClosed,
	}, nil
}

// AddItem adds or replaces an item. Used for seeding and tests.
func (r *MemoryRepo) AddItem(item model.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ItemID] = item
}

// CloseItem marks an item's auction as closed
func (r *MemoryRepo) CloseItem(itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("close item %s: %w", itemID, biddingerrors.ErrItemNotFound)
	}
	item.Status = model.ItemStatusClosed
	r.items[itemID] = item
	return nil
}
