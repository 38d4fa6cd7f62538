//go:generate mockgen -package=bidding -destination=mock_bidding_service.go -source=bidding_service.go

package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-bidding/internal/biddingerrors"
	"live-bidding/internal/models"
	"live-bidding/internal/repository"
	"live-bidding/utils"
)

// DefaultCASRetries is how many times a bid is re-validated after losing a race
const DefaultCASRetries = 8

// StateStore is the subset of the item bid state store the service mutates through
type StateStore interface {
	Get(ctx context.Context, itemID string) (models.ItemBidState, error)
	CompareAndSet(itemID string, expectedVersion int64, newState models.ItemBidState) error
	Persist(state models.ItemBidState)
}

// BiddingService defines the business logic for live bidding
type BiddingService struct {
	store      StateStore
	windows    repository.WindowSource
	validator  Validator
	casRetries int
	now        func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(store StateStore, windows repository.WindowSource, validator Validator, casRetries int) *BiddingService {
	if casRetries <= 0 {
		casRetries = DefaultCASRetries
	}
	return &BiddingService{
		store:      store,
		windows:    windows,
		validator:  validator,
		casRetries: casRetries,
		now:        time.Now,
	}
}

// PlaceBid validates proposal against the current state of its item and commits
// the resulting state. Broadcasting is left to the store's commit hooks.
func (s *BiddingService) PlaceBid(ctx context.Context, proposal models.BidProposal) (models.ItemBidState, error) {
	if err := CheckProposal(proposal); err != nil {
		return models.ItemBidState{}, fmt.Errorf("service: %w", err)
	}

	window, err := s.windows.GetAuctionWindow(ctx, proposal.ItemID)
	if err != nil {
		return models.ItemBidState{}, fmt.Errorf("service: failed to get auction window for item %s: %w", proposal.ItemID, err)
	}

	for attempt := 0; attempt <= s.casRetries; attempt++ {
		current, err := s.store.Get(ctx, proposal.ItemID)
		if err != nil {
			return models.ItemBidState{}, fmt.Errorf("service: failed to get bid state for item %s: %w", proposal.ItemID, err)
		}

		next, err := s.validator.Validate(current, window, proposal, s.now())
		if err != nil {
			return models.ItemBidState{}, fmt.Errorf("service: bid by %s on item %s rejected: %w", proposal.BidderID, proposal.ItemID, err)
		}

		err = s.store.CompareAndSet(proposal.ItemID, current.Version, next)
		switch {
		case err == nil:
			s.store.Persist(next)
			return next, nil
		case errors.Is(err, biddingerrors.ErrVersionConflict), errors.Is(err, biddingerrors.ErrBidTooLow):
			// lost the race, validate again against whatever won
			utils.Debug("service: bid state changed during validation", map[string]any{
				"item_id":   proposal.ItemID,
				"bidder_id": proposal.BidderID,
				"attempt":   attempt + 1,
			})
			continue
		default:
			return models.ItemBidState{}, fmt.Errorf("service: failed to commit bid for item %s: %w", proposal.ItemID, err)
		}
	}

	utils.Warn("service: bid abandoned after repeated conflicts", map[string]any{
		"item_id":   proposal.ItemID,
		"bidder_id": proposal.BidderID,
		"retries":   s.casRetries,
	})
	return models.ItemBidState{}, fmt.Errorf("service: %w - item %s too contended", biddingerrors.ErrVersionConflict, proposal.ItemID)
}

// Snapshot returns the current bid state of an item
func (s *BiddingService) Snapshot(ctx context.Context, itemID string) (models.ItemBidState, error) {
	if itemID == "" {
		return models.ItemBidState{}, fmt.Errorf("service: %w - empty item ID", biddingerrors.ErrInvalidBid)
	}

	state, err := s.store.Get(ctx, itemID)
	if err != nil {
		return models.ItemBidState{}, fmt.Errorf("service: failed to get bid state for item %s: %w", itemID, err)
	}
	return state, nil
}
