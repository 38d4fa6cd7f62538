package bidding

import (
	"fmt"
	"math"
	"time"

	"live-bidding/internal/biddingerrors"
	"live-bidding/internal/models"

	"github.com/shopspring/decimal"
)

// monetaryPrecision is the number of decimal places a bid may carry
const monetaryPrecision = 2

// Validator decides whether a proposal may replace the current bid state.
// It has no side effects.
type Validator struct {
	// MinRebidIncrement is the minimum raise required when the current
	// highest bidder bids again. Zero only requires any increase.
	MinRebidIncrement float64
}

// CheckProposal rejects proposals that are structurally unusable
func CheckProposal(p models.BidProposal) error {
	if p.ItemID == "" || p.BidderID == "" {
		return fmt.Errorf("validator: %w - missing itemID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) || p.Amount <= 0 {
		return fmt.Errorf("validator: %w - amount must be a positive number", biddingerrors.ErrInvalidBid)
	}
	if amount := decimal.NewFromFloat(p.Amount); !amount.Equal(amount.Round(monetaryPrecision)) {
		return fmt.Errorf("validator: %w - amount has more than %d decimal places", biddingerrors.ErrInvalidBid, monetaryPrecision)
	}
	return nil
}

// Validate returns the state that results from accepting proposal on top of
// current, or a rejection error. now is the acceptance time.
func (v Validator) Validate(current models.ItemBidState, window models.AuctionWindow, proposal models.BidProposal, now time.Time) (models.ItemBidState, error) {
	if err := CheckProposal(proposal); err != nil {
		return models.ItemBidState{}, err
	}

	amount := money(proposal.Amount)
	currentBid := money(current.CurrentBid)

	if amount.LessThanOrEqual(currentBid) {
		return models.ItemBidState{}, fmt.Errorf("validator: %w - current highest bid is %s", biddingerrors.ErrBidTooLow, currentBid.StringFixed(monetaryPrecision))
	}

	if current.BidderID != "" && proposal.BidderID == current.BidderID {
		increment := money(v.MinRebidIncrement)
		if amount.Sub(currentBid).LessThan(increment) {
			return models.ItemBidState{}, fmt.Errorf("validator: %w - raise by at least %s", biddingerrors.ErrSelfOutbidNotAllowed, increment.StringFixed(monetaryPrecision))
		}
	}

	if window.HasEnded(now) {
		return models.ItemBidState{}, fmt.Errorf("validator: %w - item %s", biddingerrors.ErrAuctionClosed, proposal.ItemID)
	}
	if !window.HasStarted(now) {
		return models.ItemBidState{}, fmt.Errorf("validator: %w - bidding opens at %s", biddingerrors.ErrAuctionNotStarted, window.Start.UTC().Format(time.RFC3339))
	}

	return models.ItemBidState{
		ItemID:     proposal.ItemID,
		CurrentBid: proposal.Amount,
		BidderID:   proposal.BidderID,
		Version:    current.Version + 1,
		UpdatedAt:  now.UTC(),
	}, nil
}

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
