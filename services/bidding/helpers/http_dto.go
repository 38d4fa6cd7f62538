package helpers

import (
	"time"

	model "live-bidding/internal/models"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	ItemID   string  `json:"item_id" binding:"required"`
	BidderID string  `json:"bidder_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

type BidStateResponse struct {
	ItemID     string  `json:"item_id"`
	CurrentBid float64 `json:"current_bid"`
	BidderID   string  `json:"bidder_id"`
	Version    int64   `json:"version"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// NewBidStateResponse converts a bid state to its HTTP representation
func NewBidStateResponse(state model.ItemBidState) BidStateResponse {
	resp := BidStateResponse{
		ItemID:     state.ItemID,
		CurrentBid: state.CurrentBid,
		BidderID:   state.BidderID,
		Version:    state.Version,
	}
	if !state.UpdatedAt.IsZero() {
		resp.UpdatedAt = state.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
