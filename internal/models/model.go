package models

import "time"

// Item represents an auction item as known by the store of record
type Item struct {
	ItemID        string    `json:"item_id"`
	Title         string    `json:"title"`
	StartingPrice float64   `json:"starting_price"`
	BiddingStart  time.Time `json:"bidding_start"`
	BiddingEnd    time.Time `json:"bidding_end"`
	Status        string    `json:"status"`
}

// Item statuses mirrored from the product collection
const (
	ItemStatusActive = "Active"
	ItemStatusClosed = "Closed"
)

// ItemBidState is the latest accepted bid for one item.
// CurrentBid never decreases and Version grows by one per accepted bid.
type ItemBidState struct {
	ItemID     string    `json:"itemId" msgpack:"item_id"`
	CurrentBid float64   `json:"currentBid" msgpack:"current_bid"`
	BidderID   string    `json:"bidderId" msgpack:"bidder_id"`
	Version    int64     `json:"version" msgpack:"version"`
	UpdatedAt  time.Time `json:"updatedAt" msgpack:"updated_at"`
}

// NewItemBidState returns the default state of an item nobody has bid on
func NewItemBidState(itemID string) ItemBidState {
	return ItemBidState{ItemID: itemID}
}

// BidProposal is a bid submitted by a client. It is never stored.
type BidProposal struct {
	ItemID      string
	Amount      float64
	BidderID    string
	SubmittedAt time.Time
}

// AuctionWindow is the period during which an item accepts bids.
// A zero Start or End leaves that side unbounded.
type AuctionWindow struct {
	ItemID string
	Start  time.Time
	End    time.Time
	Closed bool
}

// HasEnded reports whether no more bids are allowed at now
func (w AuctionWindow) HasEnded(now time.Time) bool {
	if w.Closed {
		return true
	}
	return !w.End.IsZero() && !now.Before(w.End)
}

// HasStarted reports whether bidding has opened at now
func (w AuctionWindow) HasStarted(now time.Time) bool {
	return w.Start.IsZero() || !now.Before(w.Start)
}

// Subscription is one connection's interest in one item
type Subscription struct {
	ConnectionID string
	ItemID       string
}
