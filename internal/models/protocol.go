package models

// Inbound message kinds
const (
	MessageJoinItem  = "JoinItem"
	MessageLeaveItem = "LeaveItem"
	MessageSubmitBid = "SubmitBid"
)

// Outbound message kinds
const (
	MessageBidSnapshot   = "BidSnapshot"
	MessageBidAccepted   = "BidAccepted"
	MessageBidRejected   = "BidRejected"
	MessageProtocolError = "ProtocolError"
)

// RejectReason tells a bidder why a submission was refused
type RejectReason string

const (
	ReasonBidTooLow            RejectReason = "BidTooLow"
	ReasonSelfOutbidNotAllowed RejectReason = "SelfOutbidNotAllowed"
	ReasonAuctionClosed        RejectReason = "AuctionClosed"
	ReasonAuctionNotStarted    RejectReason = "AuctionNotStarted"
	ReasonItemNotFound         RejectReason = "ItemNotFound"
	ReasonInvalidBid           RejectReason = "InvalidBid"
	ReasonUnavailable          RejectReason = "Unavailable"
	ReasonMalformedMessage     RejectReason = "MalformedMessage"
)

// ClientMessage is a message received from a connection
type ClientMessage struct {
	Type     string  `json:"type"`
	ItemID   string  `json:"itemId"`
	Amount   float64 `json:"amount,omitempty"`
	BidderID string  `json:"bidderId,omitempty"`
}

// ServerMessage is a message sent to a connection
type ServerMessage struct {
	Type       string       `json:"type"`
	ItemID     string       `json:"itemId,omitempty"`
	CurrentBid float64      `json:"currentBid"`
	BidderID   string       `json:"bidderId"`
	Version    int64        `json:"version"`
	Reason     RejectReason `json:"reason,omitempty"`
}

// SnapshotMessage builds the point-to-point initial sync for a joiner
func SnapshotMessage(state ItemBidState) ServerMessage {
	return stateMessage(MessageBidSnapshot, state)
}

// AcceptedMessage builds the broadcast for an accepted bid
func AcceptedMessage(state ItemBidState) ServerMessage {
	return stateMessage(MessageBidAccepted, state)
}

// RejectedMessage builds the reply for a refused bid
func RejectedMessage(itemID string, reason RejectReason) ServerMessage {
	return ServerMessage{Type: MessageBidRejected, ItemID: itemID, Reason: reason}
}

// ProtocolErrorMessage builds the reply for an unreadable client message
func ProtocolErrorMessage(reason RejectReason) ServerMessage {
	return ServerMessage{Type: MessageProtocolError, Reason: reason}
}

func stateMessage(kind string, state ItemBidState) ServerMessage {
	return ServerMessage{
		Type:       kind,
		ItemID:     state.ItemID,
		CurrentBid: state.CurrentBid,
		BidderID:   state.BidderID,
		Version:    state.Version,
	}
}
