package biddingerrors

import (
	"errors"

	"live-bidding/internal/models"
)

// Repository-level errors
var (
	ErrItemNotFound = errors.New("item not found")
	ErrNoBids       = errors.New("no bids found for item")
	ErrStaleWrite   = errors.New("stored bid state is newer than the write")
)

// business logic errors
var (
	ErrInvalidBid           = errors.New("invalid bid")
	ErrBidTooLow            = errors.New("bid amount too low")
	ErrSelfOutbidNotAllowed = errors.New("bidder already holds the current bid")
	ErrAuctionClosed        = errors.New("auction closed")
	ErrAuctionNotStarted    = errors.New("auction not started")
)

// concurrency and durability errors
var (
	ErrVersionConflict  = errors.New("bid state version conflict")
	ErrPersistExhausted = errors.New("persist retries exhausted")
)

// session and transport errors
var (
	ErrMalformedMessage = errors.New("malformed client message")
	ErrSessionClosed    = errors.New("session closed")
	ErrUnknownSession   = errors.New("unknown session")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("connection send queue full")
)

// IsRejection reports whether err is a business-rule refusal of a bid
func IsRejection(err error) bool {
	_, ok := rejectionReason(err)
	return ok
}

// ReasonOf maps an error to the reason sent back to the bidder
func ReasonOf(err error) models.RejectReason {
	if reason, ok := rejectionReason(err); ok {
		return reason
	}
	if errors.Is(err, ErrMalformedMessage) {
		return models.ReasonMalformedMessage
	}
	return models.ReasonUnavailable
}

func rejectionReason(err error) (models.RejectReason, bool) {
	switch {
	case errors.Is(err, ErrBidTooLow):
		return models.ReasonBidTooLow, true
	case errors.Is(err, ErrSelfOutbidNotAllowed):
		return models.ReasonSelfOutbidNotAllowed, true
	case errors.Is(err, ErrAuctionClosed):
		return models.ReasonAuctionClosed, true
	case errors.Is(err, ErrAuctionNotStarted):
		return models.ReasonAuctionNotStarted, true
	case errors.Is(err, ErrItemNotFound):
		return models.ReasonItemNotFound, true
	case errors.Is(err, ErrInvalidBid):
		return models.ReasonInvalidBid, true
	}
	return "", false
}
