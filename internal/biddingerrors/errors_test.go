package biddingerrors

import (
	"errors"
	"fmt"
	"testing"

	"live-bidding/internal/models"

	"github.com/stretchr/testify/require"
)

func TestReasonOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		reason    models.RejectReason
		rejection bool
	}{
		{name: "bid_too_low", err: ErrBidTooLow, reason: models.ReasonBidTooLow, rejection: true},
		{name: "wrapped_self_outbid", err: fmt.Errorf("service: %w", ErrSelfOutbidNotAllowed), reason: models.ReasonSelfOutbidNotAllowed, rejection: true},
		{name: "auction_closed", err: ErrAuctionClosed, reason: models.ReasonAuctionClosed, rejection: true},
		{name: "auction_not_started", err: ErrAuctionNotStarted, reason: models.ReasonAuctionNotStarted, rejection: true},
		{name: "item_not_found", err: ErrItemNotFound, reason: models.ReasonItemNotFound, rejection: true},
		{name: "invalid_bid", err: ErrInvalidBid, reason: models.ReasonInvalidBid, rejection: true},
		{name: "malformed", err: ErrMalformedMessage, reason: models.ReasonMalformedMessage},
		{name: "conflict_is_not_a_rejection", err: ErrVersionConflict, reason: models.ReasonUnavailable},
		{name: "unknown", err: errors.New("mongo down"), reason: models.ReasonUnavailable},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.reason, ReasonOf(tc.err))
			require.Equal(t, tc.rejection, IsRejection(tc.err))
		})
	}
}
