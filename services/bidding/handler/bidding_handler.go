//go:generate mockgen -package=handler -destination=mock_bidding_handler.go -source=bidding_handler.go

package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	model "live-bidding/internal/models"
	"live-bidding/services/bidding/helpers"
	"live-bidding/utils"

	"github.com/gin-gonic/gin"
)

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, proposal model.BidProposal) (model.ItemBidState, error)
	Snapshot(ctx context.Context, itemID string) (model.ItemBidState, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	state, err := h.service.PlaceBid(c.Request.Context(), model.BidProposal{
		ItemID:      req.ItemID,
		Amount:      req.Amount,
		BidderID:    req.BidderID,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("RecordBidHandler: failed to record bid", map[string]any{
			"handler":   "RecordBidHandler",
			"item_id":   req.ItemID,
			"bidder_id": req.BidderID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidStateResponse(state), "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"item_id":   state.ItemID,
		"bidder_id": state.BidderID,
		"amount":    state.CurrentBid,
		"version":   state.Version,
	})
}

// GetCurrentBidHandler handles GET /items/:item_id/bid
func (h *BiddingHandler) GetCurrentBidHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	state, err := h.service.Snapshot(c.Request.Context(), itemID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetCurrentBidHandler: current bid error", map[string]any{"item_id": itemID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidStateResponse(state), "current bid retrieved successfully")
	helpers.LogSuccess("GetCurrentBidHandler", "current bid retrieved successfully", map[string]any{
		"item_id": itemID,
		"version": state.Version,
	})
}
