package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	model "live-bidding/internal/models"
	"live-bidding/internal/transport"
	handler "live-bidding/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestSetupRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := handler.NewMockBiddingServiceInterface(ctrl)
	service.EXPECT().Snapshot(gomock.Any(), "item1").Return(model.NewItemBidState("item1"), nil)
	service.EXPECT().PlaceBid(gomock.Any(), gomock.Any()).Return(model.ItemBidState{ItemID: "item1", CurrentBid: 5, BidderID: "A", Version: 1}, nil)

	router := SetupRouter(service, handler.NewLiveHandler(transport.NewHub(), nil, transport.WSConfig{}))

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/items/item1/bid", "", http.StatusOK},
		{http.MethodPost, "/bids", `{"item_id":"item1","bidder_id":"A","amount":5}`, http.StatusCreated},
		{http.MethodGet, "/ws", "", http.StatusBadRequest}, // not an upgrade request
		{http.MethodGet, "/users/u1/items", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		if tc.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSetupRouter_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := handler.NewMockBiddingServiceInterface(ctrl)
	live := handler.NewLiveHandler(transport.NewHub(), nil, transport.WSConfig{})

	preflight := func(router *gin.Engine, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/bids", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("any_origin", func(t *testing.T) {
		w := preflight(SetupRouter(service, live), "http://viewer.example")
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allow_list", func(t *testing.T) {
		router := SetupRouter(service, live, "http://shop.example")

		w := preflight(router, "http://shop.example")
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "http://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

		w = preflight(router, "http://other.example")
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
