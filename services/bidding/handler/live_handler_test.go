package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bidding "live-bidding/internal/biddingService"
	"live-bidding/internal/broadcast"
	model "live-bidding/internal/models"
	"live-bidding/internal/registry"
	"live-bidding/internal/repository"
	"live-bidding/internal/session"
	"live-bidding/internal/statestore"
	"live-bidding/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type liveServer struct {
	srv     *httptest.Server
	hub     *transport.Hub
	service *bidding.BiddingService
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()

	repo := repository.NewMemoryRepo()
	repo.AddItem(model.Item{ItemID: "item1", Title: "lamp", Status: model.ItemStatusActive})

	hub := transport.NewHub()
	subs := registry.New()
	var coord *broadcast.Coordinator
	store := statestore.New(repo, statestore.WithCommitHook(func(state model.ItemBidState, _ statestore.Origin) {
		coord.Publish(state.ItemID, state)
	}))
	service := bidding.NewBiddingService(store, repo, bidding.Validator{}, 0)
	manager := session.NewManager(service, subs, hub, session.WithDisconnectHook(hub.Drop))
	coord = broadcast.NewCoordinator(subs, hub, broadcast.WithDisconnectFunc(manager.DisconnectOnError))
	coord.Start()
	store.Start()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	live := NewLiveHandler(hub, manager, transport.WSConfig{})
	router.GET("/ws", live.WebSocketHandler)
	router.GET("/items/:item_id/events", live.StreamItemHandler)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		store.Close()
		coord.Close()
	})
	return &liveServer{srv: srv, hub: hub, service: service}
}

func TestWebSocketHandler_JoinAndBid(t *testing.T) {
	ls := newLiveServer(t)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ls.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	read := func() model.ServerMessage {
		var msg model.ServerMessage
		require.NoError(t, ws.ReadJSON(&msg))
		return msg
	}

	require.NoError(t, ws.WriteJSON(model.ClientMessage{Type: model.MessageJoinItem, ItemID: "item1"}))
	require.Equal(t, model.ServerMessage{Type: model.MessageBidSnapshot, ItemID: "item1"}, read())

	require.NoError(t, ws.WriteJSON(model.ClientMessage{Type: model.MessageSubmitBid, ItemID: "item1", Amount: 100, BidderID: "B"}))
	require.Equal(t, model.ServerMessage{Type: model.MessageBidAccepted, ItemID: "item1", CurrentBid: 100, BidderID: "B", Version: 1}, read())

	require.NoError(t, ws.WriteJSON(model.ClientMessage{Type: model.MessageSubmitBid, ItemID: "item1", Amount: 100, BidderID: "C"}))
	require.Equal(t, model.RejectedMessage("item1", model.ReasonBidTooLow), read())

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.Equal(t, model.ProtocolErrorMessage(model.ReasonMalformedMessage), read())
}

func TestStreamItemHandler_SnapshotThenUpdates(t *testing.T) {
	ls := newLiveServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ls.srv.URL+"/items/item1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	next := func() (string, model.ServerMessage) {
		var event string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				var msg model.ServerMessage
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &msg))
				return event, msg
			}
		}
		t.Fatal("stream ended early")
		return "", model.ServerMessage{}
	}

	event, msg := next()
	require.Equal(t, model.MessageBidSnapshot, event)
	require.Equal(t, int64(0), msg.Version)

	require.Eventually(t, func() bool { return ls.hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	_, err = ls.service.PlaceBid(context.Background(), model.BidProposal{ItemID: "item1", Amount: 40, BidderID: "A"})
	require.NoError(t, err)

	event, msg = next()
	require.Equal(t, model.MessageBidAccepted, event)
	require.Equal(t, int64(1), msg.Version)
	require.Equal(t, 40.0, msg.CurrentBid)

	cancel()
	require.Eventually(t, func() bool { return ls.hub.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}
