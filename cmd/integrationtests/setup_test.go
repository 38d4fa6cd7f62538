package integrationtests

import (
	"bytes"
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
	"live-bidding/internal/server"
	"live-bidding/internal/session"
	"live-bidding/internal/statestore"
	"live-bidding/internal/transport"
	"live-bidding/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// testStack is the whole service wired over an in-memory store of record
type testStack struct {
	repo    *repository.MemoryRepo
	windows *repository.WindowCache
	store   *statestore.Store
	router  *gin.Engine
	srv     *httptest.Server
}

// SetupTestStack builds the service the way main does and seeds the repo with items.
func SetupTestStack(t *testing.T, minRebidIncrement float64, items ...model.Item) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, item := range items {
		repo.AddItem(item)
	}
	windows, err := repository.NewWindowCache(repo, 64, time.Minute)
	require.NoError(t, err)

	hub := transport.NewHub()
	subs := registry.New()
	var coord *broadcast.Coordinator
	store := statestore.New(repo,
		statestore.WithCommitHook(func(state model.ItemBidState, origin statestore.Origin) {
			coord.OnCommit(state, origin)
		}),
		statestore.WithPersistPolicy(statestore.PersistPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		}),
	)
	service := bidding.NewBiddingService(store, windows, bidding.Validator{MinRebidIncrement: minRebidIncrement}, bidding.DefaultCASRetries)
	manager := session.NewManager(service, subs, hub, session.WithDisconnectHook(hub.Drop))
	coord = broadcast.NewCoordinator(subs, hub, broadcast.WithDisconnectFunc(manager.DisconnectOnError))
	coord.Start()
	store.Start()

	live := handler.NewLiveHandler(hub, manager, transport.WSConfig{IdleTimeout: 5 * time.Second})
	router := server.SetupRouter(service, live)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		store.Close()
		coord.Close()
	})
	return &testStack{repo: repo, windows: windows, store: store, router: router, srv: srv}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if w.Code == http.StatusCreated || w.Code == http.StatusOK {
			resp = resp["data"].(map[string]any)
		}
	}

	return resp, w
}

// DialLive opens a WebSocket session against the stack
func DialLive(t *testing.T, st *testStack) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(st.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	return ws
}

// ReadMessage reads the next server message from a live session
func ReadMessage(t *testing.T, ws *websocket.Conn) model.ServerMessage {
	t.Helper()
	var msg model.ServerMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func jsonBody(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}
