package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-bidding/internal/models"
	"live-bidding/internal/repository"
	"live-bidding/internal/statestore"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	dirty [][]string
}

func (f *fakeStore) RepersistDirty() []string {
	if len(f.dirty) == 0 {
		return nil
	}
	next := f.dirty[0]
	f.dirty = f.dirty[1:]
	return next
}

type fakeWindows struct{ evicted int }

func (f *fakeWindows) EvictExpired() int { return f.evicted }

func TestNew(t *testing.T) {
	_, err := New(nil, nil, time.Second)
	require.Error(t, err)

	r, err := New(&fakeStore{}, nil, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultInterval, r.interval)
}

func TestReconciler_RunOnce(t *testing.T) {
	store := &fakeStore{dirty: [][]string{{"item-1", "item-2"}}}
	r, err := New(store, &fakeWindows{evicted: 3}, time.Minute)
	require.NoError(t, err)

	items, evicted := r.RunOnce()
	require.Equal(t, []string{"item-1", "item-2"}, items)
	require.Equal(t, 3, evicted)

	items, _ = r.RunOnce()
	require.Empty(t, items)
	require.Equal(t, 2, r.Runs())
}

func TestReconciler_Schedules(t *testing.T) {
	r, err := New(&fakeStore{}, nil, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, r.Start())

	require.Eventually(t, func() bool { return r.Runs() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())
}

// A state whose durable write was abandoned is written again once the store
// of record recovers.
func TestReconciler_RecoversAbandonedWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	db := repository.NewMockAuctionDB(ctrl)

	state := models.ItemBidState{ItemID: "item-1", CurrentBid: 100, BidderID: "B", Version: 1}
	written := make(chan struct{})
	gomock.InOrder(
		db.EXPECT().WriteBidState(gomock.Any(), "item-1", state).Return(errors.New("no reachable servers")).Times(2),
		db.EXPECT().WriteBidState(gomock.Any(), "item-1", state).
			DoAndReturn(func(context.Context, string, models.ItemBidState) error {
				close(written)
				return nil
			}),
	)

	alerted := make(chan struct{}, 1)
	store := statestore.New(db,
		statestore.WithPersistPolicy(statestore.PersistPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Workers: 1}),
		statestore.WithAlertFunc(func(models.ItemBidState, error) { alerted <- struct{}{} }),
	)
	store.Start()
	defer store.Close()

	require.True(t, store.Reconcile(state))
	store.Persist(state)

	select {
	case <-alerted:
	case <-time.After(2 * time.Second):
		t.Fatal("write was not abandoned")
	}

	r, err := New(store, nil, time.Minute)
	require.NoError(t, err)
	items, _ := r.RunOnce()
	require.Equal(t, []string{"item-1"}, items)

	select {
	case <-written:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned write was not retried")
	}
}
