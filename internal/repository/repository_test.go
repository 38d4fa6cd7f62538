package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"live-bidding/internal/biddingerrors"
	model "live-bidding/internal/models"

	"github.com/stretchr/testify/require"
)

// Helper to create a new Item
func newItem(itemID string, start, end time.Time) model.Item {
	return model.Item{
		ItemID:        itemID,
		Title:         fmt.Sprintf("%s title", itemID),
		StartingPrice: 50,
		BiddingStart:  start,
		BiddingEnd:    end,
		Status:        model.ItemStatusActive,
	}
}

// Helper to create a bid state
func newState(itemID, bidderID string, amount float64, version int64) model.ItemBidState {
	return model.ItemBidState{
		ItemID:     itemID,
		CurrentBid: amount,
		BidderID:   bidderID,
		Version:    version,
		UpdatedAt:  time.Now().UTC(),
	}
}

// Test WriteBidState
func TestMemoryRepo_WriteBidState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name    string
		seed    []model.ItemBidState
		write   model.ItemBidState
		wantErr error
	}{
		{name: "first_write", write: newState("item1", "user1", 100, 1)},
		{name: "newer_version", seed: []model.ItemBidState{newState("item1", "user1", 100, 1)}, write: newState("item1", "user2", 120, 2)},
		{name: "same_version_is_stale", seed: []model.ItemBidState{newState("item1", "user1", 100, 1)}, write: newState("item1", "user2", 120, 1), wantErr: biddingerrors.ErrStaleWrite},
		{name: "older_version_is_stale", seed: []model.ItemBidState{newState("item1", "user1", 100, 3)}, write: newState("item1", "user2", 120, 2), wantErr: biddingerrors.ErrStaleWrite},
		{name: "newer_version_lower_bid_is_stale", seed: []model.ItemBidState{newState("item1", "user1", 100, 1)}, write: newState("item1", "user2", 60, 2), wantErr: biddingerrors.ErrStaleWrite},
		{name: "newer_version_equal_bid", seed: []model.ItemBidState{newState("item1", "user1", 100, 1)}, write: newState("item1", "user1", 100, 2)},
		{name: "unknown_item", write: newState("itemX", "user1", 100, 1), wantErr: biddingerrors.ErrItemNotFound},
		{name: "empty_itemID", write: newState("", "user1", 100, 1), wantErr: biddingerrors.ErrItemNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := NewMemoryRepo()
			repo.AddItem(newItem("item1", now.Add(-time.Hour), now.Add(time.Hour)))
			for _, s := range tc.seed {
				require.NoError(t, repo.WriteBidState(ctx, s.ItemID, s))
			}

			err := repo.WriteBidState(ctx, tc.write.ItemID, tc.write)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := repo.ReadBidState(ctx, tc.write.ItemID)
			require.NoError(t, err)
			require.Equal(t, tc.write, got)
		})
	}

	// concurrent writers racing on increasing versions never regress the stored state
	t.Run("concurrent_writes", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepo()
		repo.AddItem(newItem("item1", time.Time{}, time.Time{}))

		var wg sync.WaitGroup
		var stale atomic.Int64
		concurrentCount := 50

		for i := 1; i <= concurrentCount; i++ {
			wg.Add(1)
			i := i
			go func() {
				defer wg.Done()
				err := repo.WriteBidState(ctx, "item1", newState("item1", fmt.Sprintf("user-%d", i), float64(100+i), int64(i)))
				if err != nil {
					require.ErrorIs(t, err, biddingerrors.ErrStaleWrite)
					stale.Add(1)
				}
			}()
		}
		wg.Wait()

		got, err := repo.ReadBidState(ctx, "item1")
		require.NoError(t, err)
		require.Equal(t, int64(concurrentCount), got.Version)
		require.Less(t, stale.Load(), int64(concurrentCount))
	})
}

// Test ReadBidState
func TestMemoryRepo_ReadBidState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	repo.AddItem(newItem("item1", time.Time{}, time.Time{}))
	repo.AddItem(newItem("item2", time.Time{}, time.Time{}))
	stored := newState("item1", "user1", 100, 4)
	require.NoError(t, repo.WriteBidState(ctx, "item1", stored))

	tests := []struct {
		name    string
		itemID  string
		want    model.ItemBidState
		wantErr error
	}{
		{name: "existing_state", itemID: "item1", want: stored},
		{name: "item_without_bids", itemID: "item2", wantErr: biddingerrors.ErrNoBids},
		{name: "non_existing_item", itemID: "itemX", wantErr: biddingerrors.ErrItemNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := repo.ReadBidState(ctx, tc.itemID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// Test GetAuctionWindow
func TestMemoryRepo_GetAuctionWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)

	repo := NewMemoryRepo()
	repo.AddItem(newItem("item1", start, end))
	repo.AddItem(newItem("item2", start, end))
	require.NoError(t, repo.CloseItem("item2"))

	window, err := repo.GetAuctionWindow(ctx, "item1")
	require.NoError(t, err)
	require.Equal(t, model.AuctionWindow{ItemID: "item1", Start: start, End: end}, window)

	window, err = repo.GetAuctionWindow(ctx, "item2")
	require.NoError(t, err)
	require.True(t, window.Closed)
	require.True(t, window.HasEnded(start))

	_, err = repo.GetAuctionWindow(ctx, "itemX")
	require.ErrorIs(t, err, biddingerrors.ErrItemNotFound)

	require.ErrorIs(t, repo.CloseItem("itemX"), biddingerrors.ErrItemNotFound)
}
