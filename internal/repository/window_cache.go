package repository

import (
	"context"
	"fmt"
	"time"

	model "live-bidding/internal/models"

	lru "github.com/hashicorp/golang-lru"
)

type cachedWindow struct {
	window    model.AuctionWindow
	fetchedAt time.Time
}

// WindowCache keeps recently used auction windows in memory so that bid
// validation does not hit the store of record on every submission.
type WindowCache struct {
	source WindowSource
	cache  *lru.Cache
	ttl    time.Duration
	now    func() time.Time
}

// NewWindowCache wraps source with an LRU of the given size.
// Entries older than ttl are fetched again; ttl <= 0 disables expiry.
func NewWindowCache(source WindowSource, size int, ttl time.Duration) (*WindowCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("window cache: %w", err)
	}
	return &WindowCache{
		source: source,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// GetAuctionWindow returns the cached window or loads it from the source
func (c *WindowCache) GetAuctionWindow(ctx context.Context, itemID string) (model.AuctionWindow, error) {
	if v, ok := c.cache.Get(itemID); ok {
		entry := v.(cachedWindow)
		if c.ttl <= 0 || c.now().Sub(entry.fetchedAt) < c.ttl {
			return entry.window, nil
		}
	}

	window, err := c.source.GetAuctionWindow(ctx, itemID)
	if err != nil {
		return model.AuctionWindow{}, err
	}
	c.cache.Add(itemID, cachedWindow{window: window, fetchedAt: c.now()})
	return window, nil
}

// Invalidate drops the cached window of one item
func (c *WindowCache) Invalidate(itemID string) {
	c.cache.Remove(itemID)
}

// EvictExpired removes every entry older than the ttl and returns how many were removed
func (c *WindowCache) EvictExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	removed := 0
	now := c.now()
	for _, key := range c.cache.Keys() {
		v, ok := c.cache.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(v.(cachedWindow).fetchedAt) >= c.ttl {
			c.cache.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached windows
func (c *WindowCache) Len() int {
	return c.cache.Len()
}
