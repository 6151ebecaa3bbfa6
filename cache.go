package alchemy

import (
	"context"
	"sync"
	"time"
)

type cachedListing struct {
	listing Listing
	fetched time.Time
}

// ListingCache keeps each user's image listing in memory for a short TTL.
// Writers call Invalidate for the affected user. A load that overlaps an
// invalidation is returned to its caller but not cached.
type ListingCache struct {
	mu      sync.RWMutex
	entries map[string]cachedListing
	gens    map[string]uint64
	epoch   uint64
	ttl     time.Duration
	store   *Store

	loaded func(userID string) // test hook between load and write-back
}

type cacheVersion struct {
	epoch, gen uint64
}

// NewListingCache creates a ListingCache backed by the given Store.
func NewListingCache(s *Store, ttl time.Duration) *ListingCache {
	return &ListingCache{
		store:   s,
		ttl:     ttl,
		entries: make(map[string]cachedListing),
		gens:    make(map[string]uint64),
	}
}

// Invalidate drops the cached listing for userID.
func (c *ListingCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.gens[userID]++
	c.mu.Unlock()
}

// InvalidateAll drops every cached listing.
func (c *ListingCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cachedListing)
	c.epoch++
	c.mu.Unlock()
}

// version must be called with mu held.
func (c *ListingCache) version(userID string) cacheVersion {
	return cacheVersion{epoch: c.epoch, gen: c.gens[userID]}
}

// Get returns the user's listing, loading it on a miss.
func (c *ListingCache) Get(ctx context.Context, userID string) (Listing, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	v := c.version(userID)
	c.mu.RUnlock()
	if ok && time.Since(e.fetched) < c.ttl {
		return e.listing, nil
	}

	images, err := c.store.ListImages(ctx, userID)
	if err != nil {
		return Listing{}, err
	}
	var total int64
	for _, img := range images {
		total += img.Size
	}
	l := Listing{Images: images, TotalSize: total, UserQuota: UserQuota}
	if c.loaded != nil {
		c.loaded(userID)
	}

	c.mu.Lock()
	if c.version(userID) == v {
		c.entries[userID] = cachedListing{listing: l, fetched: time.Now()}
	}
	c.mu.Unlock()
	return l, nil
}
