package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/publiclogic/archieve/internal/apperr"
	"github.com/publiclogic/archieve/internal/models"
)

// ListingCache caches the record listing between invalidations.
type ListingCache struct {
	conn *Connector

	mu      sync.Mutex
	records []models.Record
	valid   bool
	gen     uint64

	subMu sync.Mutex
	onInv []func()
}

// NewListingCache reads through conn's current client.
func NewListingCache(conn *Connector) *ListingCache {
	c := &ListingCache{conn: conn}
	conn.Subscribe(func(bool) { c.Invalidate() })
	return c
}

// Invalidate drops the cached listing so the next read refetches.
func (c *ListingCache) Invalidate() {
	c.mu.Lock()
	c.records = nil
	c.valid = false
	c.gen++
	c.mu.Unlock()

	c.subMu.Lock()
	fns := append([]func(){}, c.onInv...)
	c.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// OnInvalidate registers fn to run after every invalidation.
func (c *ListingCache) OnInvalidate(fn func()) {
	c.subMu.Lock()
	c.onInv = append(c.onInv, fn)
	c.subMu.Unlock()
}

// Records returns the full listing, newest first.
func (c *ListingCache) Records(ctx context.Context) ([]models.Record, error) {
	client := c.conn.Current()
	if client == nil {
		return nil, apperr.ErrUnavailable
	}

	c.mu.Lock()
	if c.valid {
		records := append([]models.Record(nil), c.records...)
		c.mu.Unlock()
		return records, nil
	}
	gen := c.gen
	c.mu.Unlock()

	// The fetch runs unlocked; an invalidation meanwhile bumps gen and the
	// result is returned without being stored.
	records, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote: list records: %w", err)
	}
	models.SortByCreated(records)

	c.mu.Lock()
	if c.gen == gen {
		c.records = records
		c.valid = true
	}
	c.mu.Unlock()
	return append([]models.Record(nil), records...), nil
}

// Recent returns at most n records, newest first.
func (c *ListingCache) Recent(ctx context.Context, n int) ([]models.Record, error) {
	records, err := c.Records(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}
