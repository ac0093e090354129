// Package cache holds computed sentiment aggregations for the dashboard.
package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
)

// AggregateCache stores aggregation results per office and period.
type AggregateCache struct {
	cache *gocache.Cache
}

// NewAggregateCache creates a cache whose entries expire after ttl.
func NewAggregateCache(ttl time.Duration) *AggregateCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AggregateCache{cache: gocache.New(ttl, 2*ttl)}
}

func key(officeID int64, periodID string) string {
	return fmt.Sprintf("%d|%s", officeID, periodID)
}

// Get returns the cached result for an office and period.
func (c *AggregateCache) Get(officeID int64, periodID string) (aggregate.Result, bool) {
	if v, found := c.cache.Get(key(officeID, periodID)); found {
		return v.(aggregate.Result), true
	}
	return aggregate.Result{}, false
}

// Set stores a result with the default expiration.
func (c *AggregateCache) Set(officeID int64, periodID string, r aggregate.Result) {
	c.cache.SetDefault(key(officeID, periodID), r)
}

// Flush drops every entry. New feedback can change any period's aggregation.
func (c *AggregateCache) Flush() {
	c.cache.Flush()
}

// Len returns the number of cached entries, including expired ones not yet cleaned up.
func (c *AggregateCache) Len() int {
	return c.cache.ItemCount()
}
