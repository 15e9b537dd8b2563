// Package cache provides a small versioned Redis cache for idempotent tool
// results. Only read-only lookups (web search) go through it; calendar
// operations mutate state and are never cached.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mimilabs/mimi/internal/version"
)

// searchCacheTTL keeps search results fresh enough for "latest news" style
// queries while still absorbing repeated identical lookups within a session.
const searchCacheTTL = 15 * time.Minute

// SearchCache stores formatted web-search results keyed by query.
type SearchCache struct {
	rdb *redis.Client
}

func NewSearchCache(rdb *redis.Client) *SearchCache {
	return &SearchCache{rdb: rdb}
}

// Get returns the cached result for a query, if present. Redis errors are
// treated as cache misses; the search tool can always go to the network.
func (c *SearchCache) Get(ctx context.Context, query string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	key := version.SearchCacheKey(query)
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("Redis GET error for search cache: %v", err)
		return "", false
	}
	return val, true
}

// Set stores a search result. Failures are logged and ignored; caching is
// best effort.
func (c *SearchCache) Set(ctx context.Context, query, result string) {
	if c == nil || c.rdb == nil {
		return
	}
	key := version.SearchCacheKey(query)
	if err := c.rdb.Set(ctx, key, result, searchCacheTTL).Err(); err != nil {
		log.Printf("Redis SET error for search cache: %v", err)
	}
}
