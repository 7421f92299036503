package providers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/metrics"
)

const cacheKeyPrefix = "deepresearch:search:"

// CachedSearch wraps a SearchProvider with a Redis result cache keyed
// by normalized query text. A query repeated within one session (or
// across sessions, within the TTL) is served from the cache;
// SearchFresh bypasses and refreshes the entry for the case where the
// gap analyzer deliberately re-issues a query.
type CachedSearch struct {
	inner  SearchProvider
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSearch(inner SearchProvider, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedSearch {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedSearch{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(query string) string {
	return cacheKeyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (c *CachedSearch) Search(ctx context.Context, query string) (SearchResponse, error) {
	key := cacheKey(query)
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached SearchResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.SearchCacheHits.Inc()
			c.logger.Debug("search cache hit", zap.String("query", query))
			return cached, nil
		}
		// Corrupt entry: fall through and refresh.
		c.rdb.Del(ctx, key)
	}
	metrics.SearchCacheMisses.Inc()
	return c.fetchAndStore(ctx, key, query)
}

// SearchFresh skips the cache lookup but still refreshes the entry, so
// later non-fresh lookups see the newest results.
func (c *CachedSearch) SearchFresh(ctx context.Context, query string) (SearchResponse, error) {
	return c.fetchAndStore(ctx, cacheKey(query), query)
}

func (c *CachedSearch) fetchAndStore(ctx context.Context, key, query string) (SearchResponse, error) {
	resp, err := c.inner.Search(ctx, query)
	if err != nil {
		return SearchResponse{}, err
	}
	if data, err := json.Marshal(resp); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			// Cache write failure is not a search failure.
			c.logger.Warn("search cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}
