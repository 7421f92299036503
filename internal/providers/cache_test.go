package providers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kestrellabs/deepresearch/internal/evidence"
)

type countingSearch struct {
	calls int
	resp  SearchResponse
	err   error
}

func (c *countingSearch) Search(ctx context.Context, query string) (SearchResponse, error) {
	c.calls++
	if c.err != nil {
		return SearchResponse{}, c.err
	}
	resp := c.resp
	resp.Query = query
	return resp, nil
}

func newCacheUnderTest(t *testing.T, inner SearchProvider) (*CachedSearch, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCachedSearch(inner, rdb, time.Minute, zaptest.NewLogger(t)), mr
}

func TestCachedSearchHit(t *testing.T) {
	inner := &countingSearch{resp: SearchResponse{
		Content:   "answer[1]",
		Citations: []evidence.RawCitation{{LocalIndex: 1, URL: "https://a.com"}},
	}}
	c, _ := newCacheUnderTest(t, inner)

	first, err := c.Search(context.Background(), "some query")
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "some query")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "second lookup served from cache")
	assert.Equal(t, first, second)
	require.Len(t, second.Citations, 1)
	assert.Equal(t, "https://a.com", second.Citations[0].URL)
}

func TestCachedSearchKeyNormalization(t *testing.T) {
	inner := &countingSearch{resp: SearchResponse{Content: "x"}}
	c, _ := newCacheUnderTest(t, inner)

	_, err := c.Search(context.Background(), "Solar  Adoption")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "solar adoption")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestSearchFreshBypassesCache(t *testing.T) {
	inner := &countingSearch{resp: SearchResponse{Content: "x"}}
	c, _ := newCacheUnderTest(t, inner)

	_, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	_, err = c.SearchFresh(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "fresh search skips the cached entry")

	// The fresh result refreshed the entry for later lookups.
	_, err = c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSearchCorruptEntry(t *testing.T) {
	inner := &countingSearch{resp: SearchResponse{Content: "x"}}
	c, mr := newCacheUnderTest(t, inner)

	require.NoError(t, mr.Set("deepresearch:search:q", "{not json"))

	resp, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "x", resp.Content)
	assert.Equal(t, 1, inner.calls, "corrupt entry refetched")
}

func TestCachedSearchInnerError(t *testing.T) {
	inner := &countingSearch{err: &ProviderError{Provider: "perplexity"}}
	c, _ := newCacheUnderTest(t, inner)

	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}
