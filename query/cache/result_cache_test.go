package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/query/cache"
	"github.com/cqlsst/cqlsst/query/exec"
)

func TestResultCacheHitAndMiss(t *testing.T) {
	c := cache.NewResultCache(2, time.Minute)

	_, ok := c.Get(1)
	require.False(t, ok)

	want := exec.QueryResult{RowsAffected: 3}
	c.Put(1, want, 0)

	got, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, want, got)

	hits, misses := c.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)

	count, _, ok := c.AccessInfo(1)
	require.True(t, ok)
	require.Equal(t, uint64(1), count)
}

func TestResultCacheExpires(t *testing.T) {
	c := cache.NewResultCache(2, time.Millisecond)
	c.Put(1, exec.QueryResult{RowsAffected: 1}, 0)

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(1)
	require.False(t, ok, "entry should have expired")
}

func TestResultCacheLenTracksEntries(t *testing.T) {
	c := cache.NewResultCache(2, time.Minute)
	c.Put(1, exec.QueryResult{}, 0)
	c.Put(2, exec.QueryResult{}, 0)
	require.Equal(t, 2, c.Len())
}
