package terrain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
	"github.com/couchcryptid/terrain-analysis-service/internal/observability"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls int
	paths []string
	err   error
}

func (m *countingFetcher) FetchTiles(_ context.Context, _ domain.BBox, _ int, _ string) ([]string, error) {
	m.calls++
	return m.paths, m.err
}

func writeTileFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("tile"), 0600))
	return path
}

// --- CachedFetcher tests ---

func TestCachedFetcher_SecondFetchIsCacheHit(t *testing.T) {
	dir := t.TempDir()
	inner := &countingFetcher{paths: []string{writeTileFile(t, dir, "a.tif")}}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	p1, err := cached.FetchTiles(context.Background(), testBBox(t), 10, dir)
	require.NoError(t, err)
	p2, err := cached.FetchTiles(context.Background(), testBBox(t), 10, dir)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedFetcher_DifferentResolutionMisses(t *testing.T) {
	dir := t.TempDir()
	inner := &countingFetcher{paths: []string{writeTileFile(t, dir, "a.tif")}}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.FetchTiles(context.Background(), testBBox(t), 10, dir)
	_, _ = cached.FetchTiles(context.Background(), testBBox(t), 30, dir)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_RefetchesWhenFilesRemoved(t *testing.T) {
	dir := t.TempDir()
	path := writeTileFile(t, dir, "a.tif")
	inner := &countingFetcher{paths: []string{path}}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.FetchTiles(context.Background(), testBBox(t), 10, dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	_, err = cached.FetchTiles(context.Background(), testBBox(t), 10, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "stale cache entry should trigger a refetch")
}

func TestCachedFetcher_NoCoverageNotCached(t *testing.T) {
	inner := &countingFetcher{}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.FetchTiles(context.Background(), testBBox(t), 10, t.TempDir())
	_, _ = cached.FetchTiles(context.Background(), testBBox(t), 10, t.TempDir())

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", []string{"a.tif"})
	c.put("b", []string{"b.tif"})

	paths, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"a.tif"}, paths)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []string{"a.tif"})
	c.put("b", []string{"b.tif"})
	c.put("c", []string{"c.tif"}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	_, ok = c.get("b")
	assert.True(t, ok)

	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []string{"a.tif"})
	c.put("b", []string{"b.tif"})

	c.get("a")

	c.put("c", []string{"c.tif"})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}
