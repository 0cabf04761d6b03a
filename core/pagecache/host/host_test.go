package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quokkadb/pagecache/core/pagecache"
)

func newTestCache(t *testing.T, variant pagecache.Variant, maxPages int) Cache {
	t.Helper()
	methods := Register(variant)
	require.NoError(t, methods.Init())
	cache, err := methods.Create(4096, 0)
	require.NoError(t, err)
	cache.SetCacheSize(maxPages)
	return cache
}

func TestRegister_CreateValidatesGeometry(t *testing.T) {
	methods := Register(pagecache.LRU)
	_, err := methods.Create(1000, 0)
	require.ErrorIs(t, err, pagecache.ErrInvalidPageSize)
	_, err = methods.Create(4096, 300)
	require.ErrorIs(t, err, pagecache.ErrInvalidExtraSize)
}

// TestFetch_CreateFlagCollapsesToBoolean checks the boundary contract:
// the host's two-tier create flag (1 = if easy, 2 = if necessary) maps
// to plain allocation, and zero never allocates.
func TestFetch_CreateFlagCollapsesToBoolean(t *testing.T) {
	cache := newTestCache(t, pagecache.LRU, 4)

	require.Nil(t, cache.Fetch(1, CreateNone), "create flag 0 must not allocate")
	require.Equal(t, 0, cache.PageCount())

	p1 := cache.Fetch(1, CreateIfEasy)
	require.NotNil(t, p1)
	p2 := cache.Fetch(2, CreateIfNeeded)
	require.NotNil(t, p2)
	require.Equal(t, 2, cache.PageCount())
}

func TestRekey_IgnoresOldID(t *testing.T) {
	cache := newTestCache(t, pagecache.LRU, 4)
	p := cache.Fetch(1, CreateIfNeeded)
	require.NotNil(t, p)

	// The page carries its key; a stale oldID must not matter.
	cache.Rekey(p, 999, 7)
	require.EqualValues(t, 7, p.ID())
	require.Nil(t, cache.Fetch(1, CreateNone))
	require.Same(t, p, cache.Fetch(7, CreateNone))
}

func TestTruncateAndDestroy(t *testing.T) {
	cache := newTestCache(t, pagecache.LRU, 4)
	cache.Unpin(cache.Fetch(1, CreateIfNeeded), false)
	cache.Unpin(cache.Fetch(5, CreateIfNeeded), false)
	cache.Fetch(8, CreateIfNeeded)

	cache.Truncate(5)
	require.Equal(t, 1, cache.PageCount(), "ids 5 and 8 are gone, pinned or not")

	cache.Destroy()
	require.Equal(t, 0, cache.PageCount())
}

func TestMethods_LifecycleHooksAreNoOps(t *testing.T) {
	methods := Register(pagecache.LRU2)
	require.NotNil(t, methods.Init)
	require.NotNil(t, methods.Shutdown)
	require.NoError(t, methods.Init())
	methods.Shutdown()
}
