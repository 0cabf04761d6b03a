package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newDirectoryPage(id PageID) *Page {
	return newPage(id, 512, 0)
}

func TestPageDirectory_PutGetRemove(t *testing.T) {
	dir := NewPageDirectory()
	require.Equal(t, 0, dir.Len())

	p := newDirectoryPage(1)
	require.NoError(t, dir.Put(p))
	require.Equal(t, 1, dir.Len())

	got, ok := dir.Get(1)
	require.True(t, ok)
	require.Same(t, p, got)

	_, ok = dir.Get(2)
	require.False(t, ok)

	dir.Remove(1)
	require.Equal(t, 0, dir.Len())
	_, ok = dir.Get(1)
	require.False(t, ok)
}

func TestPageDirectory_RejectsDuplicateIDs(t *testing.T) {
	dir := NewPageDirectory()
	require.NoError(t, dir.Put(newDirectoryPage(1)))
	require.ErrorIs(t, dir.Put(newDirectoryPage(1)), ErrDuplicatePageID)
	require.Equal(t, 1, dir.Len())
}

func TestPageDirectory_Rename(t *testing.T) {
	dir := NewPageDirectory()
	p := newDirectoryPage(1)
	require.NoError(t, dir.Put(p))

	require.NoError(t, dir.Rename(p, 5))
	require.EqualValues(t, 5, p.ID())
	_, ok := dir.Get(1)
	require.False(t, ok)
	got, ok := dir.Get(5)
	require.True(t, ok)
	require.Same(t, p, got)

	// Renaming onto an occupied key is refused; the engine clears the
	// target first.
	q := newDirectoryPage(9)
	require.NoError(t, dir.Put(q))
	require.ErrorIs(t, dir.Rename(p, 9), ErrDuplicatePageID)
	require.EqualValues(t, 5, p.ID())

	// Renaming a page onto its own key is fine.
	require.NoError(t, dir.Rename(p, 5))
}

func TestPageDirectory_RemoveIf(t *testing.T) {
	dir := NewPageDirectory()
	for id := PageID(1); id <= 6; id++ {
		require.NoError(t, dir.Put(newDirectoryPage(id)))
	}

	removed := dir.RemoveIf(func(p *Page) bool { return p.ID() >= 4 })
	require.Len(t, removed, 3)
	require.Equal(t, 3, dir.Len())
	for _, p := range removed {
		_, ok := dir.Get(p.ID())
		require.False(t, ok)
	}

	require.Empty(t, dir.RemoveIf(func(*Page) bool { return false }))
	require.Equal(t, 3, dir.Len())
}

func TestPageDirectory_RangeStopsEarly(t *testing.T) {
	dir := NewPageDirectory()
	for id := PageID(1); id <= 5; id++ {
		require.NoError(t, dir.Put(newDirectoryPage(id)))
	}
	seen := 0
	dir.Range(func(*Page) bool {
		seen++
		return seen < 2
	})
	require.Equal(t, 2, seen)
}
