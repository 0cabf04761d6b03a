package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLRU2_SingleAccessTierPrefersOldestFirstAccess replays the
// canonical trace: page 1 is seasoned (two unpins), pages 2 and 3 have
// been unpinned once. With several single-access candidates, the one
// with the oldest first access goes first.
func TestLRU2_SingleAccessTierPrefersOldestFirstAccess(t *testing.T) {
	engine := newTestEngine(t, LRU2, 3)

	touch(t, engine, 1)
	touch(t, engine, 1) // history size 2
	p2 := touch(t, engine, 2)
	touch(t, engine, 3)

	victim := fetchPinned(t, engine, 4)
	require.Same(t, p2, victim, "pages 2 and 3 are unseasoned; 2 has the older first access")
	require.Equal(t, []uint32{1, 3, 4}, residentIDs(engine))
}

// TestLRU2_LoneSingleAccessPageGoesFirst continues the trace: with
// exactly one unseasoned unpinned page, it is taken regardless of
// stamp comparisons.
func TestLRU2_LoneSingleAccessPageGoesFirst(t *testing.T) {
	engine := newTestEngine(t, LRU2, 3)

	touch(t, engine, 1)
	touch(t, engine, 1)
	touch(t, engine, 2)
	p3 := touch(t, engine, 3)
	fetchPinned(t, engine, 4) // evicts 2, stays pinned

	victim := fetchPinned(t, engine, 5)
	require.Same(t, p3, victim, "3 is the only unseasoned unpinned page; 1 is seasoned")
	require.Equal(t, []uint32{1, 4, 5}, residentIDs(engine))
}

// TestLRU2_SeasonedTierUsesSecondToLastAccess finishes the trace: once
// every unpinned page carries a full history, the victim is the one
// whose older retained stamp is smallest.
func TestLRU2_SeasonedTierUsesSecondToLastAccess(t *testing.T) {
	engine := newTestEngine(t, LRU2, 3)

	p1 := touch(t, engine, 1)
	touch(t, engine, 1)
	touch(t, engine, 2)
	touch(t, engine, 3)
	p4 := fetchPinned(t, engine, 4) // evicts 2
	p5 := fetchPinned(t, engine, 5) // evicts 3

	engine.Unpin(p4, false)
	engine.Unpin(p5, false)
	engine.Unpin(fetchPinned(t, engine, 4), false)
	engine.Unpin(fetchPinned(t, engine, 5), false)

	// 1, 4 and 5 all have two-entry histories; both of 1's unpins
	// predate the others.
	victim := fetchPinned(t, engine, 6)
	require.Same(t, p1, victim)
	require.Equal(t, []uint32{4, 5, 6}, residentIDs(engine))
}

// TestLRU2_ReuseResetsHistory checks that a reused victim starts over:
// stale stamps from its previous identity would otherwise make it look
// seasoned.
func TestLRU2_ReuseResetsHistory(t *testing.T) {
	engine := newTestEngine(t, LRU2, 2)

	touch(t, engine, 1)
	touch(t, engine, 1)
	touch(t, engine, 2)
	touch(t, engine, 2)

	reused := fetchPinned(t, engine, 3) // reuses one of the seasoned pages
	engine.Unpin(reused, false)
	require.EqualValues(t, 1, reused.histLen,
		"one unpin after reuse leaves a single-entry history")

	// The reused page is the lone unseasoned candidate and goes first,
	// even though the other page's stamps are older.
	victim := fetchPinned(t, engine, 9)
	require.Same(t, reused, victim)
}

// TestLRU2_AllPinnedReturnsNil covers the corrected tier ordering: the
// unpinned census runs before any tier, so an empty candidate set
// yields nil instead of an arbitrary page.
func TestLRU2_AllPinnedReturnsNil(t *testing.T) {
	engine := newTestEngine(t, LRU2, 2)
	fetchPinned(t, engine, 1)
	fetchPinned(t, engine, 2)
	require.Nil(t, engine.Fetch(3, true))
}

func TestLRU2_HistoryKeepsTwoMostRecentStamps(t *testing.T) {
	engine := newTestEngine(t, LRU2, 2)
	p := touch(t, engine, 1)
	first := p.history[0]
	engine.Unpin(fetchPinned(t, engine, 1), false)
	engine.Unpin(fetchPinned(t, engine, 1), false)

	require.EqualValues(t, 2, p.histLen)
	require.Greater(t, p.history[0], first, "the oldest stamp rotates out after the third unpin")
	require.Greater(t, p.history[1], p.history[0], "stamps stay ordered oldest first")
}
