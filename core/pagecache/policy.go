package pagecache

import "fmt"

// Variant selects the replacement policy a CacheEngine runs.
type Variant int

const (
	// LRU evicts the page whose last unpin is oldest.
	LRU Variant = iota
	// LRU2 evicts the page whose second-to-last unpin is oldest, with a
	// tiered fallback for pages unpinned only once.
	LRU2
)

func (v Variant) String() string {
	switch v {
	case LRU:
		return "lru"
	case LRU2:
		return "lru2"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant maps a policy name ("lru", "lru2") to its Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "lru":
		return LRU, nil
	case "lru2", "lru-2":
		return LRU2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// ReplacementPolicy decides which unpinned page to evict and keeps the
// per-page recency bookkeeping current. The engine drives it with one
// notification per lifecycle event; policies never mutate the
// directory.
type ReplacementPolicy interface {
	// OnCreate notes a fresh page, or resets a victim being reused.
	// The page has no recency yet.
	OnCreate(p *Page)
	// OnPin is called when a victim page is reused in place. Fetch hits
	// do not notify the policy: a pinned page keeps whatever replacement
	// metadata it had, and victim selection skips pinned pages. Both
	// shipped policies treat this as a no-op.
	OnPin(p *Page)
	// OnUnpin records the unpin event and assigns fresh recency.
	OnUnpin(p *Page)
	// OnDestroy forgets the page.
	OnDestroy(p *Page)
	// SelectVictim picks one unpinned page to evict. It returns nil iff
	// no unpinned page exists.
	SelectVictim(dir *PageDirectory) *Page
}

func newPolicy(v Variant) (ReplacementPolicy, error) {
	switch v {
	case LRU:
		return &lruPolicy{}, nil
	case LRU2:
		return &lru2Policy{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(v))
	}
}

// sequencer hands out the monotonically increasing stamps assigned at
// each unpin event. One sequencer per policy instance: stamps are only
// ever compared within a single engine, and instance scope keeps
// unrelated caches from perturbing each other's eviction order.
type sequencer struct {
	next uint64
}

func (s *sequencer) Next() uint64 {
	n := s.next
	s.next++
	return n
}
