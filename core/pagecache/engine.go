// Package pagecache implements the pluggable page cache that backs the
// QuokkaDB storage engine. The host fetches pages by id, works on their
// buffers while they are pinned, and unpins them when done; the engine
// keeps the directory of resident pages and picks eviction victims
// through a replacement policy (LRU or LRU-2).
//
// Access to one CacheEngine is strictly single-threaded: the host
// serializes all calls, so the engine takes no locks.
package pagecache

import (
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CacheEngine orchestrates fetch, unpin, rekey, truncate and resize
// over a PageDirectory and a ReplacementPolicy.
type CacheEngine struct {
	id        string
	pageSize  int
	extraSize int
	maxPages  int
	variant   Variant

	dir    *PageDirectory
	policy ReplacementPolicy

	numFetches uint64
	numHits    uint64

	logger  *zap.Logger
	metrics *Metrics
	attrs   metric.MeasurementOption
}

// Option configures a CacheEngine at construction.
type Option func(*CacheEngine)

// WithLogger attaches a logger. The default is a no-op logger; the
// fetch path logs at Debug only.
func WithLogger(logger *zap.Logger) Option {
	return func(c *CacheEngine) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches a metric bundle. Engines sharing one bundle are
// told apart by their cache.id attribute.
func WithMetrics(m *Metrics) Option {
	return func(c *CacheEngine) {
		c.metrics = m
	}
}

// NewCacheEngine creates a cache for pages of pageSize bytes carrying
// extraSize bytes of host scratch. pageSize must be a positive power of
// two and extraSize at most MaxExtraSize. The cache starts with a
// maximum of zero pages; the host sets the real bound through
// SetMaxPages.
func NewCacheEngine(pageSize, extraSize int, variant Variant, opts ...Option) (*CacheEngine, error) {
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return nil, ErrInvalidPageSize
	}
	if extraSize < 0 || extraSize > MaxExtraSize {
		return nil, ErrInvalidExtraSize
	}
	policy, err := newPolicy(variant)
	if err != nil {
		return nil, err
	}

	c := &CacheEngine{
		id:        uuid.NewString(),
		pageSize:  pageSize,
		extraSize: extraSize,
		variant:   variant,
		dir:       NewPageDirectory(),
		policy:    policy,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(
		zap.String("cache_id", c.id),
		zap.Stringer("policy", variant),
	)
	c.attrs = metric.WithAttributes(
		attribute.String("cache.id", c.id),
		attribute.String("cache.policy", variant.String()),
	)
	return c, nil
}

// ID returns the engine's instance identifier. A host opens one cache
// per database file; the id keeps their log and metric streams apart.
func (c *CacheEngine) ID() string { return c.id }

// PageSize returns the configured page size in bytes.
func (c *CacheEngine) PageSize() int { return c.pageSize }

// ExtraSize returns the configured scratch buffer size in bytes.
func (c *CacheEngine) ExtraSize() int { return c.extraSize }

// Policy returns the replacement policy variant.
func (c *CacheEngine) Policy() Variant { return c.variant }

// MaxPages returns the current resident-page bound.
func (c *CacheEngine) MaxPages() int { return c.maxPages }

// NumPages returns the resident page count, pinned and unpinned.
func (c *CacheEngine) NumPages() int { return c.dir.Len() }

// NumFetches returns the number of fetches since creation.
func (c *CacheEngine) NumFetches() uint64 { return c.numFetches }

// NumHits returns the number of fetch hits since creation.
func (c *CacheEngine) NumHits() uint64 { return c.numHits }

// SetMaxPages sets the maximum number of resident pages and evicts
// unpinned pages in policy order until the count fits or only pinned
// pages remain. If pinned pages alone exceed n, the overflow drains at
// later unpins.
func (c *CacheEngine) SetMaxPages(n int) {
	if n < 0 {
		n = 0
	}
	c.maxPages = n
	for c.dir.Len() > n {
		victim := c.policy.SelectVictim(c.dir)
		if victim == nil {
			c.logger.Debug("resize leaves cache over capacity, only pinned pages remain",
				zap.Int("max_pages", n), zap.Int("num_pages", c.dir.Len()))
			return
		}
		c.destroyPage(victim, "resize")
	}
}

// Fetch returns the page with the given id, pinned. On a miss with
// allocate set it creates a page under capacity, or re-identifies an
// unpinned victim in place at capacity; the victim keeps its buffers
// and the host re-initializes the contents. Fetch returns nil on a miss
// without allocate, and on a miss at capacity when every resident page
// is pinned.
func (c *CacheEngine) Fetch(id PageID, allocate bool) *Page {
	c.numFetches = saturatingInc(c.numFetches)
	if p, ok := c.dir.Get(id); ok {
		// A hit while already pinned is legal and idempotent. The policy
		// is not notified; a pinned page keeps its replacement metadata
		// untouched, and it is not consulted while the page is pinned.
		p.pinned = true
		c.numHits = saturatingInc(c.numHits)
		c.recordFetch(true)
		return p
	}
	c.recordFetch(false)
	if !allocate {
		return nil
	}

	if c.dir.Len() < c.maxPages {
		p := newPage(id, c.pageSize, c.extraSize)
		if err := c.dir.Put(p); err != nil {
			// Unreachable: the lookup above missed.
			c.logger.DPanic("directory rejected fresh page", zap.Uint32("page_id", uint32(id)), zap.Error(err))
			return nil
		}
		c.policy.OnCreate(p)
		c.recordCreate()
		c.logger.Debug("allocated page", zap.Uint32("page_id", uint32(id)))
		return p
	}

	victim := c.policy.SelectVictim(c.dir)
	if victim == nil {
		c.logger.Debug("fetch miss with all pages pinned", zap.Uint32("page_id", uint32(id)))
		return nil
	}
	// Re-identify the victim in place: directory key and page id move to
	// the requested id, the buffers stay put so their addresses remain
	// stable, and the replacement state starts over.
	oldID := victim.id
	c.dir.Remove(oldID)
	victim.id = id
	victim.pinned = true
	if err := c.dir.Put(victim); err != nil {
		c.logger.DPanic("directory rejected reused victim", zap.Uint32("page_id", uint32(id)), zap.Error(err))
		return nil
	}
	c.policy.OnCreate(victim)
	c.policy.OnPin(victim)
	c.recordEviction()
	c.logger.Debug("reused victim page",
		zap.Uint32("old_page_id", uint32(oldID)),
		zap.Uint32("page_id", uint32(id)))
	return victim
}

// Unpin releases the host's claim on a page. The page is unpinned
// regardless of how many fetches pinned it. With discard set, or while
// the cache is over capacity after a resize, the page is destroyed
// instead of becoming an eviction candidate.
func (c *CacheEngine) Unpin(p *Page, discard bool) {
	if resident, ok := c.dir.Get(p.id); !ok || resident != p {
		c.logger.DPanic("unpin of page not owned by this cache", zap.Uint32("page_id", uint32(p.id)))
		return
	}
	if discard {
		c.destroyPage(p, "discard")
		return
	}
	if c.dir.Len() > c.maxPages {
		c.destroyPage(p, "overflow")
		return
	}
	p.pinned = false
	c.policy.OnUnpin(p)
}

// Rekey changes a page's identifier without disturbing its buffers,
// pin status or replacement metadata. A resident page already holding
// newID is destroyed to make room; the host guarantees it is unpinned.
func (c *CacheEngine) Rekey(p *Page, newID PageID) {
	if existing, ok := c.dir.Get(newID); ok && existing != p {
		if existing.pinned {
			c.logger.DPanic("rekey collides with a pinned page",
				zap.Uint32("page_id", uint32(newID)))
		}
		c.destroyPage(existing, "rekey")
	}
	if err := c.dir.Rename(p, newID); err != nil {
		c.logger.DPanic("rekey rename failed", zap.Uint32("page_id", uint32(newID)), zap.Error(err))
	}
}

// Truncate destroys every resident page with id at or above limit,
// pinned or not. Pinned pages in the range are implicitly unpinned; the
// host guarantees it no longer dereferences into the truncated range.
func (c *CacheEngine) Truncate(limit PageID) {
	removed := c.dir.RemoveIf(func(p *Page) bool { return p.id >= limit })
	for _, p := range removed {
		p.pinned = false
		c.policy.OnDestroy(p)
		c.recordDiscard("truncate")
	}
	if len(removed) > 0 {
		c.logger.Debug("truncated pages",
			zap.Uint32("page_id_limit", uint32(limit)),
			zap.Int("removed", len(removed)))
	}
}

// Close destroys every resident page and empties the cache. The engine
// remains usable afterwards, matching the host's destroy hook which is
// the last call it makes.
func (c *CacheEngine) Close() {
	removed := c.dir.RemoveIf(func(*Page) bool { return true })
	for _, p := range removed {
		p.pinned = false
		c.policy.OnDestroy(p)
		c.recordDiscard("close")
	}
}

// destroyPage removes a page from the directory and the policy. The
// buffers go with the page; no resident handle can name it afterwards.
func (c *CacheEngine) destroyPage(p *Page, reason string) {
	c.dir.Remove(p.id)
	p.pinned = false
	c.policy.OnDestroy(p)
	c.recordDiscard(reason)
	c.logger.Debug("destroyed page",
		zap.Uint32("page_id", uint32(p.id)),
		zap.String("reason", reason))
}

// saturatingInc bumps a counter without wrapping, so hit ratios stay
// meaningful over arbitrarily long runs.
func saturatingInc(v uint64) uint64 {
	if v == math.MaxUint64 {
		return v
	}
	return v + 1
}
