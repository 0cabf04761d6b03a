// Package host renders the storage engine's pluggable-cache hook table
// over the page cache core. Each hook maps one-to-one onto a
// CacheEngine operation; the adapter adds no behavior of its own.
package host

import (
	"github.com/quokkadb/pagecache/core/pagecache"
)

// Create flags the host passes to Fetch. Zero means do not allocate on
// a miss; both non-zero values allocate. The core does not distinguish
// "create if easy" from "create if necessary", so the flag collapses to
// a boolean at the boundary.
const (
	CreateNone     = 0
	CreateIfEasy   = 1
	CreateIfNeeded = 2
)

// Cache is the surface one cache instance presents to the host.
type Cache interface {
	// SetCacheSize sets the maximum number of resident pages.
	SetCacheSize(n int)
	// PageCount returns the resident page count.
	PageCount() int
	// Fetch returns a pinned page, or nil per the fetch state machine.
	Fetch(id uint32, createFlag int) *pagecache.Page
	// Unpin releases a page, optionally discarding it.
	Unpin(p *pagecache.Page, discard bool)
	// Rekey changes a page's id. oldID is redundant (the page carries
	// its key) and ignored.
	Rekey(p *pagecache.Page, oldID, newID uint32)
	// Truncate discards all pages with id at or above limit.
	Truncate(limit uint32)
	// Destroy frees every resident page. It is the host's last call on
	// this instance.
	Destroy()
}

// Methods is the hook table the host installs. Init runs once before
// any cache is created and Shutdown once after the last is destroyed;
// the core needs neither, so both default to no-ops.
type Methods struct {
	Init     func() error
	Shutdown func()
	Create   func(pageSize, extraSize int) (Cache, error)
}

// Register builds the hook table for the given policy variant. The
// options are applied to every engine Create constructs.
func Register(variant pagecache.Variant, opts ...pagecache.Option) Methods {
	return Methods{
		Init:     func() error { return nil },
		Shutdown: func() {},
		Create: func(pageSize, extraSize int) (Cache, error) {
			engine, err := pagecache.NewCacheEngine(pageSize, extraSize, variant, opts...)
			if err != nil {
				return nil, err
			}
			return &engineCache{engine: engine}, nil
		},
	}
}

type engineCache struct {
	engine *pagecache.CacheEngine
}

func (c *engineCache) SetCacheSize(n int) {
	c.engine.SetMaxPages(n)
}

func (c *engineCache) PageCount() int {
	return c.engine.NumPages()
}

func (c *engineCache) Fetch(id uint32, createFlag int) *pagecache.Page {
	return c.engine.Fetch(pagecache.PageID(id), createFlag != CreateNone)
}

func (c *engineCache) Unpin(p *pagecache.Page, discard bool) {
	c.engine.Unpin(p, discard)
}

func (c *engineCache) Rekey(p *pagecache.Page, _, newID uint32) {
	c.engine.Rekey(p, pagecache.PageID(newID))
}

func (c *engineCache) Truncate(limit uint32) {
	c.engine.Truncate(pagecache.PageID(limit))
}

func (c *engineCache) Destroy() {
	c.engine.Close()
}
