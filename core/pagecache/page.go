package pagecache

import (
	"github.com/ncw/directio"
)

// PageID identifies a page within the host's database file.
type PageID uint32

// MaxExtraSize bounds the per-page scratch buffer the host may request.
const MaxExtraSize = 250

// seqUnassigned marks a page that has never been unpinned. It compares
// greater than every real stamp, so a fresh page is always the last
// candidate in an LRU scan.
const seqUnassigned = ^uint64(0)

// Page is a resident cache entry. The host holds a *Page across
// unrelated cache operations while the page is pinned; the data and
// extra buffers keep their address and length from creation until the
// page is destroyed, including across victim reuse and rekey.
type Page struct {
	id     PageID
	pinned bool

	data  []byte
	extra []byte

	// Replacement bookkeeping, owned by the engine's policy. seq is the
	// stamp of the most recent unpin (LRU); history holds up to the two
	// most recent unpin stamps, oldest first (LRU-2).
	seq     uint64
	history [2]uint64
	histLen uint8
}

// newPage allocates a page with a block-aligned data buffer. Pages are
// born pinned: the only way one comes into existence is a fetch that
// hands it straight to the host.
func newPage(id PageID, pageSize, extraSize int) *Page {
	return &Page{
		id:     id,
		pinned: true,
		data:   directio.AlignedBlock(pageSize),
		extra:  make([]byte, extraSize),
		seq:    seqUnassigned,
	}
}

// ID returns the page's current identifier. Rekey changes it.
func (p *Page) ID() PageID { return p.id }

// Pinned reports whether the host currently holds the page.
func (p *Page) Pinned() bool { return p.pinned }

// Data returns the page's primary buffer. The slice is exactly the
// configured page size and its base address is block-aligned.
func (p *Page) Data() []byte { return p.data }

// Extra returns the host's per-page scratch buffer. It may be empty.
func (p *Page) Extra() []byte { return p.extra }

func (p *Page) pushHistory(stamp uint64) {
	if p.histLen < 2 {
		p.history[p.histLen] = stamp
		p.histLen++
		return
	}
	p.history[0] = p.history[1]
	p.history[1] = stamp
}

// historyFront is the oldest retained unpin stamp: with a full history
// this is the second-to-last access, the LRU-2 ordering key.
func (p *Page) historyFront() uint64 { return p.history[0] }
