package pagecache

// lruPolicy orders unpinned pages by their single most recent unpin
// stamp and evicts the oldest.
type lruPolicy struct {
	seq sequencer
}

func (lp *lruPolicy) OnCreate(p *Page) {
	p.seq = seqUnassigned
}

func (lp *lruPolicy) OnPin(p *Page) {}

func (lp *lruPolicy) OnUnpin(p *Page) {
	p.seq = lp.seq.Next()
}

func (lp *lruPolicy) OnDestroy(p *Page) {}

// SelectVictim scans the unpinned pages for the smallest stamp. A page
// still carrying the unassigned sentinel orders last; it can only be a
// candidate in malformed traces, since a never-unpinned page is pinned
// by construction.
func (lp *lruPolicy) SelectVictim(dir *PageDirectory) *Page {
	var victim *Page
	dir.Range(func(p *Page) bool {
		if p.pinned {
			return true
		}
		if victim == nil || p.seq <= victim.seq {
			victim = p
		}
		return true
	})
	return victim
}
