package pagecache

// lru2Policy orders unpinned pages by the older of their two retained
// unpin stamps. Pages unpinned only once have no second-to-last access
// yet; they form a separate tier that is drained first, oldest first
// access leading.
type lru2Policy struct {
	seq sequencer
}

func (lp *lru2Policy) OnCreate(p *Page) {
	p.histLen = 0
}

func (lp *lru2Policy) OnPin(p *Page) {}

func (lp *lru2Policy) OnUnpin(p *Page) {
	p.pushHistory(lp.seq.Next())
}

func (lp *lru2Policy) OnDestroy(p *Page) {}

// SelectVictim applies three tiers over the unpinned pages:
//
//  1. pages with a single-entry history: a lone one is returned
//     outright; among several, the one whose first access is oldest.
//  2. otherwise every unpinned page has a full history: the one whose
//     second-to-last access is oldest.
//  3. no unpinned page: nil.
//
// The census runs before any tier so an empty candidate set is decided
// up front.
func (lp *lru2Policy) SelectVictim(dir *PageDirectory) *Page {
	numUnpinned := 0
	numSingle := 0
	dir.Range(func(p *Page) bool {
		if !p.pinned {
			numUnpinned++
			if p.histLen < 2 {
				numSingle++
			}
		}
		return true
	})
	if numUnpinned == 0 {
		return nil
	}

	var victim *Page
	switch {
	case numSingle == 1:
		dir.Range(func(p *Page) bool {
			if !p.pinned && p.histLen < 2 {
				victim = p
				return false
			}
			return true
		})
	case numSingle > 1:
		dir.Range(func(p *Page) bool {
			if !p.pinned && p.histLen < 2 {
				if victim == nil || p.historyFront() <= victim.historyFront() {
					victim = p
				}
			}
			return true
		})
	default:
		dir.Range(func(p *Page) bool {
			if !p.pinned {
				if victim == nil || p.historyFront() <= victim.historyFront() {
					victim = p
				}
			}
			return true
		})
	}
	return victim
}
