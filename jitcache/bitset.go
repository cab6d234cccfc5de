package jitcache

// granuleBitset marks which 32-byte granules of physical memory hold
// compiled code. Guest writes first test the bit for the written range;
// only a set bit forces the costly range-index scan. The physical space
// is 512MiB, so the set is kept sparse: pages of bits are allocated the
// first time a granule in them is set.

const (
	granuleShift = 5

	// One bitset page covers 128KiB of physical memory.
	granulesPerPage = 1 << 12
	wordsPerPage    = granulesPerPage / 32
)

type granulePage [wordsPerPage]uint32

type granuleBitset struct {
	pages map[uint32]*granulePage
}

func newGranuleBitset() *granuleBitset {
	return &granuleBitset{pages: make(map[uint32]*granulePage)}
}

func (s *granuleBitset) set(granule uint32) {
	pageIdx := granule / granulesPerPage
	page := s.pages[pageIdx]
	if page == nil {
		page = new(granulePage)
		s.pages[pageIdx] = page
	}
	bit := granule % granulesPerPage
	page[bit/32] |= 1 << (bit % 32)
}

func (s *granuleBitset) test(granule uint32) bool {
	page := s.pages[granule/granulesPerPage]
	if page == nil {
		return false
	}
	bit := granule % granulesPerPage
	return page[bit/32]&(1<<(bit%32)) != 0
}

// setRange marks granules first through last inclusive.
func (s *granuleBitset) setRange(first, last uint32) {
	for g := first; g <= last; g++ {
		s.set(g)
	}
}

// testRange reports whether any granule in first through last inclusive
// is set. Whole absent pages are skipped without touching their bits.
func (s *granuleBitset) testRange(first, last uint32) bool {
	for g := first; g <= last; {
		pageIdx := g / granulesPerPage
		page := s.pages[pageIdx]
		if page == nil {
			g = (pageIdx + 1) * granulesPerPage
			continue
		}
		bit := g % granulesPerPage
		if page[bit/32]&(1<<(bit%32)) != 0 {
			return true
		}
		g++
	}
	return false
}

// clearRange clears granules first through last inclusive, releasing
// pages that become empty.
func (s *granuleBitset) clearRange(first, last uint32) {
	for g := first; g <= last; {
		pageIdx := g / granulesPerPage
		page := s.pages[pageIdx]
		if page == nil {
			g = (pageIdx + 1) * granulesPerPage
			continue
		}
		bit := g % granulesPerPage
		page[bit/32] &^= 1 << (bit % 32)
		g++
		if bit == granulesPerPage-1 || g > last {
			empty := true
			for _, w := range page {
				if w != 0 {
					empty = false
					break
				}
			}
			if empty {
				delete(s.pages, pageIdx)
			}
		}
	}
}

func (s *granuleBitset) clearAll() {
	s.pages = make(map[uint32]*granulePage)
}
