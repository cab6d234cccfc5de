package jitcache

// startIndex is the dispatcher's fast path: a paged array mapping guest
// start addresses to block numbers. Pages cover 16KiB of guest address
// space, one slot per instruction word, and are allocated on first use.
// A slot holds the most recently finalized block for its address; the
// dispatcher still validates the mode bits before running it.

const (
	startPageShift = 14
	startPageSlots = 1 << (startPageShift - 2)
	startSlotMask  = startPageSlots - 1
)

const noBlock = int32(-1)

type startPage [startPageSlots]int32

type startIndex struct {
	pages map[uint32]*startPage
}

func newStartIndex() *startIndex {
	return &startIndex{pages: make(map[uint32]*startPage)}
}

func (s *startIndex) get(addr uint32) int32 {
	page := s.pages[addr>>startPageShift]
	if page == nil {
		return noBlock
	}
	return page[addr>>2&startSlotMask]
}

func (s *startIndex) set(addr uint32, num int32) {
	pageIdx := addr >> startPageShift
	page := s.pages[pageIdx]
	if page == nil {
		if num == noBlock {
			return
		}
		page = new(startPage)
		for i := range page {
			page[i] = noBlock
		}
		s.pages[pageIdx] = page
	}
	page[addr>>2&startSlotMask] = num
}

func (s *startIndex) clear() {
	s.pages = make(map[uint32]*startPage)
}
