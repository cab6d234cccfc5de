package mmu

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/gekkosim/ppc"
)

// The TLB is a small 2-way set-associative cache of page-table-walk
// results, one instance per access stream (instruction fetch vs data).
// Way management — tag lookup, LRU victim choice, recency updates — is
// handled by an Akita cache directory; the translation payload lives in a
// side array indexed by (set, way), mirroring how the timing model pairs
// a directory with its data store.

const (
	tlbSets = 128
	tlbWays = 2
)

type tlbLookupResult int

const (
	tlbFound tlbLookupResult = iota
	tlbNotFound
	// tlbUpdateC: the entry hit but its changed bit was unset on a
	// write, so the walk must re-run to persist the bit to the page
	// table. The cached copy is updated in place without touching
	// recency order.
	tlbUpdateC
)

type tlbPayload struct {
	paddr uint32
	pte2  ppc.PTE2
}

type tlbCache struct {
	directory *akitacache.DirectoryImpl
	payload   []tlbPayload
}

func newTLBCache() *tlbCache {
	return &tlbCache{
		directory: akitacache.NewDirectory(
			tlbSets,
			tlbWays,
			PageSize,
			akitacache.NewLRUVictimFinder(),
		),
		payload: make([]tlbPayload, tlbSets*tlbWays),
	}
}

func (t *tlbCache) payloadIndex(block *akitacache.Block) int {
	return block.SetID*tlbWays + block.WayID
}

// lookup checks the cache for the page containing addr. On a hit the full
// physical address (page base | offset) is returned. A write access to an
// entry whose changed bit is still clear reports tlbUpdateC so the caller
// re-walks; whether that re-walk is a safeguard against concurrent
// page-table edits or an oversight in the original design is deliberately
// left as-is rather than silently optimized.
func (t *tlbCache) lookup(flag AccessKind, addr uint32) (uint32, tlbLookupResult) {
	pageAddr := addr &^ uint32(pageMask)
	block := t.directory.Lookup(0, uint64(pageAddr))
	if block == nil || !block.IsValid {
		return 0, tlbNotFound
	}

	entry := &t.payload[t.payloadIndex(block)]

	if flag == FlagWrite && !entry.pte2.Changed() {
		entry.pte2 = entry.pte2.SetChanged()
		return 0, tlbUpdateC
	}

	if flag != FlagNoException {
		t.directory.Visit(block)
	}

	return entry.paddr | addr&pageMask, tlbFound
}

// insert records a walk result, evicting the least recently used way of
// the page's set. Probes never replace entries.
func (t *tlbCache) insert(flag AccessKind, pte2 ppc.PTE2, addr uint32) {
	if flag == FlagNoException {
		return
	}

	pageAddr := addr &^ uint32(pageMask)
	victim := t.directory.FindVictim(uint64(pageAddr))
	if victim == nil {
		return
	}

	victim.Tag = uint64(pageAddr)
	victim.IsValid = true
	victim.IsDirty = false
	t.directory.Visit(victim)

	t.payload[t.payloadIndex(victim)] = tlbPayload{
		paddr: pte2.RPN() << pageShift,
		pte2:  pte2,
	}
}

// invalidate drops the cached translation for the page containing addr,
// if present.
func (t *tlbCache) invalidate(addr uint32) {
	pageAddr := addr &^ uint32(pageMask)
	if block := t.directory.Lookup(0, uint64(pageAddr)); block != nil {
		block.IsValid = false
	}
}
