package mmu

import (
	"encoding/binary"

	"github.com/sarchlab/gekkosim/ppc"
)

// Hashed-page-table walk. The table lives in emulated physical memory in
// the hardware format: groups of eight entries, sixteen candidate slots
// across the primary and secondary (complemented) hash.

// physRead32 reads a big-endian word from physical memory. Returns zero
// for unmapped addresses; the walk then simply fails to match.
func (m *MMU) physRead32(addr uint32) uint32 {
	m.stats.PhysReads++
	if region := m.mem.PhysicalBytes(addr); len(region) >= 4 {
		return binary.BigEndian.Uint32(region)
	}
	return 0
}

func (m *MMU) physWrite32(value, addr uint32) {
	if region := m.mem.PhysicalBytes(addr); len(region) >= 4 {
		binary.BigEndian.PutUint32(region, value)
	}
}

// translatePageAddress resolves an effective address through the TLB and,
// on a miss, the hashed page table. Access-bit side effects are applied
// here: the referenced bit is set on every matched access, the changed
// bit additionally on writes, and the updated entry word is written back
// unless the access is a no-side-effect probe.
func (m *MMU) translatePageAddress(address uint32, flag AccessKind) TranslateResult {
	// The TLB catches nearly every lookup in practice; the walk below
	// is the rare path.
	cache := m.dtlb
	if flag == FlagOpcode {
		cache = m.itlb
	}
	paddr, res := cache.lookup(flag, address)
	if res == tlbFound {
		m.stats.TLBHits++
		return TranslateResult{Valid: true, Address: paddr}
	}

	sr := m.state.SR[ppc.EASegment(address)]

	offset := ppc.EAOffset(address)
	pageIndex := ppc.EAPageIndex(address)
	vsid := sr.VSID()
	api := ppc.EAAPI(address)

	hash := vsid ^ pageIndex
	tag := ppc.MakePTE1(vsid, api)

	m.stats.PageWalks++

	for hashFunc := 0; hashFunc < 2; hashFunc++ {
		if hashFunc == 1 {
			hash = ^hash
			tag = tag.WithHash()
		}

		ptegAddr := (hash&m.state.PageTableHashMask)<<6 | m.state.PageTableBase

		for i := 0; i < 8; i++ {
			if m.physRead32(ptegAddr) == uint32(tag) {
				pte2 := ppc.PTE2(m.physRead32(ptegAddr + 4))

				switch flag {
				case FlagNoException:
				case FlagRead, FlagOpcode:
					pte2 = pte2.SetReferenced()
				case FlagWrite:
					pte2 = pte2.SetReferenced().SetChanged()
				}

				if flag != FlagNoException {
					m.physWrite32(uint32(pte2), ptegAddr+4)
				}

				// A changed-bit hit already updated the cached
				// entry in place; don't disturb the set.
				if res != tlbUpdateC {
					cache.insert(flag, pte2, address)
				}

				return TranslateResult{
					Valid:   true,
					Address: pte2.RPN()<<pageShift | offset,
				}
			}
			ptegAddr += 8
		}
	}

	return TranslateResult{}
}
