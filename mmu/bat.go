package mmu

import (
	"github.com/sarchlab/gekkosim/memmap"
	"github.com/sarchlab/gekkosim/ppc"
)

// Block-address translation. The sixteen register pairs (eight per
// stream) are compiled into flat direct-mapped tables with one entry per
// 128KiB block: physical base of the granule with the valid bit packed
// into bit 0. Rebuilds are O(coverage) and happen only on register
// writes, never on the translation hot path. Overlapping or malformed
// pairs are not validated; the last write per granule wins.

type batTranslation struct {
	logicalBase  uint32
	logicalSize  uint32
	physicalBase uint32
}

func computeBATTranslations(dst []batTranslation, pairs []ppc.BATPair) {
	for i := range dst {
		up, lo := pairs[i].Up, pairs[i].Lo
		dst[i].logicalBase = up.EffectiveBase()
		dst[i].logicalSize = up.BlockSize()
		dst[i].physicalBase = lo.PhysicalBase()
		if lo.PP() == 0 {
			// No access: disable the pair entirely.
			dst[i].logicalSize = 0
		}
	}
}

func updateBATTable(table []uint32, translations []batTranslation) {
	for i := range translations {
		start := translations[i].logicalBase >> batShift
		size := translations[i].logicalSize >> batShift
		for j := uint32(0); j < size; j++ {
			// Pairs programmed past the top of the address space wrap;
			// the registers are guest controlled and take any value.
			table[(start+j)&(batTableSize-1)] = translations[i].physicalBase + j<<batShift | 1
		}
	}
}

// updateFakeVMEMBat overlays one 256MiB window starting at startAddr onto
// the fake-VMEM backing region. The masking against the RAM size (not the
// RAM mask) is deliberate: it reproduces the mirroring titles rely on
// when they expect paging with full MMU emulation off.
func (m *MMU) updateFakeVMEMBat(startAddr uint32) {
	for i := uint32(0); i < 0x10000000>>batShift; i++ {
		eAddress := i + startAddr>>batShift
		pAddress := memmap.FakeVMEMBase | 1 | i<<batShift&memmap.RAMSize
		m.dbatTable[eAddress] = pAddress
	}
}

func (m *MMU) extendedBATs() bool {
	return m.config.Wii && m.state.HID4SBE
}

// DBATUpdated rebuilds the data BAT table. Call after any write to a DBAT
// register pair, HID4, or SDR-independent mode switches. The address
// space is notified of the resulting logical-region mapping deltas so
// logical-address views stay consistent.
func (m *MMU) DBATUpdated() {
	clear(m.dbatTable)

	var t [ppc.NumBATPairs]batTranslation
	computeBATTranslations(t[:4], m.state.DBAT[:4])
	extended := m.extendedBATs()
	if extended {
		computeBATTranslations(t[4:], m.state.DBAT[4:])
	}
	updateBATTable(m.dbatTable, t[:])

	if m.mem.FakeVMEM() != nil {
		// In fake-VMEM mode, overlay two windows onto the backing
		// region behind the configured pairs.
		m.updateFakeVMEMBat(0x40000000)
		m.updateFakeVMEMBat(0x70000000)
	}

	active := 4
	if extended {
		active = ppc.NumBATPairs
	}
	for i := 0; i < active; i++ {
		m.mem.InvalidateLogicalRegion(i)
	}
	for i := 0; i < active; i++ {
		m.mem.UpdateLogicalRegion(i, t[i].logicalBase, t[i].logicalSize, t[i].physicalBase)
	}
}

// IBATUpdated rebuilds the instruction BAT table.
func (m *MMU) IBATUpdated() {
	clear(m.ibatTable)

	var t [ppc.NumBATPairs]batTranslation
	computeBATTranslations(t[:4], m.state.IBAT[:4])
	if m.extendedBATs() {
		computeBATTranslations(t[4:], m.state.IBAT[4:])
	}
	updateBATTable(m.ibatTable, t[:])
}
