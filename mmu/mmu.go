// Package mmu implements effective-to-physical address translation for
// the emulated core and the unified access router used by the interpreter
// and by JIT slow paths. Translation tries the block-address-translation
// tables first, then a software TLB backed by walks of the hashed page
// table in emulated physical memory.
package mmu

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/gekkosim/efb"
	"github.com/sarchlab/gekkosim/gpfifo"
	"github.com/sarchlab/gekkosim/memmap"
	"github.com/sarchlab/gekkosim/mmio"
	"github.com/sarchlab/gekkosim/platform"
	"github.com/sarchlab/gekkosim/ppc"
)

// PageSize is the hardware page size.
const (
	PageSize  = 4096
	pageShift = 12
	pageMask  = PageSize - 1
)

// BAT table geometry: one entry per 128KiB block of the address space.
const (
	batShift     = 17
	batTableSize = 1 << (32 - batShift)
)

// AccessKind tags an access with its translation and exception behavior.
type AccessKind int

const (
	// FlagNoException probes without side effects: no exception, no
	// referenced/changed-bit updates, no TLB replacement.
	FlagNoException AccessKind = iota
	// FlagRead is a data read; failure latches a data-storage interrupt.
	FlagRead
	// FlagWrite is a data write; failure latches a data-storage
	// interrupt with the store direction recorded.
	FlagWrite
	// FlagOpcode is an instruction fetch; failure is reported to the
	// caller, which raises the instruction-storage interrupt itself.
	FlagOpcode
	// FlagNoTranslate bypasses translation entirely.
	FlagNoTranslate
)

// TranslateResult is the outcome of one translation attempt. Failure is
// data, not control flow: callers check Valid.
type TranslateResult struct {
	Valid   bool
	FromBAT bool
	Address uint32
}

// TryReadInstResult is the outcome of an instruction fetch attempt.
type TryReadInstResult struct {
	Valid   bool
	FromBAT bool
	Hex     uint32
}

// Stats counts translation events, mainly for tests and diagnostics.
type Stats struct {
	TLBHits   uint64
	PageWalks uint64
	PhysReads uint64 // page-table-entry reads issued by walks
}

// CodeInvalidationSink receives guest writes that may overlap compiled
// code. The JIT block cache implements it; wiring it is optional when no
// JIT is active.
type CodeInvalidationSink interface {
	InvalidateICache(address, length uint32, forced bool)
}

// MMU owns one session's translation state: BAT tables, TLBs, and the
// derived page-table location. It is confined to the CPU-emulation
// context; no internal locking.
type MMU struct {
	state  *ppc.State
	mem    *memmap.Memory
	config *platform.Config

	dbatTable []uint32
	ibatTable []uint32

	itlb *tlbCache
	dtlb *tlbCache

	efb   efb.Accessor
	mmio  *mmio.Mapping
	fifo  *gpfifo.FIFO
	icode CodeInvalidationSink

	memChecks []*MemCheck

	stats Stats
	logw  io.Writer
}

// Option configures an MMU.
type Option func(*MMU)

// WithEFB wires the external framebuffer accessor.
func WithEFB(a efb.Accessor) Option {
	return func(m *MMU) { m.efb = a }
}

// WithMMIO wires the hardware register mapping.
func WithMMIO(mapping *mmio.Mapping) Option {
	return func(m *MMU) { m.mmio = mapping }
}

// WithFIFO wires the write-gather pipe.
func WithFIFO(f *gpfifo.FIFO) Option {
	return func(m *MMU) { m.fifo = f }
}

// WithCodeInvalidation wires the JIT block cache's invalidation entry
// point into the guest write path.
func WithCodeInvalidation(sink CodeInvalidationSink) Option {
	return func(m *MMU) { m.icode = sink }
}

// WithLogOutput redirects diagnostics away from os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(m *MMU) { m.logw = w }
}

// NewMMU creates the translation context for one session. The BAT tables
// start empty; call DBATUpdated/IBATUpdated after seeding the registers.
func NewMMU(state *ppc.State, mem *memmap.Memory, opts ...Option) *MMU {
	m := &MMU{
		state:     state,
		mem:       mem,
		config:    mem.Config(),
		dbatTable: make([]uint32, batTableSize),
		ibatTable: make([]uint32, batTableSize),
		itlb:      newTLBCache(),
		dtlb:      newTLBCache(),
		logw:      os.Stderr,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Stats returns the translation counters.
func (m *MMU) Stats() Stats { return m.stats }

// ResetStats clears the translation counters.
func (m *MMU) ResetStats() { m.stats = Stats{} }

// SDRUpdated derives the page-table base and hash mask from SDR1. A mask
// that is not a contiguous run of ones, or a base overlapping the mask
// bits, leaves the previous values in place, matching hardware's
// tolerance of malformed configuration. Cached translations from the old
// table are dropped.
func (m *MMU) SDRUpdated() {
	sdr := m.state.SDR1
	htabmask := ppc.SDR1HTabMask(sdr)

	x := uint32(1)
	xx := uint32(0)
	n := 0
	for htabmask&x != 0 && n < 9 {
		n++
		xx |= x
		x <<= 1
	}
	if htabmask&^xx != 0 {
		return
	}

	htaborg := ppc.SDR1HTabOrg(sdr)
	if htaborg>>16&xx != 0 {
		return
	}

	m.state.PageTableBase = htaborg
	m.state.PageTableHashMask = xx<<10 | 0x3FF

	m.itlb = newTLBCache()
	m.dtlb = newTLBCache()
}

// InvalidateTLBEntry drops any cached translation for the page containing
// address, in both access streams.
func (m *MMU) InvalidateTLBEntry(address uint32) {
	m.itlb.invalidate(address)
	m.dtlb.invalidate(address)
}

// TranslateAddress resolves an effective address using the BAT fast path
// first, then the page-table path. It is exported for collaborators that
// need the raw translation without an access (debugger, fast-path
// eligibility checks).
func (m *MMU) TranslateAddress(address uint32, flag AccessKind) TranslateResult {
	table := m.dbatTable
	if flag == FlagOpcode {
		table = m.ibatTable
	}
	if entry := table[address>>batShift]; entry&1 != 0 {
		return TranslateResult{
			Valid:   true,
			FromBAT: true,
			Address: entry&^1 | address&(1<<batShift-1),
		}
	}
	return m.translatePageAddress(address, flag)
}

// generateDSIException latches a data-storage interrupt. Outside full-MMU
// mode no title installs a fault handler, so the fault is reported as a
// diagnostic instead.
func (m *MMU) generateDSIException(effectiveAddress uint32, write bool) {
	if !m.config.FullMMU {
		dir := "read from"
		if write {
			dir = "write to"
		}
		m.logf("invalid %s %#08x, PC = %#08x", dir, effectiveAddress, m.state.PC)
		return
	}

	cause := uint32(ppc.DSISRPage)
	if write {
		cause |= ppc.DSISRStore
	}
	m.state.DSISR = cause
	m.state.DAR = effectiveAddress
	m.state.Exceptions |= ppc.ExceptionDSI
}

// generateISIException latches an instruction-storage interrupt,
// recording the faulting fetch address.
func (m *MMU) generateISIException(effectiveAddress uint32) {
	m.state.NPC = effectiveAddress
	m.state.Exceptions |= ppc.ExceptionISI
}

func (m *MMU) logf(format string, args ...any) {
	fmt.Fprintf(m.logw, "mmu: "+format+"\n", args...)
}
