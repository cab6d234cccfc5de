// Package memmap owns the backing storage for the emulated console's
// physical address space: main RAM, the locked L1 cache region, Wii
// expansion RAM, and the optional fake-VMEM backing region. It hands out
// bounds-checked views of those regions to the translation layer and to
// emulated devices, and exposes the raw region dumps the state snapshotter
// consumes.
package memmap

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/gekkosim/platform"
)

// Region sizes and masks. RAMSize is what the emulator allocates;
// RealRAMSize is what emulated software sees reported in low memory.
const (
	RealRAMSize = 0x01800000
	RAMSize     = 0x02000000 // RealRAMSize rounded up to a power of two
	RAMMask     = RAMSize - 1
	L1CacheSize = 0x00040000
	L1CacheMask = L1CacheSize - 1
	EXRAMSize   = 0x04000000
	EXRAMMask   = EXRAMSize - 1

	// FakeVMEMBase is where the fake-VMEM backing region sits in
	// physical space so BAT translation can reach it. The region
	// occupies [0x7E000000, 0x80000000).
	FakeVMEMBase = 0x7E000000
)

// Region flag bits in the static region table.
const (
	regionWiiOnly = 1 << iota
	regionFakeVMEMOnly
)

type regionDesc struct {
	name  string
	size  uint32
	flags uint32
}

// The static region table. Order here is also the snapshot order.
var regionTable = []regionDesc{
	{name: "Memory RAM", size: RAMSize},
	{name: "Memory L1Cache", size: L1CacheSize},
	{name: "Memory EXRAM", size: EXRAMSize, flags: regionWiiOnly},
	{name: "Memory FakeVMEM", size: RAMSize, flags: regionFakeVMEMOnly},
}

// Memory is the physical address space of one emulation session. Regions
// are allocated once at construction and owned for the session lifetime.
type Memory struct {
	config *platform.Config

	ram      []byte
	l1Cache  []byte
	exram    []byte
	fakeVMEM []byte

	logical [8]LogicalRegion

	logw io.Writer
}

// LogicalRegion records one BAT pair's logical-to-physical mapping so
// collaborators holding logical-address views stay consistent across BAT
// rewrites.
type LogicalRegion struct {
	LogicalBase  uint32
	Size         uint32
	PhysicalBase uint32
}

// Option configures a Memory.
type Option func(*Memory)

// WithLogOutput redirects diagnostics away from os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(m *Memory) {
		m.logw = w
	}
}

// NewMemory allocates the address space for the given platform.
func NewMemory(config *platform.Config, opts ...Option) *Memory {
	m := &Memory{
		config: config,
		logw:   os.Stderr,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, desc := range regionTable {
		if desc.flags&regionWiiOnly != 0 && !config.Wii {
			continue
		}
		if desc.flags&regionFakeVMEMOnly != 0 && !config.FakeVMEM {
			continue
		}
		buf := make([]byte, desc.size)
		switch desc.name {
		case "Memory RAM":
			m.ram = buf
		case "Memory L1Cache":
			m.l1Cache = buf
		case "Memory EXRAM":
			m.exram = buf
		case "Memory FakeVMEM":
			m.fakeVMEM = buf
		}
	}

	return m
}

// Config returns the platform configuration the address space was built
// for.
func (m *Memory) Config() *platform.Config {
	return m.config
}

// Clear zeroes every allocated region.
func (m *Memory) Clear() {
	clear(m.ram)
	clear(m.l1Cache)
	clear(m.exram)
	clear(m.fakeVMEM)
}

// RAM returns the main RAM region.
func (m *Memory) RAM() []byte { return m.ram }

// L1Cache returns the locked-cache region.
func (m *Memory) L1Cache() []byte { return m.l1Cache }

// EXRAM returns the expansion RAM region, nil on GameCube.
func (m *Memory) EXRAM() []byte { return m.exram }

// FakeVMEM returns the fake-VMEM backing region, nil unless enabled.
func (m *Memory) FakeVMEM() []byte { return m.fakeVMEM }

// PhysicalBytes resolves a physical address to the remainder of its
// backing region. It returns nil when the address falls outside every
// region; translation is never applied here.
func (m *Memory) PhysicalBytes(addr uint32) []byte {
	segment := addr >> 28
	switch {
	case addr < RealRAMSize:
		return m.ram[addr:]
	case m.exram != nil && segment == 0x1 && addr&0x0FFFFFFF < EXRAMSize:
		return m.exram[addr&EXRAMMask:]
	case segment == 0xE && addr < 0xE0000000+L1CacheSize:
		return m.l1Cache[addr&L1CacheMask:]
	case m.fakeVMEM != nil && addr&0xFE000000 == FakeVMEMBase:
		return m.fakeVMEM[addr&RAMMask:]
	}
	return nil
}

// UpdateLogicalRegion records the logical-to-physical mapping contributed
// by BAT pair index. Called by the translation layer after a BAT rewrite.
func (m *Memory) UpdateLogicalRegion(index int, logicalBase, size, physicalBase uint32) {
	m.logical[index] = LogicalRegion{
		LogicalBase:  logicalBase,
		Size:         size,
		PhysicalBase: physicalBase,
	}
}

// InvalidateLogicalRegion drops the mapping for BAT pair index.
func (m *Memory) InvalidateLogicalRegion(index int) {
	m.logical[index] = LogicalRegion{}
}

// LogicalRegions returns the current BAT-contributed logical mappings.
func (m *Memory) LogicalRegions() []LogicalRegion {
	return m.logical[:]
}

// RegionDump is one named raw region for the snapshot surface.
type RegionDump struct {
	Marker string
	Data   []byte
}

// Snapshot returns the regions in the fixed snapshot order with their
// markers. The slices alias the live regions; the serializer must copy or
// finish before emulation resumes. The JIT cache is never part of a
// snapshot and must be cleared on load.
func (m *Memory) Snapshot() []RegionDump {
	dumps := []RegionDump{
		{Marker: "Memory RAM", Data: m.ram},
		{Marker: "Memory L1Cache", Data: m.l1Cache},
	}
	if m.exram != nil {
		dumps = append(dumps, RegionDump{Marker: "Memory EXRAM", Data: m.exram})
	}
	if m.fakeVMEM != nil {
		dumps = append(dumps, RegionDump{Marker: "Memory FakeVMEM", Data: m.fakeVMEM})
	}
	return dumps
}

func (m *Memory) logf(format string, args ...any) {
	fmt.Fprintf(m.logw, "memmap: "+format+"\n", args...)
}
