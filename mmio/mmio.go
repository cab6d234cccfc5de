// Package mmio routes accesses to memory-mapped hardware registers. The
// registers themselves are emulated elsewhere; devices register plain
// read/write callbacks here and the memory subsystem dispatches to them by
// physical address.
package mmio

import (
	"fmt"
	"io"
	"os"
)

// Mapping holds the registered handlers for one emulation session.
// Handlers are registered per width; hardware registers are at most 32
// bits wide, so 64-bit accesses are split by the caller.
type Mapping struct {
	read8   map[uint32]func() uint8
	read16  map[uint32]func() uint16
	read32  map[uint32]func() uint32
	write8  map[uint32]func(uint8)
	write16 map[uint32]func(uint16)
	write32 map[uint32]func(uint32)

	logw io.Writer
}

// NewMapping creates an empty register mapping.
func NewMapping() *Mapping {
	return &Mapping{
		read8:   map[uint32]func() uint8{},
		read16:  map[uint32]func() uint16{},
		read32:  map[uint32]func() uint32{},
		write8:  map[uint32]func(uint8){},
		write16: map[uint32]func(uint16){},
		write32: map[uint32]func(uint32){},
		logw:    os.Stderr,
	}
}

// SetLogOutput redirects unknown-register diagnostics.
func (m *Mapping) SetLogOutput(w io.Writer) { m.logw = w }

// RegisterRead8 installs a byte read handler at addr.
func (m *Mapping) RegisterRead8(addr uint32, fn func() uint8) { m.read8[addr] = fn }

// RegisterRead16 installs a halfword read handler at addr.
func (m *Mapping) RegisterRead16(addr uint32, fn func() uint16) { m.read16[addr] = fn }

// RegisterRead32 installs a word read handler at addr.
func (m *Mapping) RegisterRead32(addr uint32, fn func() uint32) { m.read32[addr] = fn }

// RegisterWrite8 installs a byte write handler at addr.
func (m *Mapping) RegisterWrite8(addr uint32, fn func(uint8)) { m.write8[addr] = fn }

// RegisterWrite16 installs a halfword write handler at addr.
func (m *Mapping) RegisterWrite16(addr uint32, fn func(uint16)) { m.write16[addr] = fn }

// RegisterWrite32 installs a word write handler at addr.
func (m *Mapping) RegisterWrite32(addr uint32, fn func(uint32)) { m.write32[addr] = fn }

// Read8 dispatches a byte read. Unknown registers read as zero.
func (m *Mapping) Read8(addr uint32) uint8 {
	if fn, ok := m.read8[addr]; ok {
		return fn()
	}
	m.unknown("read8", addr)
	return 0
}

// Read16 dispatches a halfword read.
func (m *Mapping) Read16(addr uint32) uint16 {
	if fn, ok := m.read16[addr]; ok {
		return fn()
	}
	m.unknown("read16", addr)
	return 0
}

// Read32 dispatches a word read.
func (m *Mapping) Read32(addr uint32) uint32 {
	if fn, ok := m.read32[addr]; ok {
		return fn()
	}
	m.unknown("read32", addr)
	return 0
}

// Write8 dispatches a byte write. Unknown registers drop the write.
func (m *Mapping) Write8(addr uint32, value uint8) {
	if fn, ok := m.write8[addr]; ok {
		fn(value)
		return
	}
	m.unknown("write8", addr)
}

// Write16 dispatches a halfword write.
func (m *Mapping) Write16(addr uint32, value uint16) {
	if fn, ok := m.write16[addr]; ok {
		fn(value)
		return
	}
	m.unknown("write16", addr)
}

// Write32 dispatches a word write.
func (m *Mapping) Write32(addr uint32, value uint32) {
	if fn, ok := m.write32[addr]; ok {
		fn(value)
		return
	}
	m.unknown("write32", addr)
}

func (m *Mapping) unknown(op string, addr uint32) {
	fmt.Fprintf(m.logw, "mmio: unhandled %s at %#08x\n", op, addr)
}
