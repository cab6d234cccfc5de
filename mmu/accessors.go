package mmu

import (
	"encoding/binary"
	"math"
	"math/bits"
	"strings"

	"github.com/sarchlab/gekkosim/memmap"
)

// Guest-facing and host-facing access surface. Guest accessors latch
// exceptions into the CPU state on translation faults and return zero;
// host accessors never fault and never disturb translation caches.

// ReadU8 reads a byte at the effective address.
func (m *MMU) ReadU8(address uint32) uint8 {
	v, _ := m.readFromHardware(address, 1, FlagRead)
	m.checkMemCheck(address, v, 1, false)
	return uint8(v)
}

// ReadU16 reads a big-endian halfword.
func (m *MMU) ReadU16(address uint32) uint16 {
	v, _ := m.readFromHardware(address, 2, FlagRead)
	m.checkMemCheck(address, v, 2, false)
	return uint16(v)
}

// ReadU32 reads a big-endian word.
func (m *MMU) ReadU32(address uint32) uint32 {
	v, _ := m.readFromHardware(address, 4, FlagRead)
	m.checkMemCheck(address, v, 4, false)
	return uint32(v)
}

// ReadU64 reads a big-endian doubleword.
func (m *MMU) ReadU64(address uint32) uint64 {
	v, _ := m.readFromHardware(address, 8, FlagRead)
	m.checkMemCheck(address, v, 8, false)
	return v
}

// ReadU8ZX reads a byte zero-extended to 32 bits.
func (m *MMU) ReadU8ZX(address uint32) uint32 { return uint32(m.ReadU8(address)) }

// ReadU16ZX reads a halfword zero-extended to 32 bits.
func (m *MMU) ReadU16ZX(address uint32) uint32 { return uint32(m.ReadU16(address)) }

// ReadF32 reads a single-precision float.
func (m *MMU) ReadF32(address uint32) float32 {
	return math.Float32frombits(m.ReadU32(address))
}

// ReadF64 reads a double-precision float.
func (m *MMU) ReadF64(address uint32) float64 {
	return math.Float64frombits(m.ReadU64(address))
}

// WriteU8 writes a byte at the effective address.
func (m *MMU) WriteU8(value uint8, address uint32) {
	m.checkMemCheck(address, uint64(value), 1, true)
	m.writeToHardware(address, uint64(value), 1, FlagWrite)
}

// WriteU16 writes a big-endian halfword.
func (m *MMU) WriteU16(value uint16, address uint32) {
	m.checkMemCheck(address, uint64(value), 2, true)
	m.writeToHardware(address, uint64(value), 2, FlagWrite)
}

// WriteU32 writes a big-endian word.
func (m *MMU) WriteU32(value uint32, address uint32) {
	m.checkMemCheck(address, uint64(value), 4, true)
	m.writeToHardware(address, uint64(value), 4, FlagWrite)
}

// WriteU64 writes a big-endian doubleword.
func (m *MMU) WriteU64(value uint64, address uint32) {
	m.checkMemCheck(address, value, 8, true)
	m.writeToHardware(address, value, 8, FlagWrite)
}

// WriteF64 writes a double-precision float.
func (m *MMU) WriteF64(value float64, address uint32) {
	m.WriteU64(math.Float64bits(value), address)
}

// WriteU16Swap writes a halfword with its bytes reversed, for the
// byte-reversed store forms.
func (m *MMU) WriteU16Swap(value uint16, address uint32) {
	m.WriteU16(bits.ReverseBytes16(value), address)
}

// WriteU32Swap writes a word with its bytes reversed.
func (m *MMU) WriteU32Swap(value uint32, address uint32) {
	m.WriteU32(bits.ReverseBytes32(value), address)
}

// WriteU64Swap writes a doubleword with its bytes reversed.
func (m *MMU) WriteU64Swap(value uint64, address uint32) {
	m.WriteU64(bits.ReverseBytes64(value), address)
}

// TryReadInstruction fetches an opcode without raising exceptions. The
// JIT front end uses it while scanning blocks; a failed fetch just ends
// the block.
func (m *MMU) TryReadInstruction(address uint32) TryReadInstResult {
	fromBAT := true
	if m.state.MSR.InstructionTranslation() {
		tr := m.TranslateAddress(address, FlagOpcode)
		if !tr.Valid {
			return TryReadInstResult{}
		}
		address = tr.Address
		fromBAT = tr.FromBAT
	}

	region := m.mem.PhysicalBytes(address)
	if len(region) < 4 {
		m.logf("strange program counter %#08x, no backing memory", address)
		return TryReadInstResult{}
	}
	return TryReadInstResult{
		Valid:   true,
		FromBAT: fromBAT,
		Hex:     binary.BigEndian.Uint32(region),
	}
}

// ReadOpcode fetches the instruction at the effective address, latching
// an instruction-storage interrupt on failure.
func (m *MMU) ReadOpcode(address uint32) uint32 {
	res := m.TryReadInstruction(address)
	if !res.Valid {
		m.generateISIException(address)
		return 0
	}
	return res.Hex
}

// HostRead8 reads a byte for the host (debugger, tooling) without side
// effects on translation caches or exception state.
func (m *MMU) HostRead8(address uint32) uint8 {
	v, _ := m.readFromHardware(address, 1, FlagNoException)
	return uint8(v)
}

// HostRead16 reads a halfword without side effects.
func (m *MMU) HostRead16(address uint32) uint16 {
	v, _ := m.readFromHardware(address, 2, FlagNoException)
	return uint16(v)
}

// HostRead32 reads a word without side effects.
func (m *MMU) HostRead32(address uint32) uint32 {
	v, _ := m.readFromHardware(address, 4, FlagNoException)
	return uint32(v)
}

// HostRead64 reads a doubleword without side effects.
func (m *MMU) HostRead64(address uint32) uint64 {
	v, _ := m.readFromHardware(address, 8, FlagNoException)
	return v
}

// HostWrite8 writes a byte without side effects on exception state.
func (m *MMU) HostWrite8(value uint8, address uint32) {
	m.writeToHardware(address, uint64(value), 1, FlagNoException)
}

// HostWrite16 writes a halfword without side effects.
func (m *MMU) HostWrite16(value uint16, address uint32) {
	m.writeToHardware(address, uint64(value), 2, FlagNoException)
}

// HostWrite32 writes a word without side effects.
func (m *MMU) HostWrite32(value uint32, address uint32) {
	m.writeToHardware(address, uint64(value), 4, FlagNoException)
}

// HostWrite64 writes a doubleword without side effects.
func (m *MMU) HostWrite64(value uint64, address uint32) {
	m.writeToHardware(address, value, 8, FlagNoException)
}

// HostGetString reads a NUL-terminated string of at most maxLen bytes,
// stopping early at an unmapped address.
func (m *MMU) HostGetString(address uint32, maxLen int) string {
	var sb strings.Builder
	for i := 0; i < maxLen; i++ {
		if !m.HostIsRAMAddress(address + uint32(i)) {
			break
		}
		c := m.HostRead8(address + uint32(i))
		if c == 0 {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// HostIsRAMAddress reports whether the effective address resolves to
// backing memory under the current translation state.
func (m *MMU) HostIsRAMAddress(address uint32) bool {
	if m.state.MSR.DataTranslation() {
		tr := m.TranslateAddress(address, FlagNoException)
		if !tr.Valid {
			return false
		}
		address = tr.Address
	}
	return m.mem.PhysicalBytes(address) != nil
}

// IsOptimizableRAMAddress reports whether a load or store at the address
// may bypass the router entirely: translation on, a block-translated
// mapping, and a main-memory target. Code generators use it to emit
// direct memory accesses.
func (m *MMU) IsOptimizableRAMAddress(address uint32) bool {
	if !m.state.MSR.DataTranslation() {
		return false
	}
	entry := m.dbatTable[address>>batShift]
	if entry&1 == 0 {
		return false
	}
	phys := entry&^1 | address&(1<<batShift-1)
	return phys < memmap.RealRAMSize
}

// lockedCacheWindow bounds a transfer against the locked cache region.
// The DMA registers are guest controlled; a range running past the end
// of the region is clipped with a diagnostic.
func (m *MMU) lockedCacheWindow(cacheAddress, length uint32) []byte {
	offset := cacheAddress & (memmap.L1CacheSize - 1)
	if offset+length > memmap.L1CacheSize {
		m.logf("locked cache transfer of %#x bytes at %#08x clipped",
			length, cacheAddress)
		length = memmap.L1CacheSize - offset
	}
	return m.mem.L1Cache()[offset : offset+length]
}

// DMAMemoryToLC copies numBlocks cache lines from memory into the locked
// L1 cache region. Sources inside hardware windows go through the access
// router word by word.
func (m *MMU) DMAMemoryToLC(cacheAddress, memAddress uint32, numBlocks uint32) {
	dst := m.lockedCacheWindow(cacheAddress, numBlocks*32)
	length := uint32(len(dst))

	if m.dmaNeedsRouter(memAddress, length) {
		for i := uint32(0); i+4 <= length; i += 4 {
			binary.BigEndian.PutUint32(dst[i:], m.ReadU32(memAddress+i))
		}
		return
	}

	tr := m.resolveDMAAddress(memAddress)
	copy(dst, m.mem.PhysicalBytes(tr))
}

// DMALCToMemory copies numBlocks cache lines from the locked L1 cache
// region into memory. Destinations inside hardware windows (the gather
// pipe in particular) go through the access router word by word.
func (m *MMU) DMALCToMemory(memAddress, cacheAddress uint32, numBlocks uint32) {
	src := m.lockedCacheWindow(cacheAddress, numBlocks*32)
	length := uint32(len(src))

	if m.dmaNeedsRouter(memAddress, length) {
		for i := uint32(0); i+4 <= length; i += 4 {
			m.WriteU32(binary.BigEndian.Uint32(src[i:]), memAddress+i)
		}
		return
	}

	tr := m.resolveDMAAddress(memAddress)
	dst := m.mem.PhysicalBytes(tr)
	copy(dst[:length], src)
	if m.icode != nil {
		m.icode.InvalidateICache(memAddress, length, false)
	}
}

func (m *MMU) resolveDMAAddress(address uint32) uint32 {
	if m.state.MSR.DataTranslation() {
		if tr := m.TranslateAddress(address, FlagNoException); tr.Valid {
			return tr.Address
		}
	}
	return address
}

func (m *MMU) dmaNeedsRouter(address, length uint32) bool {
	phys := m.resolveDMAAddress(address)
	if inEFBWindow(phys) || phys&gatherWindowMask == gatherWindowBase {
		return true
	}
	region := m.mem.PhysicalBytes(phys)
	return len(region) < int(length)
}

// ClearCacheLine zeroes the 32-byte cache line containing address, as the
// dcbz instruction does. The address must be line aligned.
func (m *MMU) ClearCacheLine(address uint32) {
	for i := uint32(0); i < 32; i += 8 {
		m.WriteU64(0, address+i)
	}
}
